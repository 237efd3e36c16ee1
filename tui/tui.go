package tui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"

	"github.com/nathoo/ifcore/engine"
	"github.com/nathoo/ifcore/engine/save"
)

// rawLine stores an unstyled output line with its classification,
// so it can be re-wrapped and re-styled when the terminal is resized.
type rawLine struct {
	text     string
	kind     lineKind
	isInput  bool // echoed player input
	isSystem bool // front-end message
}

// Model is the Bubble Tea model for the terminal front end.
type Model struct {
	engine *engine.Engine

	viewport viewport.Model
	input    textinput.Model
	history  *History

	rawLines []rawLine

	width    int
	height   int
	ready    bool
	trace    bool
	quitting bool
	goalSeen bool
	lastCmd  string
	saveDir  string
}

// gameOutputMsg carries output into the Update loop.
type gameOutputMsg struct {
	input    string   // echoed player input (empty for intro)
	lines    []string // output lines
	isSystem bool     // meta-command output
	failed   bool     // the turn did not succeed
}

// New creates a TUI model wired to the given engine.
func New(eng *engine.Engine) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 256
	ti.PromptStyle = styleInputPrompt

	home, _ := os.UserHomeDir()
	return Model{
		engine:   eng,
		input:    ti,
		history:  NewHistory(100),
		saveDir:  filepath.Join(home, ".ifcore", "saves"),
		goalSeen: eng.GoalAchieved(),
	}
}

// Run starts the Bubble Tea program.
func Run(eng *engine.Engine) error {
	p := tea.NewProgram(New(eng), tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}

// Init returns the initial command that produces the intro and first look.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.initialOutput())
}

func (m Model) initialOutput() tea.Cmd {
	eng := m.engine
	return func() tea.Msg {
		lines := []string{eng.Defs.Game.Title, ""}
		if intro := eng.Defs.Game.Intro; intro != "" {
			lines = append(lines, intro, "")
		}
		res, err := eng.ProcessAction("look")
		lines = append(lines, res.Feedback)
		if err != nil {
			lines = append(lines, fmt.Sprintf("[The world can no longer continue: %v]", err))
		}
		return gameOutputMsg{lines: lines}
	}
}

// Update handles key presses, window resizes and game output.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		vpHeight := m.height - 2 // status bar and input line
		if vpHeight < 1 {
			vpHeight = 1
		}

		if !m.ready {
			m.viewport = viewport.New(m.width, vpHeight)
			m.viewport.KeyMap = viewportKeyMap()
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = vpHeight
		}

		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "enter":
			return m.handleEnter()

		case "up":
			if prev, ok := m.history.Prev(); ok {
				m.input.SetValue(prev)
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if next, ok := m.history.Next(); ok {
				m.input.SetValue(next)
				m.input.CursorEnd()
			} else {
				m.input.SetValue("")
				m.history.ResetCursor()
			}
			return m, nil

		case "pgup", "pgdown":
			var vpCmd tea.Cmd
			m.viewport, vpCmd = m.viewport.Update(msg)
			return m, vpCmd
		}

	case gameOutputMsg:
		m = m.appendOutput(msg)
	}

	var inputCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	cmds = append(cmds, inputCmd)

	return m, tea.Batch(cmds...)
}

// handleEnter processes the submitted input line.
func (m Model) handleEnter() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")
	if input == "" {
		return m, nil
	}

	m.history.Push(input)
	m.history.ResetCursor()

	lower := strings.ToLower(input)
	if lower == "again" || lower == "g" {
		if m.lastCmd == "" {
			m = m.appendOutput(gameOutputMsg{
				input: input, lines: []string{"Nothing to repeat."}, isSystem: true,
			})
			return m, nil
		}
		input = m.lastCmd
	} else if !strings.HasPrefix(input, "/") {
		m.lastCmd = input
	}

	if strings.HasPrefix(input, "/") {
		output, quit := m.handleMeta(input)
		m = m.appendOutput(gameOutputMsg{input: input, lines: output, isSystem: true})
		if quit {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	out := m.play(input)
	m = m.appendOutput(out)
	return m, nil
}

// play runs one game command and collects its output.
func (m *Model) play(input string) gameOutputMsg {
	res, err := m.engine.ProcessAction(input)
	out := gameOutputMsg{input: input, failed: !res.Success}
	if res.Feedback != "" {
		out.lines = append(out.lines, res.Feedback)
	}
	if m.trace {
		out.lines = append(out.lines, formatTrace(res)...)
	}
	switch {
	case errors.Is(err, engine.ErrEpisodeAborted):
		out.lines = append(out.lines, "[The episode has ended. Use /load to restore a saved game or /quit.]")
	case err != nil:
		out.lines = append(out.lines, fmt.Sprintf("[The world can no longer continue: %v]", err))
	case res.GoalAchieved && !m.goalSeen:
		m.goalSeen = true
		out.lines = append(out.lines, "*** You have achieved your goal. ***")
	}
	return out
}

// appendOutput adds lines to the narrative and refreshes the viewport.
func (m Model) appendOutput(msg gameOutputMsg) Model {
	if msg.input != "" {
		m.rawLines = append(m.rawLines, rawLine{text: "> " + msg.input, isInput: true})
	}
	for _, line := range msg.lines {
		rl := rawLine{text: line, isSystem: msg.isSystem}
		if !msg.isSystem {
			rl.kind = classifyLine(line, msg.failed)
		}
		m.rawLines = append(m.rawLines, rl)
	}
	// Blank line between turns.
	m.rawLines = append(m.rawLines, rawLine{})

	m.refreshViewport()
	return m
}

// refreshViewport re-wraps and re-styles all raw lines at the current width.
func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}

	width := m.width
	if width < 10 {
		width = 10
	}

	styled := make([]string, 0, len(m.rawLines))
	for _, rl := range m.rawLines {
		if rl.text == "" {
			styled = append(styled, "")
			continue
		}

		wrapped := wordwrap.String(rl.text, width)
		switch {
		case rl.isInput:
			styled = append(styled, stylePlayerInput.Render(wrapped))
		case rl.isSystem:
			styled = append(styled, styledSystemMsg(wrapped))
		default:
			styled = append(styled, renderLineKind(wrapped, rl.kind))
		}
	}

	m.viewport.SetContent(strings.Join(styled, "\n"))
	m.viewport.GotoBottom()
}

// View renders the viewport, status bar and input.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}
	return m.viewport.View() + "\n" + m.renderStatusBar() + "\n" + m.input.View()
}

// handleMeta dispatches meta-commands. Returns output lines and quit flag.
func (m *Model) handleMeta(input string) ([]string, bool) {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		return []string{"Goodbye."}, true
	case "/save":
		return m.cmdSave(arg), false
	case "/load":
		return m.cmdLoad(arg), false
	case "/help":
		return helpLines, false
	case "/state":
		return m.cmdState(), false
	case "/trace":
		m.trace = !m.trace
		if m.trace {
			return []string{"Trace output enabled."}, false
		}
		return []string{"Trace output disabled."}, false
	default:
		return []string{fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd)}, false
	}
}

func (m *Model) cmdSave(name string) []string {
	if name == "" {
		name = "quicksave"
	}
	data, err := save.Save(m.engine)
	if err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}
	if err := os.MkdirAll(m.saveDir, 0o755); err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}
	path := filepath.Join(m.saveDir, name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return []string{fmt.Sprintf("Save failed: %v", err)}
	}
	return []string{fmt.Sprintf("Game saved to %s.", name)}
}

func (m *Model) cmdLoad(name string) []string {
	if name == "" {
		name = "quicksave"
	}
	data, err := os.ReadFile(filepath.Join(m.saveDir, name+".json"))
	if err != nil {
		return []string{fmt.Sprintf("Load failed: %v", err)}
	}
	sd, err := save.Load(data)
	if err != nil {
		return []string{fmt.Sprintf("Load failed: %v", err)}
	}
	if err := save.Apply(m.engine, sd); err != nil {
		return []string{fmt.Sprintf("Load failed: %v", err)}
	}
	m.goalSeen = m.engine.GoalAchieved()

	output := []string{fmt.Sprintf("Game loaded from %s (turn %d).", name, sd.Turn)}
	res, _ := m.engine.ProcessAction("look")
	if res.Feedback != "" {
		output = append(output, res.Feedback)
	}
	return output
}

var helpLines = []string{
	"System:",
	"  /save [name]  Save game (default: quicksave)",
	"  /load [name]  Load game (default: quicksave)",
	"  /quit         Exit game",
	"  /help         Show this help",
	"  /state        Debug: dump current facts",
	"  /trace        Toggle debug trace output",
	"",
	"Game commands:",
	"  look (l)                 Describe the room",
	"  examine <thing> (x)      Look closely at something",
	"  go <dir> / go to <room>  Move (or just type n/s/e/w/u/d)",
	"  take <item>              Pick something up",
	"  put <item> in <thing>    Put something somewhere",
	"  open <thing>             Open something",
	"  inventory (i)            Check what you're carrying",
	"  again (g)                Repeat your last command",
	"",
	"Navigation: PgUp/PgDn to scroll, Up/Down for command history",
}

func (m *Model) cmdState() []string {
	e := m.engine
	output := []string{
		fmt.Sprintf("Turn: %d", e.Turn),
		fmt.Sprintf("Location: %s", e.World.PlayerRoom()),
		fmt.Sprintf("Goal achieved: %v", e.GoalAchieved()),
	}
	for _, f := range e.Facts() {
		output = append(output, "  "+f.String())
	}
	return output
}

func formatTrace(res engine.TurnResult) []string {
	lines := []string{fmt.Sprintf("[trace] action=%s phase=%s kind=%s", res.ActionID, res.Phase, res.FailureKind)}
	for _, f := range res.ChangeSet.Removed {
		lines = append(lines, "[trace]   -"+f.String())
	}
	for _, f := range res.ChangeSet.Added {
		lines = append(lines, "[trace]   +"+f.String())
	}
	for _, id := range res.Events {
		lines = append(lines, "[trace]   event "+id)
	}
	if res.InformationGain > 0 {
		lines = append(lines, fmt.Sprintf("[trace]   gained %d fact(s)", res.InformationGain))
	}
	return lines
}

// viewportKeyMap returns a viewport keymap with Up/Down disabled, since
// those keys walk the command history.
func viewportKeyMap() viewport.KeyMap {
	return viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageDown: key.NewBinding(key.WithKeys("ctrl+d")),
		HalfPageUp:   key.NewBinding(key.WithKeys("ctrl+u")),
		Up:           key.NewBinding(key.WithDisabled()),
		Down:         key.NewBinding(key.WithDisabled()),
	}
}
