// Package cli provides terminal I/O, output formatting, and meta-command
// dispatch for the plain-text front end.
package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/muesli/reflow/wordwrap"

	"github.com/nathoo/ifcore/engine"
	"github.com/nathoo/ifcore/engine/save"
)

// DefaultWidth is the wrap column for game text.
const DefaultWidth = 78

// CLI handles terminal interaction with the player.
type CLI struct {
	Engine    *engine.Engine
	In        io.Reader
	Out       io.Writer
	SaveDir   string
	Width     int // wrap column; 0 disables wrapping
	Trace     bool
	EchoInput bool // echo each input line after the prompt (for script playback)

	lastCmd  string // for "again"/"g" repeat
	goalSeen bool
}

// New creates a CLI wired to the given engine.
func New(eng *engine.Engine) *CLI {
	home, _ := os.UserHomeDir()
	return &CLI{
		Engine:  eng,
		In:      os.Stdin,
		Out:     os.Stdout,
		SaveDir: filepath.Join(home, ".ifcore", "saves"),
		Width:   DefaultWidth,
	}
}

// Run starts the game loop. It shows the intro, describes the starting room,
// then loops: prompt, input, dispatch, output. It returns when input ends,
// on /quit, or with the error that aborted the episode.
func (c *CLI) Run() error {
	if intro := c.Engine.Defs.Game.Intro; intro != "" {
		c.printLine(intro)
		c.printLine("")
	}
	if err := c.play("look"); err != nil {
		return err
	}

	scanner := bufio.NewScanner(c.In)
	for {
		c.print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		if strings.HasPrefix(input, "/") {
			if c.handleMeta(input) {
				return nil // /quit
			}
			continue
		}

		lower := strings.ToLower(input)
		if lower == "again" || lower == "g" {
			if c.lastCmd == "" {
				c.printLine("Nothing to repeat.")
				continue
			}
			input = c.lastCmd
		} else {
			c.lastCmd = input
		}

		if err := c.play(input); err != nil {
			return err
		}
	}
}

// play runs one game command and prints its outcome.
func (c *CLI) play(input string) error {
	res, err := c.Engine.ProcessAction(input)
	if res.Feedback != "" {
		c.printLine(res.Feedback)
	}
	if c.Trace {
		c.printTrace(res)
	}
	if err != nil {
		if errors.Is(err, engine.ErrEpisodeAborted) {
			c.printSystem("The episode has ended. Use /load to restore a saved game or /quit.")
			return nil
		}
		c.printSystem(fmt.Sprintf("The world can no longer continue: %v", err))
		return err
	}
	if res.GoalAchieved && !c.goalSeen {
		c.goalSeen = true
		c.printLine("")
		c.printLine("*** You have achieved your goal. ***")
	}
	return nil
}

// handleMeta dispatches meta-commands. Returns true if the game should exit.
func (c *CLI) handleMeta(input string) bool {
	parts := strings.Fields(input)
	cmd := parts[0]
	var arg string
	if len(parts) > 1 {
		arg = parts[1]
	}

	switch cmd {
	case "/quit", "/exit":
		c.printSystem("Goodbye.")
		return true

	case "/save":
		c.cmdSave(arg)

	case "/load":
		c.cmdLoad(arg)

	case "/help":
		c.cmdHelp()

	case "/state":
		c.cmdState()

	case "/trace":
		c.Trace = !c.Trace
		if c.Trace {
			c.printSystem("Trace output enabled.")
		} else {
			c.printSystem("Trace output disabled.")
		}

	default:
		c.printSystem(fmt.Sprintf("Unknown command: %s. Type /help for available commands.", cmd))
	}

	return false
}

func (c *CLI) cmdSave(name string) {
	if name == "" {
		name = "quicksave"
	}

	data, err := save.Save(c.Engine)
	if err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}
	if err := os.MkdirAll(c.SaveDir, 0o755); err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}
	path := filepath.Join(c.SaveDir, name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		c.printSystem(fmt.Sprintf("Save failed: %v", err))
		return
	}

	c.printSystem(fmt.Sprintf("Game saved to %s.", name))
}

func (c *CLI) cmdLoad(name string) {
	if name == "" {
		name = "quicksave"
	}

	data, err := os.ReadFile(filepath.Join(c.SaveDir, name+".json"))
	if err != nil {
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}
	sd, err := save.Load(data)
	if err != nil {
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}
	if err := save.Apply(c.Engine, sd); err != nil {
		c.printSystem(fmt.Sprintf("Load failed: %v", err))
		return
	}
	c.goalSeen = c.Engine.GoalAchieved()
	c.printSystem(fmt.Sprintf("Game loaded from %s (turn %d).", name, sd.Turn))

	// Show current room after loading.
	_ = c.play("look")
}

func (c *CLI) cmdHelp() {
	help := []string{
		"System:",
		"  /save [name]  Save game (default: quicksave)",
		"  /load [name]  Load game (default: quicksave)",
		"  /quit         Exit game",
		"  /help         Show this help",
		"  /state        Debug: dump current facts",
		"  /trace        Toggle debug trace output",
		"",
		"Game commands:",
		"  look (l)               Describe the room",
		"  examine <thing> (x)    Look closely at something",
		"  go <dir> / go to <room>  Move (or just type n/s/e/w/u/d)",
		"  take <item>            Pick something up",
		"  put <item> in <thing>  Put something somewhere",
		"  open <thing>           Open something",
		"  inventory (i)          Check what you're carrying",
		"  again (g)              Repeat your last command",
	}
	for _, line := range help {
		c.printLine(line)
	}
}

func (c *CLI) cmdState() {
	e := c.Engine
	c.printSystem(fmt.Sprintf("Turn: %d", e.Turn))
	c.printSystem(fmt.Sprintf("Location: %s", e.World.PlayerRoom()))
	c.printSystem(fmt.Sprintf("Goal achieved: %v", e.GoalAchieved()))
	for _, f := range e.Facts() {
		c.printSystem("  " + f.String())
	}
}

func (c *CLI) printTrace(res engine.TurnResult) {
	c.printSystem(fmt.Sprintf("[trace] action=%s phase=%s kind=%s", res.ActionID, res.Phase, res.FailureKind))
	for _, f := range res.ChangeSet.Removed {
		c.printSystem("[trace]   -" + f.String())
	}
	for _, f := range res.ChangeSet.Added {
		c.printSystem("[trace]   +" + f.String())
	}
	for _, id := range res.Events {
		c.printSystem("[trace]   event " + id)
	}
	if res.InformationGain > 0 {
		c.printSystem(fmt.Sprintf("[trace]   gained %d fact(s)", res.InformationGain))
	}
}

func (c *CLI) printLine(text string) {
	if c.Width > 0 {
		text = wordwrap.String(text, c.Width)
	}
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
