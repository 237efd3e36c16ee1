package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nathoo/ifcore/engine"
	"github.com/nathoo/ifcore/engine/enginetest"
)

func newModel(t *testing.T) Model {
	t.Helper()
	eng, err := engine.New(enginetest.Defs(), enginetest.Config())
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	m := New(eng)
	m.saveDir = t.TempDir()
	return m
}

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		line   string
		failed bool
		want   lineKind
	}{
		{"[trace] action=take phase=done kind=", false, kindTrace},
		{"[Game saved to test.]", false, kindSystem},
		{"*** You have achieved your goal. ***", false, kindGoal},
		{"The cupboard is closed.", true, kindFailure},
		{"You take the orange.", false, kindNarrative},
		{`The cook says "mind the cauldron, it bites."`, false, kindDialogue},
		{"", false, kindNarrative},
	}
	for _, tt := range tests {
		got := classifyLine(tt.line, tt.failed)
		if got != tt.want {
			t.Errorf("classifyLine(%q, %v) = %v, want %v", tt.line, tt.failed, got, tt.want)
		}
	}
}

func TestContainsQuotedSpeech(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{`"Hello, traveller. Welcome to the kitchen."`, true},
		{`I don't know how to "xyzzy".`, false},
		{"No quotes here.", false},
		{`"Hi"`, false},
	}
	for _, tt := range tests {
		got := containsQuotedSpeech(tt.line)
		if got != tt.want {
			t.Errorf("containsQuotedSpeech(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestHistory_PushAndPrev(t *testing.T) {
	h := NewHistory(5)
	h.Push("look")
	h.Push("go north")
	h.Push("take key")

	for _, want := range []string{"take key", "go north", "look", "look"} {
		prev, ok := h.Prev()
		if !ok || prev != want {
			t.Errorf("Prev() = %q (ok=%v), want %q", prev, ok, want)
		}
	}
}

func TestHistory_Next(t *testing.T) {
	h := NewHistory(5)
	h.Push("look")
	h.Push("go north")

	h.Prev() // "go north"
	h.Prev() // "look"

	next, ok := h.Next()
	if !ok || next != "go north" {
		t.Errorf("expected 'go north', got %q (ok=%v)", next, ok)
	}
	if _, ok := h.Next(); ok {
		t.Error("expected false when past newest entry")
	}
}

func TestHistory_Empty(t *testing.T) {
	h := NewHistory(5)
	if _, ok := h.Prev(); ok {
		t.Error("expected false on empty history")
	}
	if _, ok := h.Next(); ok {
		t.Error("expected false on empty history")
	}
}

func TestHistory_MaxSizeAndDuplicates(t *testing.T) {
	h := NewHistory(2)
	h.Push("a")
	h.Push("b")
	h.Push("b") // skipped
	h.Push("c") // "a" evicted

	if len(h.entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(h.entries))
	}
	prev, _ := h.Prev()
	if prev != "c" {
		t.Errorf("expected 'c', got %q", prev)
	}
	prev, _ = h.Prev()
	if prev != "b" {
		t.Errorf("expected 'b', got %q", prev)
	}
	h.ResetCursor()
	prev, _ = h.Prev()
	if prev != "c" {
		t.Errorf("expected 'c' after reset, got %q", prev)
	}
}

func TestHandleMeta(t *testing.T) {
	tests := []struct {
		input    string
		quit     bool
		contains string
	}{
		{"/quit", true, "Goodbye"},
		{"/exit", true, "Goodbye"},
		{"/save test", false, "Game saved"},
		{"/load nonexistent", false, "Load failed"},
		{"/bogus", false, "Unknown command"},
		{"/help", false, "/save"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			m := newModel(t)
			output, quit := m.handleMeta(tt.input)
			if quit != tt.quit {
				t.Errorf("quit = %v, want %v", quit, tt.quit)
			}
			if joined := strings.Join(output, "\n"); !strings.Contains(joined, tt.contains) {
				t.Errorf("output %q does not contain %q", joined, tt.contains)
			}
		})
	}
}

func TestHandleMeta_Trace(t *testing.T) {
	m := newModel(t)

	output, _ := m.handleMeta("/trace")
	if !m.trace || !strings.Contains(output[0], "enabled") {
		t.Errorf("expected trace enabled, got %v", output)
	}
	output, _ = m.handleMeta("/trace")
	if m.trace || !strings.Contains(output[0], "disabled") {
		t.Errorf("expected trace disabled, got %v", output)
	}
}

func TestHandleMeta_State(t *testing.T) {
	m := newModel(t)
	output, _ := m.handleMeta("/state")
	joined := strings.Join(output, "\n")
	for _, want := range []string{"Turn: 0", "Location: kitchen", "Goal achieved: false", "at(orange,kitchen)"} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected %q in state output:\n%s", want, joined)
		}
	}
}

func TestHandleMeta_SaveThenLoad(t *testing.T) {
	m := newModel(t)
	m.play("take orange")
	m.handleMeta("/save slot")
	m.play("go north")

	output, _ := m.handleMeta("/load slot")
	joined := strings.Join(output, "\n")
	if !strings.Contains(joined, "Game loaded from slot (turn 1)") {
		t.Errorf("expected load confirmation, got %q", joined)
	}
	if got := m.engine.World.PlayerRoom(); got != "kitchen" {
		t.Errorf("PlayerRoom() = %q after load, want kitchen", got)
	}
	if !m.goalSeen {
		t.Error("goal reached in the saved game should count as seen")
	}
}

func TestPlay_GoalAnnouncedOnce(t *testing.T) {
	m := newModel(t)

	out := m.play("take orange")
	if out.failed {
		t.Fatalf("take orange failed: %v", out.lines)
	}
	if !strings.Contains(strings.Join(out.lines, "\n"), "achieved your goal") {
		t.Errorf("expected goal announcement, got %v", out.lines)
	}

	out = m.play("look")
	if strings.Contains(strings.Join(out.lines, "\n"), "achieved your goal") {
		t.Error("goal announced twice")
	}
}

func TestPlay_FailureAndTrace(t *testing.T) {
	m := newModel(t)
	m.trace = true

	out := m.play("xyzzy")
	if !out.failed {
		t.Error("expected unknown verb to fail")
	}

	out = m.play("take orange")
	joined := strings.Join(out.lines, "\n")
	if !strings.Contains(joined, "[trace] action=take") || !strings.Contains(joined, "+in(orange,inventory)") {
		t.Errorf("expected trace lines, got:\n%s", joined)
	}
}

func TestUpdate_EnterAndAgain(t *testing.T) {
	m := newModel(t)
	var tm tea.Model = m

	tm, _ = tm.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = tm.(Model)
	m.input.SetValue("wind clock")
	tm, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = tm.(Model)
	m.input.SetValue("g")
	tm, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = tm.(Model)

	if n, found, err := m.engine.World.Number("wound", "clock"); err != nil || !found || n != 2 {
		t.Errorf("wound(clock) = %d (found=%v, err=%v), want 2", n, found, err)
	}
	if m.lastCmd != "wind clock" {
		t.Errorf("lastCmd = %q, want %q", m.lastCmd, "wind clock")
	}
	if !strings.Contains(m.View(), "T:2") {
		t.Error("expected turn count in status bar")
	}
}

func TestStatusBar(t *testing.T) {
	m := newModel(t)
	m.width = 120
	m.play("take orange")

	bar := m.renderStatusBar()
	for _, want := range []string{"Kitchen", "Exits: north", "Inv: orange", "Goal", "T:1"} {
		if !strings.Contains(bar, want) {
			t.Errorf("expected %q in status bar %q", want, bar)
		}
	}
}
