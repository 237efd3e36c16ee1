package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/ifcore/engine/describe"
)

// roomName returns the display name of the player's room.
func (m Model) roomName() string {
	room := m.engine.World.PlayerRoom()
	if room == "" {
		return "Nowhere"
	}
	def, err := m.engine.Defs.Entity(room)
	if err != nil {
		return room
	}
	return describe.Capitalize(def.DisplayName())
}

// exitNames lists the directions (or destinations, for undirected exits)
// leading out of the player's room.
func (m Model) exitNames() []string {
	w := m.engine.World
	pred := m.engine.Config.Predicates.Exit
	if pred == "" {
		return nil
	}
	var out []string
	for _, f := range w.Query(pred, w.PlayerRoom()) {
		switch len(f.Args) {
		case 2:
			out = append(out, m.engine.Defs.Name(f.Args[1]))
		case 3:
			out = append(out, m.engine.Defs.Name(f.Args[2]))
		}
	}
	return out
}

// heldNames lists what the player carries.
func (m Model) heldNames() []string {
	cfg := m.engine.Config
	held := m.engine.World.Children(cfg.Predicates.In, cfg.InventoryID)
	out := make([]string, 0, len(held))
	for _, id := range held {
		out = append(out, m.engine.Defs.Name(id))
	}
	return out
}

// renderStatusBar produces a full-width inverted status line showing the
// room, its exits, the inventory, turn count and goal state.
func (m Model) renderStatusBar() string {
	left := fmt.Sprintf(" %s | Exits: %s", m.roomName(), strings.Join(m.exitNames(), ","))

	turn := fmt.Sprintf("T:%d ", m.engine.Turn)
	if m.engine.GoalAchieved() {
		turn = "Goal | " + turn
	}
	right := turn

	// Show inventory items if they fit, otherwise just count.
	if held := m.heldNames(); len(held) > 0 {
		candidate := fmt.Sprintf("Inv: %s | %s", strings.Join(held, ", "), turn)
		if lipgloss.Width(left)+lipgloss.Width(candidate)+2 < m.width {
			right = candidate
		} else {
			right = fmt.Sprintf("Inv: %d | %s", len(held), turn)
		}
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return styleStatusBar.Width(m.width).Render(bar)
}
