package describe

import (
	"sort"

	"github.com/nathoo/ifcore/engine/state"
	"github.com/nathoo/ifcore/types"
)

// Visible returns the entities the player can see in room: everything at
// the room except the player, followed by one level of contents. Closed
// receptacles hide what is in them.
func Visible(w *state.World, room string) []string {
	cfg := w.Config()
	top := atRoom(w, room)
	seen := map[string]bool{}
	var out []string
	add := func(ids []string) {
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	add(top)
	for _, id := range top {
		add(w.Children(cfg.Predicates.On, id))
		if cfg.Predicates.Closed != "" && w.Contains(types.F(cfg.Predicates.Closed, id)) {
			continue
		}
		add(w.Children(cfg.Predicates.In, id))
	}
	return out
}

// Perceived returns the facts the player currently perceives, sorted: their
// own location, mutable facts about visible and carried entities and about
// the inventory itself, and the exits of their room.
func Perceived(w *state.World) []types.Fact {
	cfg := w.Config()
	room := w.PlayerRoom()
	if room == "" {
		return nil
	}

	seen := map[string]types.Fact{}
	add := func(f types.Fact) { seen[f.String()] = f }
	add(types.F(cfg.Predicates.At, cfg.PlayerID, room))

	subjects := map[string]bool{cfg.InventoryID: true}
	for _, id := range Visible(w, room) {
		subjects[id] = true
	}
	for _, id := range w.Children(cfg.Predicates.In, cfg.InventoryID) {
		subjects[id] = true
	}

	defs := w.Defs()
	for _, f := range w.Facts() {
		if len(f.Args) == 0 {
			continue
		}
		switch {
		case f.Pred == cfg.Predicates.Exit && f.Args[0] == room:
			add(f)
		case subjects[f.Args[0]] && defs.Predicates[f.Pred].Mutable:
			add(f)
		}
	}

	out := make([]types.Fact, 0, len(seen))
	for _, f := range seen {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func atRoom(w *state.World, room string) []string {
	cfg := w.Config()
	var out []string
	for _, id := range w.Defs().EntityOrder {
		if id == cfg.PlayerID || !w.Contains(types.F(cfg.Predicates.At, id, room)) {
			continue
		}
		out = append(out, id)
	}
	return out
}
