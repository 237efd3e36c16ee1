package engine

import (
	"sort"

	"github.com/nathoo/ifcore/engine/describe"
	"github.com/nathoo/ifcore/engine/state"
	"github.com/nathoo/ifcore/types"
)

// ExplorationStep is the player's knowledge after one turn. Turn 0 is the
// initial observation.
type ExplorationStep struct {
	Turn      int
	ActionID  string
	Perceived []types.Fact // what the player perceives after the turn
	Gained    []types.Fact // known now, unknown before the turn
	Known     int
}

// ExplorationInfo summarizes how much of the world the player has seen.
type ExplorationInfo struct {
	KnownEntities []string // entities with a known location, in declaration order
	TotalEntities int
	VisitedRooms  []string // in order of first visit
	TotalRooms    int
}

// Exploration accumulates perceived facts over an episode. A fact stays
// known until an applied change removes it.
type Exploration struct {
	known   map[string]types.Fact
	history []ExplorationStep
}

func newExploration(w *state.World) *Exploration {
	x := &Exploration{known: map[string]types.Fact{}}
	x.record(w, 0, "", types.ChangeSet{})
	return x
}

func (x *Exploration) record(w *state.World, turn int, actionID string, cs types.ChangeSet) ExplorationStep {
	prior := make(map[string]bool, len(x.known))
	for k := range x.known {
		prior[k] = true
	}

	perceived := describe.Perceived(w)
	for _, f := range perceived {
		x.known[f.String()] = f
	}
	for _, f := range cs.Removed {
		delete(x.known, f.String())
	}

	st := ExplorationStep{Turn: turn, ActionID: actionID, Perceived: perceived, Known: len(x.known)}
	for _, f := range perceived {
		k := f.String()
		if _, ok := x.known[k]; ok && !prior[k] {
			st.Gained = append(st.Gained, f)
		}
	}
	x.history = append(x.history, st)
	return st
}

// History returns one step per recorded turn, oldest first.
func (x *Exploration) History() []ExplorationStep {
	return append([]ExplorationStep(nil), x.history...)
}

// Last returns the most recent step.
func (x *Exploration) Last() ExplorationStep {
	return x.history[len(x.history)-1]
}

// Known returns the facts currently known, sorted.
func (x *Exploration) Known() []types.Fact {
	out := make([]types.Fact, 0, len(x.known))
	for _, f := range x.known {
		out = append(out, f)
	}
	sortFacts(out)
	return out
}

// Info reports known entities and visited rooms against the totals in w.
func (x *Exploration) Info(w *state.World) ExplorationInfo {
	cfg := w.Config()
	defs := w.Defs()

	located := map[string]bool{}
	for _, f := range x.known {
		if f.Pred == cfg.Predicates.At && len(f.Args) == 2 {
			located[f.Args[0]] = true
		}
	}
	info := ExplorationInfo{
		TotalEntities: len(defs.EntityOrder),
		TotalRooms:    len(w.Entities(cfg.RoomType)),
	}
	for _, id := range defs.EntityOrder {
		if located[id] {
			info.KnownEntities = append(info.KnownEntities, id)
		}
	}

	visited := map[string]bool{}
	for _, st := range x.history {
		for _, f := range st.Perceived {
			if f.Pred != cfg.Predicates.At || len(f.Args) != 2 || f.Args[0] != cfg.PlayerID {
				continue
			}
			if room := f.Args[1]; !visited[room] {
				visited[room] = true
				info.VisitedRooms = append(info.VisitedRooms, room)
			}
		}
	}
	return info
}

func sortFacts(fs []types.Fact) {
	sort.Slice(fs, func(i, j int) bool { return fs[i].String() < fs[j].String() })
}
