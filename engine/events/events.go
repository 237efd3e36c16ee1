// Package events runs the post-turn cascade of reactive event templates.
//
// An event is considered only when a fact in the current change set unifies
// with one of its trigger's predicate leaves, so standing conditions do not
// refire every turn. Firing applies the event's effect and feeds the
// resulting change set into the next pass.
package events

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nathoo/ifcore/engine/effects"
	"github.com/nathoo/ifcore/engine/rules"
	"github.com/nathoo/ifcore/engine/state"
	"github.com/nathoo/ifcore/types"
)

// DefaultMaxDepth is the cascade bound used when none is configured.
const DefaultMaxDepth = 10

// EngineError reports a cascade that did not settle within the depth bound.
type EngineError struct {
	Depth   int
	EventID string // last event that fired
	Pending types.ChangeSet
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("events: cascade exceeded depth %d (last fired %q, %d facts still changing)",
		e.Depth, e.EventID, len(e.Pending.Added)+len(e.Pending.Removed))
}

// Fired records one event firing.
type Fired struct {
	EventID  string
	Feedback string // unrendered template
	Bindings types.Bindings
	Changes  types.ChangeSet
}

// Engine evaluates event templates in declaration order.
type Engine struct {
	Events   []types.EventDef
	MaxDepth int
	Log      *zap.Logger
}

// New creates an event engine for the given templates.
func New(evs []types.EventDef, maxDepth int, log *zap.Logger) *Engine {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{Events: evs, MaxDepth: maxDepth, Log: log}
}

// Run cascades from cs until no event fires. It returns the firings in order
// and the combined change set of all of them. Exceeding MaxDepth passes
// returns an *EngineError; a containment cycle returns the *state.StateError.
// Evaluation errors inside a single event are logged and that event skipped.
func (e *Engine) Run(w *state.World, cs types.ChangeSet) ([]Fired, types.ChangeSet, error) {
	var (
		fired []Fired
		total types.ChangeSet
		last  string
	)
	pending := cs
	for pass := 1; !pending.Empty(); pass++ {
		if pass > e.MaxDepth {
			return fired, total, &EngineError{Depth: e.MaxDepth, EventID: last, Pending: pending}
		}

		var next types.ChangeSet
		for _, ev := range e.Events {
			b, err := e.triggered(ev, w, pending)
			if err != nil {
				e.Log.Warn("event trigger evaluation failed",
					zap.String("event", ev.ID), zap.Int("pass", pass), zap.Error(err))
				continue
			}
			if b == nil {
				continue
			}

			changes, err := effects.Apply(ev.Effect, w, b)
			if err != nil {
				if errors.Is(err, state.ErrCyclicContainment) {
					return fired, total, err
				}
				e.Log.Warn("event effect rejected",
					zap.String("event", ev.ID),
					zap.String("effect", effects.Format(ev.Effect)),
					zap.String("bindings", rules.FormatBindings(b)),
					zap.Error(err))
				continue
			}

			e.Log.Debug("event fired", zap.String("event", ev.ID), zap.Int("pass", pass),
				zap.String("bindings", rules.FormatBindings(b)))
			fired = append(fired, Fired{EventID: ev.ID, Feedback: ev.Feedback, Bindings: b, Changes: changes})
			next.Merge(changes)
			total.Merge(changes)
			last = ev.ID
		}
		pending = next
	}
	return fired, total, nil
}

// triggered returns the first binding under which ev fires for cs, or nil.
// Each changed fact that unifies with a trigger leaf seeds the evaluation.
func (e *Engine) triggered(ev types.EventDef, w *state.World, cs types.ChangeSet) (types.Bindings, error) {
	leaves := rules.Matches(ev.Trigger)
	cond := types.And{Children: []types.Condition{ev.Trigger, ev.Pre}}
	changed := append(append([]types.Fact(nil), cs.Added...), cs.Removed...)

	for _, f := range changed {
		for _, leaf := range leaves {
			if leaf.Pred != f.Pred {
				continue
			}
			seed, ok := rules.Unify(leaf.Args, f, types.Bindings{})
			if !ok || !w.Defs().Conforms(ev.Params, seed) {
				continue
			}
			bs, err := rules.Eval(cond, w, seed)
			if err != nil {
				return nil, err
			}
			for _, b := range bs {
				if w.Defs().Conforms(ev.Params, b) {
					return b, nil
				}
			}
		}
	}
	return nil, nil
}
