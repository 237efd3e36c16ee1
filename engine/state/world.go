package state

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/nathoo/ifcore/config"
	"github.com/nathoo/ifcore/types"
)

// ErrCyclicContainment is wrapped by StateErrors rejecting a batch that would
// make the containment relations form a cycle.
var ErrCyclicContainment = errors.New("cyclic containment")

// StateError reports a rejected mutation. No part of the batch was committed.
type StateError struct {
	Op     string // "add", "remove", "init"
	Fact   types.Fact
	Reason string
	Err    error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("state: %s %s: %s", e.Op, e.Fact, e.Reason)
}

func (e *StateError) Unwrap() error { return e.Err }

// World is the fact set of one episode. It is not safe for concurrent use.
type World struct {
	defs   *Defs
	cfg    config.Config
	byPred map[string]map[string]types.Fact
}

// New builds a world from initial facts. Initial facts are schema-checked but
// may use immutable predicates.
func New(defs *Defs, cfg config.Config, init []types.Fact) (*World, error) {
	w := &World{
		defs:   defs,
		cfg:    cfg,
		byPred: make(map[string]map[string]types.Fact),
	}
	for _, f := range init {
		if err := w.checkFact("init", f); err != nil {
			return nil, err
		}
		w.insert(f)
	}
	if err := w.checkInvariants(nil, nil); err != nil {
		return nil, err
	}
	return w, nil
}

// Defs returns the definitions the world was built from.
func (w *World) Defs() *Defs { return w.defs }

// Config returns the configuration the world was built with.
func (w *World) Config() config.Config { return w.cfg }

// Contains reports whether f is in the world.
func (w *World) Contains(f types.Fact) bool {
	_, ok := w.byPred[f.Pred][f.String()]
	return ok
}

// Query returns facts of pred matching args, where "" is a wildcard and
// missing trailing positions match anything. Results are sorted by fact key.
func (w *World) Query(pred string, args ...string) []types.Fact {
	var out []types.Fact
	for _, f := range w.byPred[pred] {
		if matchArgs(f.Args, args) {
			out = append(out, f)
		}
	}
	sortFacts(out)
	return out
}

func matchArgs(have, want []string) bool {
	if len(want) > len(have) {
		return false
	}
	for i, a := range want {
		if a != "" && a != have[i] {
			return false
		}
	}
	return true
}

// Number returns the value stored by numeric predicate pred for args.
// found is false when no such fact exists.
func (w *World) Number(pred string, args ...string) (value int, found bool, err error) {
	facts := w.Query(pred, args...)
	switch len(facts) {
	case 0:
		return 0, false, nil
	case 1:
	default:
		return 0, true, fmt.Errorf("numeric %s%v has %d values", pred, args, len(facts))
	}
	f := facts[0]
	if len(f.Args) != len(args)+1 {
		return 0, true, fmt.Errorf("numeric lookup %s%v: arity %d", pred, args, len(f.Args))
	}
	n, err := strconv.Atoi(f.Args[len(f.Args)-1])
	if err != nil {
		return 0, true, fmt.Errorf("numeric %s is not an integer", f)
	}
	return n, true, nil
}

// Facts returns every fact sorted by key.
func (w *World) Facts() []types.Fact {
	var out []types.Fact
	for _, set := range w.byPred {
		for _, f := range set {
			out = append(out, f)
		}
	}
	sortFacts(out)
	return out
}

// Len returns the number of facts.
func (w *World) Len() int {
	n := 0
	for _, set := range w.byPred {
		n += len(set)
	}
	return n
}

// Clone returns an independent copy sharing the same definitions.
func (w *World) Clone() *World {
	c := &World{defs: w.defs, cfg: w.cfg, byPred: make(map[string]map[string]types.Fact, len(w.byPred))}
	for pred, set := range w.byPred {
		cs := make(map[string]types.Fact, len(set))
		for k, f := range set {
			cs[k] = f
		}
		c.byPred[pred] = cs
	}
	return c
}

// ContainsAll reports whether every fact in fs holds.
func (w *World) ContainsAll(fs []types.Fact) bool {
	for _, f := range fs {
		if !w.Contains(f) {
			return false
		}
	}
	return true
}

// Entities returns entity ids of typ or a subtype in declaration order.
func (w *World) Entities(typ string) []string {
	return w.defs.EntitiesOfType(typ)
}

// ApplyBatch validates all removes and adds and then commits them together.
// On error nothing is changed. The returned ChangeSet holds only facts whose
// presence actually changed.
func (w *World) ApplyBatch(adds, removes []types.Fact) (types.ChangeSet, error) {
	addKeys := make(map[string]bool, len(adds))
	for _, f := range adds {
		if err := w.checkMutation("add", f); err != nil {
			return types.ChangeSet{}, err
		}
		addKeys[f.String()] = true
	}
	for _, f := range removes {
		if err := w.checkMutation("remove", f); err != nil {
			return types.ChangeSet{}, err
		}
		if addKeys[f.String()] {
			return types.ChangeSet{}, &StateError{Op: "remove", Fact: f, Reason: "fact is also added in the same batch"}
		}
	}
	if err := w.checkInvariants(adds, removes); err != nil {
		return types.ChangeSet{}, err
	}

	var cs types.ChangeSet
	seen := map[string]bool{}
	for _, f := range removes {
		k := f.String()
		if seen[k] || !w.Contains(f) {
			continue
		}
		seen[k] = true
		delete(w.byPred[f.Pred], k)
		cs.Removed = append(cs.Removed, f)
	}
	for _, f := range adds {
		k := f.String()
		if seen[k] || w.Contains(f) {
			continue
		}
		seen[k] = true
		w.insert(f)
		cs.Added = append(cs.Added, f)
	}
	return cs, nil
}

func (w *World) insert(f types.Fact) {
	set, ok := w.byPred[f.Pred]
	if !ok {
		set = make(map[string]types.Fact)
		w.byPred[f.Pred] = set
	}
	set[f.String()] = types.Fact{Pred: f.Pred, Args: append([]string(nil), f.Args...)}
}

func (w *World) checkMutation(op string, f types.Fact) error {
	if err := w.checkFact(op, f); err != nil {
		return err
	}
	if !w.defs.Predicates[f.Pred].Mutable {
		return &StateError{Op: op, Fact: f, Reason: "predicate is not mutable"}
	}
	return nil
}

// checkFact verifies the fact against its predicate's declared arity and types.
func (w *World) checkFact(op string, f types.Fact) error {
	p, ok := w.defs.Predicates[f.Pred]
	if !ok {
		return &StateError{Op: op, Fact: f, Reason: "undeclared predicate", Err: &NotFoundError{Kind: "predicate", ID: f.Pred}}
	}
	if len(f.Args) != len(p.Params) {
		return &StateError{Op: op, Fact: f, Reason: fmt.Sprintf("arity %d, want %d", len(f.Args), len(p.Params))}
	}
	for i, arg := range f.Args {
		want := p.Params[i].Type
		if want == types.NumberType {
			if n, err := strconv.Atoi(arg); err != nil || n < 0 {
				return &StateError{Op: op, Fact: f, Reason: fmt.Sprintf("argument %d: %q is not a non-negative integer", i+1, arg)}
			}
			continue
		}
		e, ok := w.defs.Entities[arg]
		if !ok {
			return &StateError{Op: op, Fact: f, Reason: fmt.Sprintf("argument %d", i+1), Err: &NotFoundError{Kind: "entity", ID: arg}}
		}
		if !w.defs.IsA(e.Type, want) {
			return &StateError{Op: op, Fact: f, Reason: fmt.Sprintf("argument %d: %s is a %s, want %s", i+1, arg, e.Type, want)}
		}
	}
	return nil
}

// checkInvariants checks the hypothetical state after applying the batch:
// no containment cycle and no exclusive pair holding together.
func (w *World) checkInvariants(adds, removes []types.Fact) error {
	removed := make(map[string]bool, len(removes))
	for _, f := range removes {
		removed[f.String()] = true
	}
	holds := func(f types.Fact) bool {
		k := f.String()
		if removed[k] {
			return false
		}
		if w.Contains(f) {
			return true
		}
		for _, a := range adds {
			if a.String() == k {
				return true
			}
		}
		return false
	}

	// Containment graph: child -> parents.
	parents := map[string][]string{}
	addEdge := func(f types.Fact) {
		if w.cfg.IsContainment(f.Pred) && len(f.Args) == 2 {
			parents[f.Args[0]] = append(parents[f.Args[0]], f.Args[1])
		}
	}
	for _, pred := range []string{w.cfg.Predicates.In, w.cfg.Predicates.On} {
		for _, f := range w.byPred[pred] {
			if !removed[f.String()] {
				addEdge(f)
			}
		}
	}
	for _, f := range adds {
		if !w.Contains(f) {
			addEdge(f)
		}
	}
	if cycle := findCycle(parents); cycle != "" {
		f := types.Fact{Pred: w.cfg.Predicates.In, Args: []string{cycle}}
		for _, a := range adds {
			if w.cfg.IsContainment(a.Pred) {
				f = a
				break
			}
		}
		return &StateError{Op: "add", Fact: f, Reason: "containment cycle through " + cycle, Err: ErrCyclicContainment}
	}

	for _, pair := range w.cfg.Exclusive {
		for _, f := range w.candidatesFor(pair[0], adds) {
			other := types.Fact{Pred: pair[1], Args: f.Args}
			if holds(f) && holds(other) {
				return &StateError{Op: "add", Fact: f, Reason: fmt.Sprintf("%s and %s are exclusive", f, other)}
			}
		}
	}
	return nil
}

// candidatesFor lists current and pending facts of pred.
func (w *World) candidatesFor(pred string, adds []types.Fact) []types.Fact {
	var out []types.Fact
	for _, f := range w.byPred[pred] {
		out = append(out, f)
	}
	for _, f := range adds {
		if f.Pred == pred {
			out = append(out, f)
		}
	}
	return out
}

// findCycle returns a node on a cycle, or "".
func findCycle(parents map[string][]string) string {
	const (
		white = iota
		grey
		black
	)
	color := map[string]int{}
	var visit func(n string) string
	visit = func(n string) string {
		color[n] = grey
		for _, p := range parents[n] {
			switch color[p] {
			case grey:
				return p
			case white:
				if c := visit(p); c != "" {
					return c
				}
			}
		}
		color[n] = black
		return ""
	}

	nodes := make([]string, 0, len(parents))
	for n := range parents {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	for _, n := range nodes {
		if color[n] == white {
			if c := visit(n); c != "" {
				return c
			}
		}
	}
	return ""
}

func sortFacts(fs []types.Fact) {
	sort.Slice(fs, func(i, j int) bool { return fs[i].String() < fs[j].String() })
}
