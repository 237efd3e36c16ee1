// Package types defines the shared data structures for the ifcore engine.
// Apart from fact formatting and the sealed node markers, it holds no logic.
package types

import (
	"fmt"
	"strings"
)

// NumberType is the built-in parameter type for non-negative integer literals.
const NumberType = "number"

// TypeDef is a named entity category with an optional supertype.
type TypeDef struct {
	Name  string
	Super string // "" for root types
}

// Param is a typed parameter of a predicate, action, or event.
type Param struct {
	Name   string // variable name without the leading "?"
	Type   string
	Source string // action parameters only: "arg1", "arg2", "player", "room", "inventory" or ""
}

// Parameter sources for action parameters.
const (
	SourceArg1      = "arg1"
	SourceArg2      = "arg2"
	SourcePlayer    = "player"
	SourceRoom      = "room"
	SourceInventory = "inventory"
)

// PredicateDef declares a relation with typed parameters.
type PredicateDef struct {
	Name    string
	Params  []Param
	Mutable bool
}

// Numeric reports whether the predicate stores an integer in its last position.
func (p PredicateDef) Numeric() bool {
	return len(p.Params) > 0 && p.Params[len(p.Params)-1].Type == NumberType
}

// EntityDef is a world entity instance.
type EntityDef struct {
	ID          string
	Type        string
	Name        string   // surface name used in commands, e.g. "orange"
	Adjs        []string // optional adjectives, e.g. "red"
	Description string
}

// DisplayName returns the adjectives and name joined, falling back to the ID.
func (e EntityDef) DisplayName() string {
	name := e.Name
	if name == "" {
		name = e.ID
	}
	if len(e.Adjs) == 0 {
		return name
	}
	return strings.Join(e.Adjs, " ") + " " + name
}

// Fact is a ground tuple asserting a relation between entities or literals.
type Fact struct {
	Pred string
	Args []string
}

// F is shorthand for building a Fact.
func F(pred string, args ...string) Fact {
	return Fact{Pred: pred, Args: args}
}

// String renders the fact as "pred(a,b)". The result doubles as the set key.
func (f Fact) String() string {
	return f.Pred + "(" + strings.Join(f.Args, ",") + ")"
}

// ParseFact reads a fact in "pred(a,b)" form. Whitespace around arguments is ignored.
func ParseFact(s string) (Fact, error) {
	s = strings.TrimSpace(s)
	open := strings.IndexByte(s, '(')
	if open <= 0 || !strings.HasSuffix(s, ")") {
		return Fact{}, fmt.Errorf("malformed fact %q", s)
	}
	f := Fact{Pred: strings.TrimSpace(s[:open])}
	inner := strings.TrimSpace(s[open+1 : len(s)-1])
	if inner == "" {
		return f, nil
	}
	for _, a := range strings.Split(inner, ",") {
		a = strings.TrimSpace(a)
		a = strings.Trim(a, `"`)
		if a == "" {
			return Fact{}, fmt.Errorf("malformed fact %q: empty argument", s)
		}
		f.Args = append(f.Args, a)
	}
	return f, nil
}

// ChangeSet lists the facts actually added and removed by one atomic update.
type ChangeSet struct {
	Added   []Fact
	Removed []Fact
}

// Empty reports whether the change set carries no changes.
func (c ChangeSet) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0
}

// Merge appends other's changes to c.
func (c *ChangeSet) Merge(other ChangeSet) {
	c.Added = append(c.Added, other.Added...)
	c.Removed = append(c.Removed, other.Removed...)
}

// ActionDef is a player action template.
type ActionDef struct {
	ID       string
	Verbs    []string
	Params   []Param
	Pre      Condition // nil means always applicable
	Effect   Effect    // nil means no state change
	Feedback string    // success template
}

// Arity returns how many command arguments the action consumes.
func (a ActionDef) Arity() int {
	n := 0
	for _, p := range a.Params {
		if p.Source == SourceArg1 || p.Source == SourceArg2 {
			n++
		}
	}
	return n
}

// EventDef is a reactive template fired by state changes.
type EventDef struct {
	ID       string
	Params   []Param
	Trigger  Condition
	Pre      Condition
	Effect   Effect
	Feedback string
}

// GameInfo is descriptive metadata about a game instance.
type GameInfo struct {
	Title string
	Intro string
}

// Command is the parsed form of a player's text input.
type Command struct {
	Verb   string
	Object string // optional
	Prep   string // preposition between object and target, optional
	Target string // optional
}
