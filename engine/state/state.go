// Package state holds the compiled game definitions and the mutable
// fact store each episode owns.
package state

import (
	"fmt"

	"github.com/nathoo/ifcore/types"
)

// Defs holds the immutable game definitions produced by the loader.
// A Defs value may be shared by any number of episodes.
type Defs struct {
	Game       types.GameInfo
	Types      map[string]types.TypeDef
	Predicates map[string]types.PredicateDef
	Entities   map[string]types.EntityDef
	Actions    []types.ActionDef // declaration order
	Events     []types.EventDef  // declaration order
	Init       []types.Fact
	Goal       []types.Fact
	Solution   []string // optional known-good command sequence

	// EntityOrder is the declaration order of entity ids. Quantifiers
	// enumerate entities in this order.
	EntityOrder []string
}

// NotFoundError reports a lookup miss for a definition id.
type NotFoundError struct {
	Kind string // "type", "predicate", "entity", "action"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Kind, e.ID)
}

// Entity returns the entity definition for id.
func (d *Defs) Entity(id string) (types.EntityDef, error) {
	e, ok := d.Entities[id]
	if !ok {
		return types.EntityDef{}, &NotFoundError{Kind: "entity", ID: id}
	}
	return e, nil
}

// Predicate returns the predicate definition for name.
func (d *Defs) Predicate(name string) (types.PredicateDef, error) {
	p, ok := d.Predicates[name]
	if !ok {
		return types.PredicateDef{}, &NotFoundError{Kind: "predicate", ID: name}
	}
	return p, nil
}

// IsA reports whether typ is want or one of its descendants.
// The built-in number type is only compatible with itself.
func (d *Defs) IsA(typ, want string) bool {
	seen := map[string]bool{}
	for typ != "" && !seen[typ] {
		if typ == want {
			return true
		}
		seen[typ] = true
		typ = d.Types[typ].Super
	}
	return false
}

// EntityIsA reports whether the entity's type is want or a subtype of it.
func (d *Defs) EntityIsA(id, want string) bool {
	e, ok := d.Entities[id]
	if !ok {
		return false
	}
	return d.IsA(e.Type, want)
}

// EntitiesOfType returns ids of entities of typ (or a subtype) in declaration order.
func (d *Defs) EntitiesOfType(typ string) []string {
	var out []string
	for _, id := range d.EntityOrder {
		if d.IsA(d.Entities[id].Type, typ) {
			out = append(out, id)
		}
	}
	return out
}

// ActionsForVerb returns the actions bound to verb in declaration order.
func (d *Defs) ActionsForVerb(verb string) []types.ActionDef {
	var out []types.ActionDef
	for _, a := range d.Actions {
		for _, v := range a.Verbs {
			if v == verb {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

// Name returns the display name of an entity, or the id itself for unknown ids
// and literals.
func (d *Defs) Name(id string) string {
	if e, ok := d.Entities[id]; ok {
		return e.DisplayName()
	}
	return id
}

// Conforms reports whether every bound parameter in b has a value of the
// parameter's declared type. Unbound parameters are ignored.
func (d *Defs) Conforms(params []types.Param, b types.Bindings) bool {
	for _, p := range params {
		val, ok := b[p.Name]
		if !ok {
			continue
		}
		if p.Type == types.NumberType {
			if !isNumber(val) {
				return false
			}
			continue
		}
		if !d.EntityIsA(val, p.Type) {
			return false
		}
	}
	return true
}

func isNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
