package loader

import (
	"fmt"
	"sort"

	"github.com/nathoo/ifcore/engine/effects"
	"github.com/nathoo/ifcore/engine/rules"
	"github.com/nathoo/ifcore/engine/state"
	"github.com/nathoo/ifcore/types"
)

// validator checks compiled definitions against their own schema.
type validator struct {
	defs *state.Defs
	errs []string
}

func (v *validator) errorf(format string, args ...any) {
	v.errs = append(v.errs, fmt.Sprintf(format, args...))
}

// scope maps variable names to their declared types.
type scope map[string]string

func (s scope) with(name, typ string) scope {
	out := make(scope, len(s)+1)
	for k, t := range s {
		out[k] = t
	}
	out[name] = typ
	return out
}

// validate checks referential integrity and use-site typing of defs.
func validate(defs *state.Defs) error {
	v := &validator{defs: defs}

	if defs.Game.Title == "" {
		v.errorf("game title is required")
	}

	for _, name := range sortedKeys(defs.Types) {
		t := defs.Types[name]
		if t.Super == "" {
			continue
		}
		if _, ok := defs.Types[t.Super]; !ok {
			v.errorf("type %q: undeclared supertype %q", name, t.Super)
			continue
		}
		if typeCycle(defs, name) {
			v.errorf("type %q: supertype chain loops", name)
		}
	}

	for _, name := range sortedKeys(defs.Predicates) {
		for _, p := range defs.Predicates[name].Params {
			v.checkType("predicate "+name, p.Type)
		}
	}

	for _, id := range defs.EntityOrder {
		e := defs.Entities[id]
		if e.Type == types.NumberType {
			v.errorf("entity %q: cannot have type number", id)
			continue
		}
		v.checkType("entity "+id, e.Type)
	}

	for _, a := range defs.Actions {
		ctx := "action " + a.ID
		sc := v.paramScope(ctx, a.Params)
		for _, p := range a.Params {
			switch p.Source {
			case types.SourcePlayer, types.SourceRoom, types.SourceInventory:
				if p.Type == types.NumberType {
					v.errorf("%s: parameter %q bound from %s cannot be a number", ctx, p.Name, p.Source)
				}
			}
		}
		v.condition(ctx+": pre", a.Pre, sc)
		v.effect(ctx+": effect", a.Effect, effectScope(a.Params, sc, a.Pre))
		v.conflicts(ctx+": effect", a.Effect)
	}

	for _, ev := range defs.Events {
		ctx := "event " + ev.ID
		sc := v.paramScope(ctx, ev.Params)
		v.condition(ctx+": trigger", ev.Trigger, sc)
		v.condition(ctx+": pre", ev.Pre, sc)
		v.effect(ctx+": effect", ev.Effect, effectScope(ev.Params, sc, ev.Trigger, ev.Pre))
		v.conflicts(ctx+": effect", ev.Effect)
	}

	for _, f := range defs.Init {
		v.fact("init", f)
	}
	for _, f := range defs.Goal {
		v.fact("goal", f)
	}

	if len(v.errs) > 0 {
		return &AuthoringError{Errors: v.errs}
	}
	return nil
}

func typeCycle(defs *state.Defs, name string) bool {
	seen := map[string]bool{}
	for t := name; t != ""; t = defs.Types[t].Super {
		if seen[t] {
			return true
		}
		seen[t] = true
	}
	return false
}

func (v *validator) checkType(ctx, typ string) bool {
	if typ == types.NumberType {
		return true
	}
	if _, ok := v.defs.Types[typ]; !ok {
		v.errorf("%s: undeclared type %q", ctx, typ)
		return false
	}
	return true
}

func (v *validator) paramScope(ctx string, params []types.Param) scope {
	sc := scope{}
	for _, p := range params {
		v.checkType(ctx, p.Type)
		sc[p.Name] = p.Type
	}
	return sc
}

// effectScope narrows sc to the parameters an effect can rely on: those
// bound from the command or the player, and free ones bound by a positive
// match in one of conds.
func effectScope(params []types.Param, sc scope, conds ...types.Condition) scope {
	bound := map[string]bool{}
	for _, c := range conds {
		for name := range positiveVars(c) {
			bound[name] = true
		}
	}
	out := scope{}
	for _, p := range params {
		if p.Source != "" || bound[p.Name] {
			out[p.Name] = sc[p.Name]
		}
	}
	return out
}

// positiveVars returns the variables a satisfied condition always binds.
// Nothing under Not or Forall escapes; an Or binds only what every branch
// binds; Exists hides its own variable.
func positiveVars(c types.Condition) map[string]bool {
	out := map[string]bool{}
	switch n := c.(type) {
	case types.Match:
		for _, t := range n.Args {
			if t.Var {
				out[t.Name] = true
			}
		}
	case types.And:
		for _, ch := range n.Children {
			for name := range positiveVars(ch) {
				out[name] = true
			}
		}
	case types.Or:
		for i, ch := range n.Children {
			vars := positiveVars(ch)
			if i == 0 {
				out = vars
				continue
			}
			for name := range out {
				if !vars[name] {
					delete(out, name)
				}
			}
		}
	case types.Exists:
		out = positiveVars(n.Body)
		delete(out, n.Var)
	}
	return out
}

// compatible reports whether a variable of type have may be passed where
// want is expected: either type may be the more specific one.
func (v *validator) compatible(have, want string) bool {
	return v.defs.IsA(have, want) || v.defs.IsA(want, have)
}

// atom checks one predicate use: declared, right arity, bound variables,
// constants of the right type.
func (v *validator) atom(ctx, pred string, args []types.Term, sc scope) (types.PredicateDef, bool) {
	p, ok := v.defs.Predicates[pred]
	if !ok {
		v.errorf("%s: undeclared predicate or unknown node %q", ctx, pred)
		return p, false
	}
	if len(args) != len(p.Params) {
		v.errorf("%s: %s takes %d argument(s), got %d", ctx, pred, len(p.Params), len(args))
		return p, false
	}
	v.terms(ctx, pred, args, p.Params, sc)
	return p, true
}

func (v *validator) terms(ctx, pred string, args []types.Term, params []types.Param, sc scope) {
	for i, t := range args {
		want := params[i].Type
		if t.Var {
			have, ok := sc[t.Name]
			if !ok {
				v.errorf("%s: unbound variable ?%s in %s", ctx, t.Name, pred)
				continue
			}
			if !v.compatible(have, want) {
				v.errorf("%s: ?%s is a %s, %s argument %d wants %s", ctx, t.Name, have, pred, i+1, want)
			}
			continue
		}
		v.constant(ctx, pred, i, t.Name, want)
	}
}

func (v *validator) constant(ctx, pred string, i int, val, want string) {
	if want == types.NumberType {
		if !isDigits(val) {
			v.errorf("%s: %s argument %d: %q is not a number", ctx, pred, i+1, val)
		}
		return
	}
	e, ok := v.defs.Entities[val]
	if !ok {
		v.errorf("%s: %s argument %d: unknown entity %q", ctx, pred, i+1, val)
		return
	}
	if !v.defs.IsA(e.Type, want) {
		v.errorf("%s: %s argument %d: %s is a %s, want %s", ctx, pred, i+1, val, e.Type, want)
	}
}

// numeric checks a lookup of a numeric predicate, which omits the value.
func (v *validator) numeric(ctx, pred string, args []types.Term, sc scope) bool {
	p, ok := v.defs.Predicates[pred]
	if !ok {
		v.errorf("%s: undeclared predicate %q", ctx, pred)
		return false
	}
	if !p.Numeric() {
		v.errorf("%s: %s is not numeric", ctx, pred)
		return false
	}
	if len(args) != len(p.Params)-1 {
		v.errorf("%s: numeric %s takes %d argument(s), got %d", ctx, pred, len(p.Params)-1, len(args))
		return false
	}
	v.terms(ctx, pred, args, p.Params[:len(args)], sc)
	return true
}

func (v *validator) num(ctx string, x types.NumExpr, sc scope) {
	if x.Pred != "" {
		v.numeric(ctx, x.Pred, x.Args, sc)
	}
}

func (v *validator) quantifier(ctx, name, typ string, sc scope) scope {
	if typ == types.NumberType {
		v.errorf("%s: cannot quantify ?%s over numbers", ctx, name)
	} else {
		v.checkType(ctx, typ)
	}
	return sc.with(name, typ)
}

func (v *validator) condition(ctx string, c types.Condition, sc scope) {
	switch n := c.(type) {
	case nil:
	case types.And:
		for _, ch := range n.Children {
			v.condition(ctx, ch, sc)
		}
	case types.Or:
		for _, ch := range n.Children {
			v.condition(ctx, ch, sc)
		}
	case types.Not:
		v.condition(ctx, n.Child, sc)
	case types.Forall:
		v.condition(ctx, n.Body, v.quantifier(ctx, n.Var, n.Type, sc))
	case types.Exists:
		v.condition(ctx, n.Body, v.quantifier(ctx, n.Var, n.Type, sc))
	case types.NumComp:
		v.num(ctx, n.LHS, sc)
		v.num(ctx, n.RHS, sc)
	case types.Match:
		v.atom(ctx, n.Pred, n.Args, sc)
	default:
		v.errorf("%s: unknown condition node %T", ctx, c)
	}
}

func (v *validator) effect(ctx string, e types.Effect, sc scope) {
	switch n := e.(type) {
	case nil:
	case types.AndEffect:
		for _, ch := range n.Children {
			v.effect(ctx, ch, sc)
		}
	case types.Add:
		v.mutable(ctx, n.Pred, n.Args, sc)
	case types.Remove:
		v.mutable(ctx, n.Pred, n.Args, sc)
	case types.When:
		v.condition(ctx, n.Cond, sc)
		v.effect(ctx, n.Body, sc)
	case types.ForallEffect:
		v.effect(ctx, n.Body, v.quantifier(ctx, n.Var, n.Type, sc))
	case types.NumUpdate:
		if v.numeric(ctx, n.Pred, n.Args, sc) && !v.defs.Predicates[n.Pred].Mutable {
			v.errorf("%s: %s is not mutable", ctx, n.Pred)
		}
		v.num(ctx, n.Amount, sc)
	default:
		v.errorf("%s: unknown effect node %T", ctx, e)
	}
}

func (v *validator) mutable(ctx, pred string, args []types.Term, sc scope) {
	if p, ok := v.atom(ctx, pred, args, sc); ok && !p.Mutable {
		v.errorf("%s: %s is not mutable", ctx, pred)
	}
}

// conflicts rejects an unconditional add and remove of the same atom,
// including inside forall bodies. When bodies are conditional and skipped.
func (v *validator) conflicts(ctx string, e types.Effect) {
	adds := map[string]bool{}
	removes := map[string]bool{}
	var walk func(types.Effect)
	walk = func(e types.Effect) {
		switch n := e.(type) {
		case types.AndEffect:
			for _, ch := range n.Children {
				walk(ch)
			}
		case types.ForallEffect:
			walk(n.Body)
		case types.Add:
			adds[effects.Format(n)] = true
		case types.Remove:
			removes[effects.Format(types.Add{Pred: n.Pred, Args: n.Args})] = true
		}
	}
	walk(e)
	for _, k := range sortedKeys(adds) {
		if removes[k] {
			v.errorf("%s: %s is both added and removed", ctx, k)
		}
	}
}

// fact checks a ground fact from the init or goal list.
func (v *validator) fact(ctx string, f types.Fact) {
	p, ok := v.defs.Predicates[f.Pred]
	if !ok {
		v.errorf("%s: %s: undeclared predicate", ctx, f)
		return
	}
	if len(f.Args) != len(p.Params) {
		v.errorf("%s: %s: %s takes %d argument(s)", ctx, f, f.Pred, len(p.Params))
		return
	}
	for i, a := range f.Args {
		v.constant(ctx+": "+f.String(), f.Pred, i, a, p.Params[i].Type)
	}
}

// Lint returns non-fatal problems: definitions that load but are probably
// mistakes.
func Lint(defs *state.Defs) []string {
	var warnings []string
	for _, a := range defs.Actions {
		if len(a.Verbs) == 0 {
			warnings = append(warnings, fmt.Sprintf("action %q has no verbs and can never be used", a.ID))
		}
		if a.Effect == nil && a.Feedback == "" {
			warnings = append(warnings, fmt.Sprintf("action %q has no effect and no feedback", a.ID))
		}
	}
	for _, ev := range defs.Events {
		if len(rules.Matches(ev.Trigger)) == 0 {
			warnings = append(warnings, fmt.Sprintf("event %q trigger has no predicate to watch and never fires", ev.ID))
		}
	}
	if len(defs.Goal) == 0 {
		warnings = append(warnings, "game has no goal facts")
	}
	for _, id := range defs.EntityOrder {
		if defs.Entities[id].Name == "" {
			warnings = append(warnings, fmt.Sprintf("entity %q has no name; players must type its id", id))
		}
	}
	return warnings
}

func isDigits(s string) bool {
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

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
