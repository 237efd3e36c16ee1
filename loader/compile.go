package loader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nathoo/ifcore/engine/state"
	"github.com/nathoo/ifcore/types"
)

// AuthoringError collects every problem found while loading a game.
type AuthoringError struct {
	Errors []string
}

func (e *AuthoringError) Error() string {
	return fmt.Sprintf("game definition has %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

// compiler accumulates errors across the whole record so that authors see
// every problem at once.
type compiler struct {
	errs []string
}

func (c *compiler) errorf(format string, args ...any) {
	c.errs = append(c.errs, fmt.Sprintf(format, args...))
}

// compile converts a raw record into Defs. Syntax and duplicate-id problems
// are reported here; validate checks the compiled trees against the schema.
func compile(g *rawGame) (*state.Defs, error) {
	c := &compiler{}
	defs := &state.Defs{
		Game:       types.GameInfo{Title: g.Game.Title, Intro: g.Game.Intro},
		Types:      map[string]types.TypeDef{},
		Predicates: map[string]types.PredicateDef{},
		Entities:   map[string]types.EntityDef{},
		Solution:   g.Solution,
	}

	for _, t := range g.Types {
		switch {
		case t.Name == "":
			c.errorf("type with empty name")
		case t.Name == types.NumberType:
			c.errorf("type %q is built in", t.Name)
		case defs.Types[t.Name].Name != "":
			c.errorf("duplicate type %q", t.Name)
		default:
			defs.Types[t.Name] = types.TypeDef{Name: t.Name, Super: t.Super}
		}
	}

	for _, p := range g.Predicates {
		if p.Name == "" {
			c.errorf("predicate with empty name")
			continue
		}
		if _, dup := defs.Predicates[p.Name]; dup {
			c.errorf("duplicate predicate %q", p.Name)
			continue
		}
		defs.Predicates[p.Name] = types.PredicateDef{
			Name:    p.Name,
			Params:  c.params("predicate "+p.Name, p.Params, false),
			Mutable: p.Mutable,
		}
	}

	for _, e := range g.Entities {
		if e.ID == "" {
			c.errorf("entity with empty id")
			continue
		}
		if _, dup := defs.Entities[e.ID]; dup {
			c.errorf("duplicate entity %q", e.ID)
			continue
		}
		defs.Entities[e.ID] = types.EntityDef{
			ID:          e.ID,
			Type:        e.Type,
			Name:        e.Name,
			Adjs:        e.Adjs,
			Description: e.Description,
		}
		defs.EntityOrder = append(defs.EntityOrder, e.ID)
	}

	seen := map[string]bool{}
	for _, a := range g.Actions {
		ctx := "action " + a.ID
		if a.ID == "" || seen[a.ID] {
			c.errorf("missing or duplicate action id %q", a.ID)
			continue
		}
		seen[a.ID] = true
		defs.Actions = append(defs.Actions, types.ActionDef{
			ID:       a.ID,
			Verbs:    a.Verbs,
			Params:   c.params(ctx, a.Params, true),
			Pre:      c.conditionText(ctx+": pre", a.Pre),
			Effect:   c.effectText(ctx+": effect", a.Effect),
			Feedback: a.Feedback,
		})
	}

	seen = map[string]bool{}
	for _, ev := range g.Events {
		ctx := "event " + ev.ID
		if ev.ID == "" || seen[ev.ID] {
			c.errorf("missing or duplicate event id %q", ev.ID)
			continue
		}
		seen[ev.ID] = true
		if strings.TrimSpace(ev.Trigger) == "" {
			c.errorf("%s: trigger is required", ctx)
		}
		defs.Events = append(defs.Events, types.EventDef{
			ID:       ev.ID,
			Params:   c.params(ctx, ev.Params, false),
			Trigger:  c.conditionText(ctx+": trigger", ev.Trigger),
			Pre:      c.conditionText(ctx+": pre", ev.Pre),
			Effect:   c.effectText(ctx+": effect", ev.Effect),
			Feedback: ev.Feedback,
		})
	}

	defs.Init = c.facts("init", g.Init)
	defs.Goal = c.facts("goal", g.Goal)

	if len(c.errs) > 0 {
		return nil, &AuthoringError{Errors: c.errs}
	}
	return defs, nil
}

var validSources = map[string]bool{
	"":                    true,
	types.SourceArg1:      true,
	types.SourceArg2:      true,
	types.SourcePlayer:    true,
	types.SourceRoom:      true,
	types.SourceInventory: true,
}

func (c *compiler) params(ctx string, raw []rawParam, sources bool) []types.Param {
	out := make([]types.Param, 0, len(raw))
	names := map[string]bool{}
	for i, p := range raw {
		name := strings.TrimPrefix(p.Name, "?")
		if name == "" {
			name = fmt.Sprintf("_%d", i+1)
		}
		if names[name] {
			c.errorf("%s: duplicate parameter %q", ctx, name)
		}
		names[name] = true
		if p.Type == "" {
			c.errorf("%s: parameter %q has no type", ctx, name)
		}
		if p.Source != "" && (!sources || !validSources[p.Source]) {
			c.errorf("%s: parameter %q has unknown source %q", ctx, name, p.Source)
		}
		out = append(out, types.Param{Name: name, Type: p.Type, Source: p.Source})
	}
	return out
}

func (c *compiler) facts(ctx string, raw []string) []types.Fact {
	var out []types.Fact
	for _, s := range raw {
		f, err := types.ParseFact(s)
		if err != nil {
			c.errorf("%s: %v", ctx, err)
			continue
		}
		out = append(out, f)
	}
	return out
}

// conditionText parses and compiles an optional condition. Empty text is nil,
// which always holds.
func (c *compiler) conditionText(ctx, src string) types.Condition {
	if strings.TrimSpace(src) == "" {
		return nil
	}
	s, err := parseSexp(src)
	if err != nil {
		c.errorf("%s: %v", ctx, err)
		return nil
	}
	cond, err := compileCondition(s)
	if err != nil {
		c.errorf("%s: %v", ctx, err)
		return nil
	}
	return cond
}

func (c *compiler) effectText(ctx, src string) types.Effect {
	if strings.TrimSpace(src) == "" {
		return nil
	}
	s, err := parseSexp(src)
	if err != nil {
		c.errorf("%s: %v", ctx, err)
		return nil
	}
	eff, err := compileEffect(s)
	if err != nil {
		c.errorf("%s: %v", ctx, err)
		return nil
	}
	return eff
}

func syntaxErr(s sexp, format string, args ...any) error {
	return &SyntaxError{Pos: s.pos, Msg: fmt.Sprintf(format, args...)}
}

var numOps = map[string]string{
	"=":  types.OpEq,
	"<":  types.OpLt,
	"<=": types.OpLe,
	">":  types.OpGt,
	">=": types.OpGe,
}

// compileCondition converts an s-expression into a condition tree.
//
//	(and c...) (or c...) (not c)
//	(forall (?v - type) c) (exists (?v - type) c)
//	(< num num) and the other comparisons; num is a literal or (pred args...)
//	(fail kind "feedback" c)
//	(pred args...)
func compileCondition(s sexp) (types.Condition, error) {
	if !s.isList {
		return nil, syntaxErr(s, "expected a condition, got %s", s)
	}
	head := s.head()
	args := s.list[min(1, len(s.list)):]
	switch head {
	case "":
		return nil, syntaxErr(s, "condition must start with a name: %s", s)
	case "and", "or":
		children := make([]types.Condition, 0, len(args))
		for _, a := range args {
			ch, err := compileCondition(a)
			if err != nil {
				return nil, err
			}
			children = append(children, ch)
		}
		if head == "and" {
			return types.And{Children: children}, nil
		}
		return types.Or{Children: children}, nil
	case "not":
		if len(args) != 1 {
			return nil, syntaxErr(s, "not takes one condition")
		}
		ch, err := compileCondition(args[0])
		if err != nil {
			return nil, err
		}
		return types.Not{Child: ch}, nil
	case "forall", "exists":
		if len(args) != 2 {
			return nil, syntaxErr(s, "%s takes a variable declaration and a body", head)
		}
		v, typ, err := compileDecl(args[0])
		if err != nil {
			return nil, err
		}
		body, err := compileCondition(args[1])
		if err != nil {
			return nil, err
		}
		if head == "forall" {
			return types.Forall{Var: v, Type: typ, Body: body}, nil
		}
		return types.Exists{Var: v, Type: typ, Body: body}, nil
	case "fail":
		if len(args) != 3 || args[0].isList || args[0].quoted || !args[1].quoted {
			return nil, syntaxErr(s, `annotation must be (fail kind "feedback" condition)`)
		}
		inner, err := compileCondition(args[2])
		if err != nil {
			return nil, err
		}
		return annotate(inner, &types.FailureSpec{Kind: args[0].atom, Feedback: args[1].atom}, s)
	}
	if op, ok := numOps[head]; ok {
		if len(args) != 2 {
			return nil, syntaxErr(s, "%s takes two operands", head)
		}
		lhs, err := compileNum(args[0])
		if err != nil {
			return nil, err
		}
		rhs, err := compileNum(args[1])
		if err != nil {
			return nil, err
		}
		return types.NumComp{Op: op, LHS: lhs, RHS: rhs}, nil
	}
	terms, err := compileTerms(args)
	if err != nil {
		return nil, err
	}
	return types.Match{Pred: head, Args: terms}, nil
}

// annotate attaches a failure spec to a condition node.
func annotate(c types.Condition, spec *types.FailureSpec, at sexp) (types.Condition, error) {
	if c != nil && c.Failure() != nil {
		return nil, syntaxErr(at, "condition is already annotated")
	}
	a := types.Annotated{OnFail: spec}
	switch n := c.(type) {
	case types.And:
		n.Annotated = a
		return n, nil
	case types.Or:
		n.Annotated = a
		return n, nil
	case types.Not:
		n.Annotated = a
		return n, nil
	case types.Forall:
		n.Annotated = a
		return n, nil
	case types.Exists:
		n.Annotated = a
		return n, nil
	case types.NumComp:
		n.Annotated = a
		return n, nil
	case types.Match:
		n.Annotated = a
		return n, nil
	}
	return nil, syntaxErr(at, "cannot annotate %T", c)
}

func compileDecl(s sexp) (string, string, error) {
	if !s.isList || len(s.list) != 3 || s.list[1].atom != "-" {
		return "", "", syntaxErr(s, "expected (?var - type), got %s", s)
	}
	v, typ := s.list[0], s.list[2]
	if v.isList || v.quoted || !strings.HasPrefix(v.atom, "?") || len(v.atom) < 2 {
		return "", "", syntaxErr(v, "expected a ?variable, got %s", v)
	}
	if typ.isList || typ.quoted || typ.atom == "" {
		return "", "", syntaxErr(typ, "expected a type name, got %s", typ)
	}
	return v.atom[1:], typ.atom, nil
}

func compileTerms(args []sexp) ([]types.Term, error) {
	out := make([]types.Term, 0, len(args))
	for _, a := range args {
		if a.isList {
			return nil, syntaxErr(a, "expected a variable or constant, got %s", a)
		}
		if !a.quoted && strings.HasPrefix(a.atom, "?") {
			if len(a.atom) < 2 {
				return nil, syntaxErr(a, "empty variable name")
			}
			out = append(out, types.V(a.atom[1:]))
			continue
		}
		out = append(out, types.C(a.atom))
	}
	return out, nil
}

func compileNum(s sexp) (types.NumExpr, error) {
	if !s.isList {
		n, err := strconv.Atoi(s.atom)
		if err != nil || s.quoted {
			return types.NumExpr{}, syntaxErr(s, "expected an integer or (pred args...), got %s", s)
		}
		return types.NumExpr{Literal: n}, nil
	}
	head := s.head()
	if head == "" {
		return types.NumExpr{}, syntaxErr(s, "numeric lookup must start with a predicate name")
	}
	terms, err := compileTerms(s.list[1:])
	if err != nil {
		return types.NumExpr{}, err
	}
	return types.NumExpr{Pred: head, Args: terms}, nil
}

var numUpdates = map[string]string{
	"increase": types.OpIncrease,
	"decrease": types.OpDecrease,
	"assign":   types.OpAssign,
}

// compileEffect converts an s-expression into an effect tree.
//
//	(and e...) (pred args...) (not (pred args...))
//	(when c e) (forall (?v - type) e)
//	(increase (pred args...) num) and decrease, assign
func compileEffect(s sexp) (types.Effect, error) {
	if !s.isList {
		return nil, syntaxErr(s, "expected an effect, got %s", s)
	}
	head := s.head()
	args := s.list[min(1, len(s.list)):]
	switch head {
	case "":
		return nil, syntaxErr(s, "effect must start with a name: %s", s)
	case "and":
		children := make([]types.Effect, 0, len(args))
		for _, a := range args {
			ch, err := compileEffect(a)
			if err != nil {
				return nil, err
			}
			children = append(children, ch)
		}
		return types.AndEffect{Children: children}, nil
	case "not":
		if len(args) != 1 || args[0].head() == "" {
			return nil, syntaxErr(s, "not in an effect takes one (pred args...)")
		}
		terms, err := compileTerms(args[0].list[1:])
		if err != nil {
			return nil, err
		}
		return types.Remove{Pred: args[0].head(), Args: terms}, nil
	case "when":
		if len(args) != 2 {
			return nil, syntaxErr(s, "when takes a condition and an effect")
		}
		cond, err := compileCondition(args[0])
		if err != nil {
			return nil, err
		}
		body, err := compileEffect(args[1])
		if err != nil {
			return nil, err
		}
		return types.When{Cond: cond, Body: body}, nil
	case "forall":
		if len(args) != 2 {
			return nil, syntaxErr(s, "forall takes a variable declaration and an effect")
		}
		v, typ, err := compileDecl(args[0])
		if err != nil {
			return nil, err
		}
		body, err := compileEffect(args[1])
		if err != nil {
			return nil, err
		}
		return types.ForallEffect{Var: v, Type: typ, Body: body}, nil
	case "fail", "or", "exists":
		return nil, syntaxErr(s, "%s is not allowed in an effect", head)
	}
	if op, ok := numUpdates[head]; ok {
		if len(args) != 2 || args[0].head() == "" {
			return nil, syntaxErr(s, "%s takes (pred args...) and an amount", head)
		}
		terms, err := compileTerms(args[0].list[1:])
		if err != nil {
			return nil, err
		}
		amount, err := compileNum(args[1])
		if err != nil {
			return nil, err
		}
		return types.NumUpdate{Op: op, Pred: args[0].head(), Args: terms, Amount: amount}, nil
	}
	if _, ok := numOps[head]; ok {
		return nil, syntaxErr(s, "comparison %s is not an effect", head)
	}
	terms, err := compileTerms(args)
	if err != nil {
		return nil, err
	}
	return types.Add{Pred: head, Args: terms}, nil
}
