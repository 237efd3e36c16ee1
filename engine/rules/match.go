package rules

import (
	"sort"
	"strconv"
	"strings"

	"github.com/nathoo/ifcore/engine/state"
	"github.com/nathoo/ifcore/types"
)

// evalMatch substitutes bound variables and enumerates facts for the rest.
// Free positions are bound from each matching fact, in fact-key order.
func evalMatch(m types.Match, w *state.World, env types.Bindings) []types.Bindings {
	pattern := make([]string, len(m.Args))
	free := false
	for i, t := range m.Args {
		switch {
		case !t.Var:
			pattern[i] = t.Name
		case env[t.Name] != "":
			pattern[i] = env[t.Name]
		default:
			free = true
		}
	}

	if !free {
		if w.Contains(types.Fact{Pred: m.Pred, Args: pattern}) {
			return []types.Bindings{env}
		}
		return nil
	}

	var out []types.Bindings
	for _, f := range w.Query(m.Pred, pattern...) {
		if b, ok := Unify(m.Args, f, env); ok {
			out = append(out, b)
		}
	}
	return out
}

// Unify matches terms against a fact's arguments, extending env.
// Repeated variables must agree.
func Unify(terms []types.Term, f types.Fact, env types.Bindings) (types.Bindings, bool) {
	if len(terms) != len(f.Args) {
		return nil, false
	}
	out := make(types.Bindings, len(env)+len(terms))
	for k, v := range env {
		out[k] = v
	}
	for i, t := range terms {
		arg := f.Args[i]
		if !t.Var {
			if t.Name != arg {
				return nil, false
			}
			continue
		}
		if v, ok := out[t.Name]; ok {
			if v != arg {
				return nil, false
			}
			continue
		}
		out[t.Name] = arg
	}
	return out, true
}

// Matches lists the Match leaves of a condition tree in source order.
func Matches(c types.Condition) []types.Match {
	var out []types.Match
	var walk func(types.Condition)
	walk = func(c types.Condition) {
		switch n := c.(type) {
		case types.Match:
			out = append(out, n)
		case types.And:
			for _, ch := range n.Children {
				walk(ch)
			}
		case types.Or:
			for _, ch := range n.Children {
				walk(ch)
			}
		case types.Not:
			walk(n.Child)
		case types.Forall:
			walk(n.Body)
		case types.Exists:
			walk(n.Body)
		}
	}
	walk(c)
	return out
}

// Format renders a condition in s-expression form.
func Format(c types.Condition) string {
	var sb strings.Builder
	format(&sb, c)
	return sb.String()
}

func format(sb *strings.Builder, c types.Condition) {
	switch n := c.(type) {
	case nil:
		sb.WriteString("(and)")
	case types.Match:
		sb.WriteString("(" + n.Pred)
		for _, t := range n.Args {
			sb.WriteString(" " + t.String())
		}
		sb.WriteString(")")
	case types.And:
		formatList(sb, "and", n.Children)
	case types.Or:
		formatList(sb, "or", n.Children)
	case types.Not:
		sb.WriteString("(not ")
		format(sb, n.Child)
		sb.WriteString(")")
	case types.Forall:
		sb.WriteString("(forall (?" + n.Var + " - " + n.Type + ") ")
		format(sb, n.Body)
		sb.WriteString(")")
	case types.Exists:
		sb.WriteString("(exists (?" + n.Var + " - " + n.Type + ") ")
		format(sb, n.Body)
		sb.WriteString(")")
	case types.NumComp:
		sb.WriteString("(" + n.Op + " " + formatNum(n.LHS) + " " + formatNum(n.RHS) + ")")
	}
}

func formatList(sb *strings.Builder, op string, children []types.Condition) {
	sb.WriteString("(" + op)
	for _, ch := range children {
		sb.WriteString(" ")
		format(sb, ch)
	}
	sb.WriteString(")")
}

func formatNum(x types.NumExpr) string {
	if x.Pred == "" {
		return strconv.Itoa(x.Literal)
	}
	return formatLookup(x)
}

func formatLookup(x types.NumExpr) string {
	parts := []string{x.Pred}
	for _, t := range x.Args {
		parts = append(parts, t.String())
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func sortedKeys(b types.Bindings) []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
