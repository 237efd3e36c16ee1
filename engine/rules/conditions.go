// Package rules evaluates condition trees against a world state.
//
// Evaluation returns the set of binding environments under which a
// condition holds; an empty set means it does not hold.
package rules

import (
	"fmt"
	"strings"

	"github.com/nathoo/ifcore/engine/state"
	"github.com/nathoo/ifcore/types"
)

// EvaluationError reports a runtime invariant violation while evaluating
// a condition or compiling an effect.
type EvaluationError struct {
	Node     string // formatted subtree
	Bindings types.Bindings
	Reason   string
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluation: %s in %s with %s", e.Reason, e.Node, FormatBindings(e.Bindings))
}

// Eval evaluates c under env. Conditions hold iff the returned slice is non-empty.
func Eval(c types.Condition, w *state.World, env types.Bindings) ([]types.Bindings, error) {
	if env == nil {
		env = types.Bindings{}
	}
	switch n := c.(type) {
	case nil:
		return []types.Bindings{env}, nil

	case types.Match:
		return evalMatch(n, w, env), nil

	case types.And:
		sets := []types.Bindings{env}
		for _, child := range n.Children {
			var next []types.Bindings
			for _, b := range sets {
				r, err := Eval(child, w, b)
				if err != nil {
					return nil, err
				}
				next = append(next, r...)
			}
			if len(next) == 0 {
				return nil, nil
			}
			sets = next
		}
		return sets, nil

	case types.Or:
		for _, child := range n.Children {
			r, err := Eval(child, w, env)
			if err != nil {
				return nil, err
			}
			if len(r) > 0 {
				return r, nil
			}
		}
		return nil, nil

	case types.Not:
		r, err := Eval(n.Child, w, env)
		if err != nil {
			return nil, err
		}
		if len(r) > 0 {
			return nil, nil
		}
		return []types.Bindings{env}, nil

	case types.Forall:
		for _, id := range w.Entities(n.Type) {
			r, err := Eval(n.Body, w, env.With(n.Var, id))
			if err != nil {
				return nil, err
			}
			if len(r) == 0 {
				return nil, nil
			}
		}
		return []types.Bindings{env}, nil

	case types.Exists:
		for _, id := range w.Entities(n.Type) {
			r, err := Eval(n.Body, w, env.With(n.Var, id))
			if err != nil {
				return nil, err
			}
			if len(r) > 0 {
				return []types.Bindings{scopeOut(r[0], n.Var, env)}, nil
			}
		}
		return nil, nil

	case types.NumComp:
		ok, err := evalNumComp(n, w, env)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		return []types.Bindings{env}, nil

	default:
		return nil, &EvaluationError{Node: fmt.Sprintf("%T", c), Bindings: env, Reason: "unknown condition node"}
	}
}

// Holds reports whether c is satisfied under env.
func Holds(c types.Condition, w *state.World, env types.Bindings) (bool, error) {
	r, err := Eval(c, w, env)
	return len(r) > 0, err
}

// First returns the first binding under which c holds, or nil.
func First(c types.Condition, w *state.World, env types.Bindings) (types.Bindings, error) {
	r, err := Eval(c, w, env)
	if err != nil || len(r) == 0 {
		return nil, err
	}
	return r[0], nil
}

// scopeOut drops the quantified variable, restoring the outer value if any.
func scopeOut(b types.Bindings, name string, outer types.Bindings) types.Bindings {
	out := make(types.Bindings, len(b))
	for k, v := range b {
		out[k] = v
	}
	if v, ok := outer[name]; ok {
		out[name] = v
	} else {
		delete(out, name)
	}
	return out
}

func evalNumComp(n types.NumComp, w *state.World, env types.Bindings) (bool, error) {
	lhs, err := NumValue(n.LHS, w, env)
	if err != nil {
		return false, withNode(err, n)
	}
	rhs, err := NumValue(n.RHS, w, env)
	if err != nil {
		return false, withNode(err, n)
	}
	switch n.Op {
	case types.OpEq:
		return lhs == rhs, nil
	case types.OpLt:
		return lhs < rhs, nil
	case types.OpLe:
		return lhs <= rhs, nil
	case types.OpGt:
		return lhs > rhs, nil
	case types.OpGe:
		return lhs >= rhs, nil
	}
	return false, &EvaluationError{Node: Format(n), Bindings: env, Reason: fmt.Sprintf("unknown comparison %q", n.Op)}
}

// NumValue resolves a numeric expression. A lookup of an absent numeric fact
// is an error; there is no implicit zero.
func NumValue(x types.NumExpr, w *state.World, env types.Bindings) (int, error) {
	if x.Pred == "" {
		return x.Literal, nil
	}
	args, err := Ground(x.Args, env)
	if err != nil {
		return 0, &EvaluationError{Node: formatLookup(x), Bindings: env, Reason: err.Error()}
	}
	v, found, err := w.Number(x.Pred, args...)
	if err != nil {
		return 0, &EvaluationError{Node: formatLookup(x), Bindings: env, Reason: err.Error()}
	}
	if !found {
		return 0, &EvaluationError{Node: formatLookup(x), Bindings: env, Reason: "missing numeric fact"}
	}
	return v, nil
}

func withNode(err error, c types.Condition) error {
	if ee, ok := err.(*EvaluationError); ok {
		ee.Node = Format(c)
	}
	return err
}

// Ground substitutes bound variables. Any unbound variable is an error.
func Ground(terms []types.Term, env types.Bindings) ([]string, error) {
	out := make([]string, len(terms))
	for i, t := range terms {
		if !t.Var {
			out[i] = t.Name
			continue
		}
		v, ok := env[t.Name]
		if !ok {
			return nil, fmt.Errorf("unbound variable ?%s", t.Name)
		}
		out[i] = v
	}
	return out, nil
}

// FormatBindings renders bindings sorted by variable name.
func FormatBindings(b types.Bindings) string {
	if len(b) == 0 {
		return "{}"
	}
	keys := sortedKeys(b)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = "?" + k + "=" + b[k]
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
