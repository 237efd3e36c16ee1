package rules

import (
	"github.com/nathoo/ifcore/engine/state"
	"github.com/nathoo/ifcore/types"
)

// Explain locates the failure to report for a condition that does not hold
// under env. It follows the failing path (the first failing And child, the
// first Forall counterexample) and returns the deepest annotated node on it
// together with the bindings in force there. An annotated Or or Exists reports
// itself since no single branch is to blame. An unannotated Or reports the
// branch whose annotation sits deepest, the earliest branch winning ties. It
// returns nil if no node on the path is annotated.
func Explain(c types.Condition, w *state.World, env types.Bindings) (*types.FailureSpec, types.Bindings) {
	if env == nil {
		env = types.Bindings{}
	}
	spec, b, _ := explain(c, w, env)
	return spec, b
}

// explain also returns the depth of the reported node below c.
func explain(c types.Condition, w *state.World, env types.Bindings) (*types.FailureSpec, types.Bindings, int) {
	switch n := c.(type) {
	case types.And:
		sets := []types.Bindings{env}
		for _, child := range n.Children {
			var next []types.Bindings
			for _, b := range sets {
				r, _ := Eval(child, w, b)
				next = append(next, r...)
			}
			if len(next) == 0 {
				if spec, b, d := explain(child, w, sets[0]); spec != nil {
					return spec, b, d + 1
				}
				return n.OnFail, sets[0], 0
			}
			sets = next
		}
		return n.OnFail, env, 0

	case types.Or:
		if n.OnFail != nil {
			return n.OnFail, env, 0
		}
		var (
			best  *types.FailureSpec
			bestB = env
			depth = -1
		)
		for _, child := range n.Children {
			if spec, b, d := explain(child, w, env); spec != nil && d > depth {
				best, bestB, depth = spec, b, d
			}
		}
		return best, bestB, depth + 1

	case types.Forall:
		for _, id := range w.Entities(n.Type) {
			inner := env.With(n.Var, id)
			if ok, _ := Holds(n.Body, w, inner); !ok {
				if spec, b, d := explain(n.Body, w, inner); spec != nil {
					return spec, b, d + 1
				}
				return n.OnFail, inner, 0
			}
		}
		return n.OnFail, env, 0

	case types.Exists:
		if n.OnFail != nil {
			return n.OnFail, env, 0
		}
		if ids := w.Entities(n.Type); len(ids) > 0 {
			spec, b, d := explain(n.Body, w, env.With(n.Var, ids[0]))
			return spec, b, d + 1
		}
		return nil, env, 0

	case nil:
		return nil, env, 0

	default:
		// Match, Not and NumComp report their own annotation.
		return c.Failure(), env, 0
	}
}
