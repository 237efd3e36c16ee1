// Package effects compiles effect trees into fact operations and commits
// them as one atomic batch.
package effects

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nathoo/ifcore/engine/rules"
	"github.com/nathoo/ifcore/engine/state"
	"github.com/nathoo/ifcore/types"
)

// Op is a single fact addition or removal.
type Op struct {
	Add  bool
	Fact types.Fact
}

func (o Op) String() string {
	if o.Add {
		return "+" + o.Fact.String()
	}
	return "-" + o.Fact.String()
}

// Compile walks the effect tree under env and returns its operations in
// declaration order. Nothing is mutated: every When condition and numeric
// amount sees the pre-effect state. Numeric updates of the same fact
// accumulate, so two increases by one raise the value by two; their ops
// follow all other ops.
func Compile(e types.Effect, w *state.World, env types.Bindings) ([]Op, error) {
	if env == nil {
		env = types.Bindings{}
	}
	c := &compiler{w: w, nums: map[string]*numTarget{}}
	ops, err := c.compile(e, env)
	if err != nil {
		return nil, err
	}
	return append(ops, c.numOps()...), nil
}

// compiler carries the running value of every numeric fact touched so far.
type compiler struct {
	w     *state.World
	nums  map[string]*numTarget
	order []string
}

type numTarget struct {
	pred  string
	args  []string
	found bool
	orig  int
	value int
}

func (c *compiler) compile(e types.Effect, env types.Bindings) ([]Op, error) {
	switch n := e.(type) {
	case nil:
		return nil, nil

	case types.AndEffect:
		var ops []Op
		for _, child := range n.Children {
			childOps, err := c.compile(child, env)
			if err != nil {
				return nil, err
			}
			ops = append(ops, childOps...)
		}
		return ops, nil

	case types.Add:
		f, err := ground(n.Pred, n.Args, env, e)
		if err != nil {
			return nil, err
		}
		return []Op{{Add: true, Fact: f}}, nil

	case types.Remove:
		f, err := ground(n.Pred, n.Args, env, e)
		if err != nil {
			return nil, err
		}
		return []Op{{Fact: f}}, nil

	case types.When:
		b, err := rules.First(n.Cond, c.w, env)
		if err != nil {
			return nil, err
		}
		if b == nil {
			return nil, nil
		}
		return c.compile(n.Body, b)

	case types.ForallEffect:
		var ops []Op
		for _, id := range c.w.Entities(n.Type) {
			childOps, err := c.compile(n.Body, env.With(n.Var, id))
			if err != nil {
				return nil, err
			}
			ops = append(ops, childOps...)
		}
		return ops, nil

	case types.NumUpdate:
		return nil, c.numUpdate(n, env)

	default:
		return nil, &rules.EvaluationError{Node: fmt.Sprintf("%T", e), Bindings: env, Reason: "unknown effect node"}
	}
}

func ground(pred string, args []types.Term, env types.Bindings, e types.Effect) (types.Fact, error) {
	vals, err := rules.Ground(args, env)
	if err != nil {
		return types.Fact{}, &rules.EvaluationError{Node: Format(e), Bindings: env, Reason: err.Error()}
	}
	return types.Fact{Pred: pred, Args: vals}, nil
}

// numUpdate folds n into the running value of its target.
func (c *compiler) numUpdate(n types.NumUpdate, env types.Bindings) error {
	fail := func(reason string) error {
		return &rules.EvaluationError{Node: Format(n), Bindings: env, Reason: reason}
	}

	args, err := rules.Ground(n.Args, env)
	if err != nil {
		return fail(err.Error())
	}
	key := types.Fact{Pred: n.Pred, Args: args}.String()
	t, ok := c.nums[key]
	if !ok {
		cur, found, err := c.w.Number(n.Pred, args...)
		if err != nil {
			return fail(err.Error())
		}
		t = &numTarget{pred: n.Pred, args: args, found: found, orig: cur, value: cur}
	}
	if !t.found && !ok && n.Op != types.OpAssign {
		return fail("missing numeric fact")
	}
	amount, err := rules.NumValue(n.Amount, c.w, env)
	if err != nil {
		return err
	}

	next := t.value
	switch n.Op {
	case types.OpIncrease:
		next += amount
	case types.OpDecrease:
		next -= amount
	case types.OpAssign:
		next = amount
	default:
		return fail(fmt.Sprintf("unknown numeric operator %q", n.Op))
	}
	if next < 0 {
		return fail(fmt.Sprintf("value would drop below zero (%d)", next))
	}

	t.value = next
	if !ok {
		c.nums[key] = t
		c.order = append(c.order, key)
	}
	return nil
}

// numOps turns the final numeric values into remove-old/add-new pairs.
// A value that ends where it started produces nothing.
func (c *compiler) numOps() []Op {
	var ops []Op
	for _, key := range c.order {
		t := c.nums[key]
		if t.found && t.value == t.orig {
			continue
		}
		if t.found {
			ops = append(ops, Op{Fact: numFact(t.pred, t.args, t.orig)})
		}
		ops = append(ops, Op{Add: true, Fact: numFact(t.pred, t.args, t.value)})
	}
	return ops
}

func numFact(pred string, args []string, v int) types.Fact {
	out := append(append([]string(nil), args...), strconv.Itoa(v))
	return types.Fact{Pred: pred, Args: out}
}

// Split separates ops into adds and removes, rejecting a fact that is both
// added and removed in the same application.
func Split(ops []Op) (adds, removes []types.Fact, err error) {
	added := map[string]bool{}
	removed := map[string]bool{}
	for _, op := range ops {
		k := op.Fact.String()
		if op.Add {
			added[k] = true
			adds = append(adds, op.Fact)
		} else {
			removed[k] = true
			removes = append(removes, op.Fact)
		}
		if added[k] && removed[k] {
			return nil, nil, fmt.Errorf("%s is both added and removed", k)
		}
	}
	return adds, removes, nil
}

// Apply compiles e under env and commits the result through the world's
// batch update. On any error the world is unchanged.
func Apply(e types.Effect, w *state.World, env types.Bindings) (types.ChangeSet, error) {
	ops, err := Compile(e, w, env)
	if err != nil {
		return types.ChangeSet{}, err
	}
	adds, removes, err := Split(ops)
	if err != nil {
		return types.ChangeSet{}, &rules.EvaluationError{Node: Format(e), Bindings: env, Reason: err.Error()}
	}
	return w.ApplyBatch(adds, removes)
}

// Format renders an effect in s-expression form.
func Format(e types.Effect) string {
	switch n := e.(type) {
	case nil:
		return "(and)"
	case types.AndEffect:
		parts := []string{"and"}
		for _, ch := range n.Children {
			parts = append(parts, Format(ch))
		}
		return "(" + strings.Join(parts, " ") + ")"
	case types.Add:
		return formatAtom(n.Pred, n.Args)
	case types.Remove:
		return "(not " + formatAtom(n.Pred, n.Args) + ")"
	case types.When:
		return "(when " + rules.Format(n.Cond) + " " + Format(n.Body) + ")"
	case types.ForallEffect:
		return "(forall (?" + n.Var + " - " + n.Type + ") " + Format(n.Body) + ")"
	case types.NumUpdate:
		amount := strconv.Itoa(n.Amount.Literal)
		if n.Amount.Pred != "" {
			amount = formatAtom(n.Amount.Pred, n.Amount.Args)
		}
		return "(" + n.Op + " " + formatAtom(n.Pred, n.Args) + " " + amount + ")"
	}
	return fmt.Sprintf("%T", e)
}

func formatAtom(pred string, args []types.Term) string {
	parts := []string{pred}
	for _, t := range args {
		parts = append(parts, t.String())
	}
	return "(" + strings.Join(parts, " ") + ")"
}
