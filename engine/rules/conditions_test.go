package rules

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nathoo/ifcore/engine/enginetest"
	"github.com/nathoo/ifcore/types"
)

var (
	v = types.V
	c = types.C
)

func m(pred string, args ...types.Term) types.Match {
	return types.Match{Pred: pred, Args: args}
}

func and(children ...types.Condition) types.And {
	return types.And{Children: children}
}

func xs(bs []types.Bindings, name string) []string {
	var out []string
	for _, b := range bs {
		out = append(out, b[name])
	}
	return out
}

func TestEval_Match(t *testing.T) {
	w := enginetest.World(enginetest.Defs())

	tests := []struct {
		name string
		cond types.Condition
		env  types.Bindings
		want []string // values of ?x, or nil
		ok   bool
	}{
		{"ground fact present", m("at", c("orange"), c("kitchen")), nil, []string{""}, true},
		{"ground fact absent", m("at", c("orange"), c("pantry")), nil, nil, false},
		{"bound variable", m("at", v("x"), c("kitchen")), types.Bindings{"x": "orange"}, []string{"orange"}, true},
		{"free variable binds in fact order", m("at", v("x"), c("pantry")), nil, []string{"jar"}, true},
		{"free variable no match", m("at", v("x"), c("nowhere")), nil, nil, false},
		{"repeated variable must agree", m("exit", v("x"), v("x"), v("d")), nil, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Eval(tt.cond, w, tt.env)
			if err != nil {
				t.Fatalf("Eval() error: %v", err)
			}
			if (len(got) > 0) != tt.ok {
				t.Fatalf("Eval() satisfied = %v, want %v", len(got) > 0, tt.ok)
			}
			if diff := cmp.Diff(tt.want, xs(got, "x")); diff != "" {
				t.Errorf("bindings mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEval_AndAccumulatesLeftToRight(t *testing.T) {
	w := enginetest.World(enginetest.Defs())

	got, err := Eval(and(m("at", v("x"), c("kitchen")), m("takeable", v("x"))), w, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"clock", "herb", "orange"}
	if diff := cmp.Diff(want, xs(got, "x")); diff != "" {
		t.Errorf("And bindings (-want +got):\n%s", diff)
	}
}

func TestEval_AndIsOrderSensitive(t *testing.T) {
	w := enginetest.World(enginetest.Defs())

	// Not before the binding match sees ?x free, so closed(?x) matches the cupboard.
	notFirst := and(types.Not{Child: m("closed", v("x"))}, m("at", v("x"), c("kitchen")))
	notLast := and(m("at", v("x"), c("kitchen")), types.Not{Child: m("closed", v("x"))})

	if ok, _ := Holds(notFirst, w, nil); ok {
		t.Error("Not-first conjunction should fail")
	}
	got, _ := Eval(notLast, w, nil)
	for _, b := range got {
		if b["x"] == "cupboard" {
			t.Error("closed cupboard should be filtered out")
		}
	}
	if len(got) == 0 {
		t.Error("Not-last conjunction should hold")
	}
}

func TestEval_OrFirstBranchOnly(t *testing.T) {
	w := enginetest.World(enginetest.Defs())

	got, err := Eval(types.Or{Children: []types.Condition{
		m("at", v("x"), c("nowhere")),
		m("at", v("x"), c("pantry")),
		m("at", v("y"), c("kitchen")),
	}}, w, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0]["x"] != "jar" {
		t.Errorf("Or = %v, want single binding x=jar", got)
	}
	if _, ok := got[0]["y"]; ok {
		t.Error("later Or branch leaked bindings")
	}
}

func TestEval_NotNeverBinds(t *testing.T) {
	w := enginetest.World(enginetest.Defs())

	got, err := Eval(types.Not{Child: m("at", v("x"), c("nowhere"))}, w, types.Bindings{"y": "orange"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]types.Bindings{{"y": "orange"}}, got); diff != "" {
		t.Errorf("Not bindings (-want +got):\n%s", diff)
	}
}

func TestEval_ForallVacuous(t *testing.T) {
	d := enginetest.Defs()
	d.Types["ghost"] = types.TypeDef{Name: "ghost", Super: "thing"}
	w := enginetest.World(d)

	ok, err := Holds(types.Forall{Var: "g", Type: "ghost", Body: m("at", v("g"), c("nowhere"))}, w, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("Forall over zero entities should hold")
	}
}

func TestEval_Forall(t *testing.T) {
	w := enginetest.World(enginetest.Defs())

	allAtKitchen := types.Forall{Var: "c", Type: "container", Body: m("at", v("c"), c("kitchen"))}
	if ok, _ := Holds(allAtKitchen, w, nil); !ok {
		t.Error("every container is in the kitchen")
	}
	allOpen := types.Forall{Var: "c", Type: "container", Body: m("open", v("c"))}
	if ok, _ := Holds(allOpen, w, nil); ok {
		t.Error("cupboard is closed, Forall open should fail")
	}
}

func TestEval_ExistsScopesVariable(t *testing.T) {
	w := enginetest.World(enginetest.Defs())

	got, err := Eval(types.Exists{Var: "c", Type: "container", Body: and(
		m("at", v("c"), c("kitchen")),
		m("in", v("k"), v("c")),
	)}, w, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("Exists returned %d bindings, want 1", len(got))
	}
	if _, ok := got[0]["c"]; ok {
		t.Error("quantified variable escaped Exists")
	}
	if got[0]["k"] != "key" {
		t.Errorf("witness binding k = %q, want key", got[0]["k"])
	}
}

func TestEval_NumComp(t *testing.T) {
	w := enginetest.World(enginetest.Defs())
	wound := types.NumExpr{Pred: "wound", Args: []types.Term{v("e")}}

	tests := []struct {
		op   string
		rhs  int
		want bool
	}{
		{types.OpEq, 0, true},
		{types.OpLt, 1, true},
		{types.OpLe, 0, true},
		{types.OpGt, 0, false},
		{types.OpGe, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			n := types.NumComp{Op: tt.op, LHS: wound, RHS: types.NumExpr{Literal: tt.rhs}}
			got, err := Holds(n, w, types.Bindings{"e": "clock"})
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("wound(clock) %s %d = %v, want %v", tt.op, tt.rhs, got, tt.want)
			}
		})
	}
}

func TestEval_NumCompMissingFact(t *testing.T) {
	w := enginetest.World(enginetest.Defs())
	n := types.NumComp{
		Op:  types.OpEq,
		LHS: types.NumExpr{Pred: "wound", Args: []types.Term{v("e")}},
		RHS: types.NumExpr{Literal: 0},
	}

	_, err := Eval(n, w, types.Bindings{"e": "orange"})
	var ee *EvaluationError
	if !errors.As(err, &ee) {
		t.Fatalf("Eval() error = %v, want EvaluationError", err)
	}
	if ee.Reason != "missing numeric fact" {
		t.Errorf("Reason = %q", ee.Reason)
	}
	if ee.Bindings["e"] != "orange" {
		t.Errorf("error bindings = %v", ee.Bindings)
	}
}

func TestExplain_TakeFromClosedCupboard(t *testing.T) {
	d := enginetest.Defs()
	w := enginetest.World(d)
	take := d.Actions[0]

	env := types.Bindings{"e": "key", "r": "kitchen"}
	if ok, _ := Holds(take.Pre, w, env); ok {
		t.Fatal("take key should fail while the cupboard is closed")
	}
	spec, b := Explain(take.Pre, w, env)
	if spec == nil {
		t.Fatal("Explain() = nil")
	}
	if spec.Kind != "entity_state_mismatch" {
		t.Errorf("Kind = %q, want entity_state_mismatch", spec.Kind)
	}
	if b["c"] != "cupboard" {
		t.Errorf("failure bindings c = %q, want cupboard", b["c"])
	}
}

func TestExplain_UnannotatedLeaf(t *testing.T) {
	w := enginetest.World(enginetest.Defs())
	spec, _ := Explain(and(m("at", c("orange"), c("pantry"))), w, nil)
	if spec != nil {
		t.Errorf("Explain() = %+v, want nil", spec)
	}
}

func TestExplain_AnnotatedOr(t *testing.T) {
	w := enginetest.World(enginetest.Defs())
	or := types.Or{
		Annotated: types.Annotated{OnFail: &types.FailureSpec{Kind: "entity_not_accessible"}},
		Children:  []types.Condition{m("at", v("e"), c("kitchen"))},
	}
	spec, _ := Explain(or, w, types.Bindings{"e": "jar"})
	if spec == nil || spec.Kind != "entity_not_accessible" {
		t.Errorf("Explain() = %+v, want entity_not_accessible", spec)
	}
}

func TestExplain_UnannotatedOrPrefersDeepestBranch(t *testing.T) {
	w := enginetest.World(enginetest.Defs())
	shallow := m("at", v("e"), c("kitchen"))
	shallow.OnFail = &types.FailureSpec{Kind: "entity_not_present"}
	deep := m("in", v("e"), c("inventory"))
	deep.OnFail = &types.FailureSpec{Kind: "entity_not_held"}

	tests := []struct {
		name     string
		children []types.Condition
		want     string
	}{
		{"deep branch second", []types.Condition{shallow, and(deep)}, "entity_not_held"},
		{"deep branch first", []types.Condition{and(deep), shallow}, "entity_not_held"},
		{"tie keeps first", []types.Condition{shallow, deep}, "entity_not_present"},
		{"unannotated first branch", []types.Condition{m("at", v("e"), c("pantry")), deep}, "entity_not_held"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, b := Explain(types.Or{Children: tt.children}, w, types.Bindings{"e": "jar"})
			if spec == nil || spec.Kind != tt.want {
				t.Fatalf("Explain() = %+v, want %s", spec, tt.want)
			}
			if b["e"] != "jar" {
				t.Errorf("bindings e = %q, want jar", b["e"])
			}
		})
	}
}

func TestFormat(t *testing.T) {
	cond := and(
		m("at", v("e"), c("kitchen")),
		types.Not{Child: m("closed", v("e"))},
		types.Forall{Var: "c", Type: "container", Body: m("open", v("c"))},
		types.NumComp{Op: types.OpLt, LHS: types.NumExpr{Pred: "wound", Args: []types.Term{v("e")}}, RHS: types.NumExpr{Literal: 3}},
	)
	want := "(and (at ?e kitchen) (not (closed ?e)) (forall (?c - container) (open ?c)) (< (wound ?e) 3))"
	if got := Format(cond); got != want {
		t.Errorf("Format() = %q, want %q", got, want)
	}
}

func TestMatches(t *testing.T) {
	cond := and(m("in", v("i"), v("c")), types.Not{Child: m("stage", v("c"), c("1"))})
	got := Matches(cond)
	if len(got) != 2 || got[0].Pred != "in" || got[1].Pred != "stage" {
		t.Errorf("Matches() = %v", got)
	}
}
