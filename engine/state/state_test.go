package state_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nathoo/ifcore/engine/enginetest"
	"github.com/nathoo/ifcore/engine/state"
	"github.com/nathoo/ifcore/types"
)

func TestApplyBatch_AddRemove(t *testing.T) {
	w := enginetest.World(enginetest.Defs())

	cs, err := w.ApplyBatch(
		[]types.Fact{types.F("in", "orange", "inventory")},
		[]types.Fact{types.F("at", "orange", "kitchen")},
	)
	if err != nil {
		t.Fatalf("ApplyBatch: %v", err)
	}
	if !w.Contains(types.F("in", "orange", "inventory")) {
		t.Error("added fact missing")
	}
	if w.Contains(types.F("at", "orange", "kitchen")) {
		t.Error("removed fact still present")
	}
	want := types.ChangeSet{
		Added:   []types.Fact{types.F("in", "orange", "inventory")},
		Removed: []types.Fact{types.F("at", "orange", "kitchen")},
	}
	if diff := cmp.Diff(want, cs); diff != "" {
		t.Errorf("change set (-want +got):\n%s", diff)
	}
}

func TestApplyBatch_Idempotent(t *testing.T) {
	w := enginetest.World(enginetest.Defs())
	n := w.Len()

	cs, err := w.ApplyBatch(
		[]types.Fact{types.F("at", "orange", "kitchen"), types.F("at", "orange", "kitchen")},
		[]types.Fact{types.F("at", "orange", "pantry")},
	)
	if err != nil {
		t.Fatalf("ApplyBatch: %v", err)
	}
	if !cs.Empty() {
		t.Errorf("expected empty change set, got %+v", cs)
	}
	if w.Len() != n {
		t.Errorf("len = %d, want %d", w.Len(), n)
	}
}

func TestApplyBatch_AllOrNothing(t *testing.T) {
	tests := []struct {
		name    string
		adds    []types.Fact
		removes []types.Fact
	}{
		{"undeclared predicate", []types.Fact{types.F("at", "orange", "pantry"), types.F("glows", "orange")}, nil},
		{"unknown entity", []types.Fact{types.F("at", "orange", "pantry"), types.F("at", "unicorn", "kitchen")}, nil},
		{"wrong arity", []types.Fact{types.F("at", "orange", "pantry"), types.F("at", "orange")}, nil},
		{"wrong type", []types.Fact{types.F("at", "orange", "pantry"), types.F("open", "orange")}, nil},
		{"immutable add", []types.Fact{types.F("at", "orange", "pantry"), types.F("takeable", "cupboard")}, nil},
		{"immutable remove", []types.Fact{types.F("at", "orange", "pantry")}, []types.Fact{types.F("takeable", "orange")}},
		{"negative number", []types.Fact{types.F("stage", "cauldron", "-1")}, nil},
		{"add and remove", []types.Fact{types.F("at", "orange", "pantry")}, []types.Fact{types.F("at", "orange", "pantry")}},
		{"exclusive pair", []types.Fact{types.F("open", "cupboard")}, nil},
		{"containment cycle", []types.Fact{types.F("in", "cauldron", "cupboard"), types.F("in", "cupboard", "cauldron")}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := enginetest.World(enginetest.Defs())
			before := w.Facts()

			_, err := w.ApplyBatch(tt.adds, tt.removes)
			var se *state.StateError
			if !errors.As(err, &se) {
				t.Fatalf("expected *StateError, got %v", err)
			}
			if diff := cmp.Diff(before, w.Facts()); diff != "" {
				t.Errorf("world changed (-before +after):\n%s", diff)
			}
		})
	}
}

func TestApplyBatch_Cycle(t *testing.T) {
	w := enginetest.World(enginetest.Defs())
	if _, err := w.ApplyBatch([]types.Fact{types.F("in", "cauldron", "cupboard")}, nil); err != nil {
		t.Fatalf("first nesting: %v", err)
	}
	_, err := w.ApplyBatch([]types.Fact{types.F("on", "cupboard", "cauldron")}, nil)
	if !errors.Is(err, state.ErrCyclicContainment) {
		t.Errorf("expected ErrCyclicContainment across in/on, got %v", err)
	}

	// Moving the cauldron out first breaks the cycle within one batch.
	_, err = w.ApplyBatch(
		[]types.Fact{types.F("on", "cupboard", "cauldron")},
		[]types.Fact{types.F("in", "cauldron", "cupboard")},
	)
	if err != nil {
		t.Errorf("swap should be accepted: %v", err)
	}
}

func TestApplyBatch_ExclusiveSwap(t *testing.T) {
	w := enginetest.World(enginetest.Defs())
	_, err := w.ApplyBatch(
		[]types.Fact{types.F("open", "cupboard")},
		[]types.Fact{types.F("closed", "cupboard")},
	)
	if err != nil {
		t.Fatalf("ApplyBatch: %v", err)
	}
	if !w.Contains(types.F("open", "cupboard")) || w.Contains(types.F("closed", "cupboard")) {
		t.Errorf("unexpected facts: %v", w.Query("open"))
	}
}

func TestNew_RejectsBadInit(t *testing.T) {
	d := enginetest.Defs()
	d.Init = append(d.Init, types.F("at", "ghost", "kitchen"))

	_, err := state.New(d, enginetest.Config(), d.Init)
	var nf *state.NotFoundError
	if !errors.As(err, &nf) || nf.ID != "ghost" {
		t.Errorf("expected NotFoundError for ghost, got %v", err)
	}
}

func TestQuery(t *testing.T) {
	w := enginetest.World(enginetest.Defs())

	got := w.Query("exit", "kitchen")
	want := []types.Fact{types.F("exit", "kitchen", "pantry", "north")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Query(exit, kitchen) (-want +got):\n%s", diff)
	}

	got = w.Query("in", "", "cupboard")
	want = []types.Fact{types.F("in", "key", "cupboard")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Query(in, _, cupboard) (-want +got):\n%s", diff)
	}

	if n := len(w.Query("takeable")); n != 5 {
		t.Errorf("takeable facts = %d, want 5", n)
	}
}

func TestNumber(t *testing.T) {
	w := enginetest.World(enginetest.Defs())

	n, found, err := w.Number("stage", "cauldron")
	if err != nil || !found || n != 0 {
		t.Errorf("Number(stage, cauldron) = %d, %v, %v", n, found, err)
	}
	_, found, err = w.Number("stage", "cupboard")
	if err != nil || found {
		t.Errorf("Number(stage, cupboard) found=%v err=%v, want missing", found, err)
	}

	if _, err := w.ApplyBatch([]types.Fact{types.F("wound", "clock", "4")}, nil); err != nil {
		t.Fatal(err)
	}
	if _, _, err := w.Number("wound", "clock"); err == nil {
		t.Error("expected error for two values")
	}
}

func TestLocationOf(t *testing.T) {
	w := enginetest.World(enginetest.Defs())
	if _, err := w.ApplyBatch(
		[]types.Fact{types.F("in", "orange", "inventory")},
		[]types.Fact{types.F("at", "orange", "kitchen")},
	); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		id   string
		want string
	}{
		{"player", "kitchen"},
		{"key", "kitchen"},
		{"orange", "kitchen"},
		{"jar", "pantry"},
		{"pantry", "pantry"},
		{"north", ""},
	}
	for _, tt := range tests {
		if got := w.LocationOf(tt.id); got != tt.want {
			t.Errorf("LocationOf(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
	if !w.Held("orange") || w.Held("key") {
		t.Error("Held mismatch")
	}
}

func TestChildren(t *testing.T) {
	w := enginetest.World(enginetest.Defs())
	if _, err := w.ApplyBatch([]types.Fact{types.F("in", "herb", "cupboard")}, nil); err != nil {
		t.Fatal(err)
	}
	got := w.Children("in", "cupboard")
	if diff := cmp.Diff([]string{"key", "herb"}, got); diff != "" {
		t.Errorf("Children (-want +got):\n%s", diff)
	}
}

func TestClone(t *testing.T) {
	w := enginetest.World(enginetest.Defs())
	c := w.Clone()
	if _, err := c.ApplyBatch([]types.Fact{types.F("at", "orange", "pantry")}, []types.Fact{types.F("at", "orange", "kitchen")}); err != nil {
		t.Fatal(err)
	}
	if !w.Contains(types.F("at", "orange", "kitchen")) {
		t.Error("clone mutation leaked into original")
	}
}

func TestDefs_IsA(t *testing.T) {
	d := enginetest.Defs()
	tests := []struct {
		typ, want string
		ok        bool
	}{
		{"cauldron", "container", true},
		{"cauldron", "thing", true},
		{"ingredient", "item", true},
		{"item", "ingredient", false},
		{"room", "thing", false},
		{types.NumberType, types.NumberType, true},
	}
	for _, tt := range tests {
		if got := d.IsA(tt.typ, tt.want); got != tt.ok {
			t.Errorf("IsA(%q, %q) = %v, want %v", tt.typ, tt.want, got, tt.ok)
		}
	}
	if diff := cmp.Diff([]string{"cupboard", "cauldron"}, d.EntitiesOfType("container")); diff != "" {
		t.Errorf("EntitiesOfType(container) (-want +got):\n%s", diff)
	}
	if got := len(d.ActionsForVerb("go")); got != 2 {
		t.Errorf("ActionsForVerb(go) = %d, want 2", got)
	}
}

func TestDefs_Conforms(t *testing.T) {
	d := enginetest.Defs()
	params := []types.Param{{Name: "i", Type: "ingredient"}, {Name: "n", Type: types.NumberType}}

	if !d.Conforms(params, types.Bindings{"i": "herb", "n": "3"}) {
		t.Error("herb/3 should conform")
	}
	if d.Conforms(params, types.Bindings{"i": "orange"}) {
		t.Error("orange is not an ingredient")
	}
	if d.Conforms(params, types.Bindings{"n": "x"}) {
		t.Error("x is not a number")
	}
}
