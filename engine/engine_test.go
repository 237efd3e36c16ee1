package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nathoo/ifcore/engine/enginetest"
	"github.com/nathoo/ifcore/engine/events"
	"github.com/nathoo/ifcore/engine/resolve"
	"github.com/nathoo/ifcore/engine/state"
	"github.com/nathoo/ifcore/types"
)

func newEngine(t *testing.T, defs *state.Defs, opts ...Option) *Engine {
	t.Helper()
	e, err := New(defs, enginetest.Config(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func step(t *testing.T, e *Engine, input string) TurnResult {
	t.Helper()
	res, err := e.ProcessAction(input)
	if err != nil {
		t.Fatalf("ProcessAction(%q): %v", input, err)
	}
	return res
}

func TestProcessAction_TakeOrange(t *testing.T) {
	e := newEngine(t, enginetest.Defs())
	res := step(t, e, "take the orange")

	if !res.Success || res.Phase != PhaseDone {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Feedback != "You take the orange." {
		t.Errorf("feedback = %q", res.Feedback)
	}
	want := types.ChangeSet{
		Added:   []types.Fact{types.F("in", "orange", "inventory")},
		Removed: []types.Fact{types.F("at", "orange", "kitchen")},
	}
	if diff := cmp.Diff(want, res.ChangeSet); diff != "" {
		t.Errorf("change set (-want +got):\n%s", diff)
	}
	if !res.GoalAchieved || !e.GoalAchieved() {
		t.Error("expected goal achieved")
	}
}

func TestProcessAction_GoNorthTwice(t *testing.T) {
	e := newEngine(t, enginetest.Defs())

	res := step(t, e, "go north")
	if !res.Success {
		t.Fatalf("first move failed: %+v", res)
	}
	if !strings.HasPrefix(res.Feedback, "You are in the pantry.") {
		t.Errorf("expected pantry description, got %q", res.Feedback)
	}

	before := e.Facts()
	res = step(t, e, "go north")
	if res.Success || res.FailureKind != resolve.ResNoExit || res.Phase != PhaseResolution {
		t.Fatalf("expected no_exit_to resolution failure, got %+v", res)
	}
	if res.Feedback != "There is no exit north from here." {
		t.Errorf("feedback = %q", res.Feedback)
	}
	if diff := cmp.Diff(before, e.Facts()); diff != "" {
		t.Errorf("failed move changed state (-before +after):\n%s", diff)
	}
}

func TestProcessAction_ClosedCupboard(t *testing.T) {
	e := newEngine(t, enginetest.Defs())

	res := step(t, e, "take key")
	if res.Success || res.Phase != PhasePrecondition || res.FailureKind != "entity_state_mismatch" {
		t.Fatalf("expected precondition failure, got %+v", res)
	}
	if res.Feedback != "The cupboard is closed." {
		t.Errorf("feedback = %q", res.Feedback)
	}

	res = step(t, e, "open cupboard")
	if !res.Success {
		t.Fatalf("open failed: %+v", res)
	}
	if !strings.Contains(res.Feedback, "In the cupboard there is a key.") {
		t.Errorf("expected contents in feedback, got %q", res.Feedback)
	}

	res = step(t, e, "take brass key")
	if !res.Success {
		t.Fatalf("take after open failed: %+v", res)
	}
	if !e.World.Contains(types.F("in", "key", "inventory")) || e.World.Contains(types.F("in", "key", "cupboard")) {
		t.Errorf("key not moved: %v", e.Facts())
	}
}

func TestProcessAction_EventAppendsFeedback(t *testing.T) {
	e := newEngine(t, enginetest.Defs())
	step(t, e, "take herb")

	res := step(t, e, "put herb in cauldron")
	if !res.Success {
		t.Fatalf("put failed: %+v", res)
	}
	if res.Feedback != "You put the herb in the cauldron. The cauldron begins to bubble." {
		t.Errorf("feedback = %q", res.Feedback)
	}
	if diff := cmp.Diff([]string{"brew"}, res.Events); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
	if !e.World.Contains(types.F("stage", "cauldron", "1")) {
		t.Error("expected stage(cauldron, 1)")
	}
	added := map[string]bool{}
	for _, f := range res.ChangeSet.Added {
		added[f.String()] = true
	}
	if !added["in(herb,cauldron)"] || !added["stage(cauldron,1)"] {
		t.Errorf("change set should include action and event facts: %+v", res.ChangeSet)
	}
}

func TestProcessAction_RunawayCascadeAborts(t *testing.T) {
	defs := enginetest.Defs()
	defs.Events = append(defs.Events, enginetest.RunawayEvent())
	e := newEngine(t, defs)

	_, err := e.ProcessAction("wind clock")
	var ee *events.EngineError
	if !errors.As(err, &ee) {
		t.Fatalf("expected *events.EngineError, got %v", err)
	}
	if e.Aborted() == nil {
		t.Error("expected episode to be aborted")
	}

	_, err = e.ProcessAction("look")
	if !errors.Is(err, ErrEpisodeAborted) {
		t.Errorf("expected ErrEpisodeAborted, got %v", err)
	}
}

func TestProcessAction_CyclicContainmentAborts(t *testing.T) {
	defs := enginetest.Defs()
	defs.Actions = append(defs.Actions, types.ActionDef{
		ID:    "nest",
		Verbs: []string{"nest"},
		Params: []types.Param{
			{Name: "a", Type: "container", Source: types.SourceArg1},
			{Name: "b", Type: "container", Source: types.SourceArg2},
		},
		Effect:   types.Add{Pred: "in", Args: []types.Term{types.V("a"), types.V("b")}},
		Feedback: "Done.",
	})
	e := newEngine(t, defs)

	step(t, e, "nest cauldron in cupboard")
	res, err := e.ProcessAction("nest cupboard in cauldron")
	if !errors.Is(err, state.ErrCyclicContainment) {
		t.Fatalf("expected cyclic containment, got %v", err)
	}
	if res.Success || res.Phase != PhaseEffects {
		t.Errorf("got success=%v phase %q, want failed at %q", res.Success, res.Phase, PhaseEffects)
	}
	if e.World.Contains(types.F("in", "cupboard", "cauldron")) {
		t.Error("cyclic fact was committed")
	}
	if _, err := e.ProcessAction("look"); !errors.Is(err, ErrEpisodeAborted) {
		t.Errorf("expected ErrEpisodeAborted, got %v", err)
	}
}

func TestProcessAction_FailuresDoNotMutate(t *testing.T) {
	tests := []struct {
		input string
		kind  string
		phase string
	}{
		{"xyzzy", resolve.ParseUnknownVerb, PhaseParse},
		{"take unicorn", resolve.ParseUnknownEntity, PhaseParse},
		{"take @@@", resolve.ParseMalformed, PhaseParse},
		{"examine jar", resolve.ParseOtherRoom, PhaseParse},
		{"go to kitchen", resolve.ResCurrentRoom, PhaseResolution},
		{"take cupboard", resolve.ParseBadArguments, PhaseParse},
		{"take key", "entity_state_mismatch", PhasePrecondition},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			e := newEngine(t, enginetest.Defs())
			before := e.Facts()
			res := step(t, e, tt.input)
			if res.Success {
				t.Fatalf("expected failure, got %+v", res)
			}
			if res.FailureKind != tt.kind || res.Phase != tt.phase {
				t.Errorf("got kind %q phase %q, want %q %q", res.FailureKind, res.Phase, tt.kind, tt.phase)
			}
			if res.Feedback == "" {
				t.Error("expected feedback")
			}
			if diff := cmp.Diff(before, e.Facts()); diff != "" {
				t.Errorf("state changed (-before +after):\n%s", diff)
			}
		})
	}
}

func TestProcessAction_UnannotatedFailureIsGeneric(t *testing.T) {
	defs := enginetest.Defs()
	defs.Actions = append(defs.Actions, types.ActionDef{
		ID:     "kick",
		Verbs:  []string{"kick"},
		Params: []types.Param{{Name: "e", Type: "container", Source: types.SourceArg1}},
		Pre:    types.Match{Pred: "open", Args: []types.Term{types.V("e")}},
	})
	e := newEngine(t, defs)

	res := step(t, e, "kick cupboard")
	if res.FailureKind != resolve.ResGeneric || res.Phase != PhaseResolution {
		t.Errorf("expected generic resolution failure, got %+v", res)
	}
	if res.Feedback != genericFeedback {
		t.Errorf("feedback = %q", res.Feedback)
	}
}

func TestProcessAction_EvaluationErrorIsLogged(t *testing.T) {
	defs := enginetest.Defs()
	defs.Actions = append(defs.Actions, types.ActionDef{
		ID:     "poke",
		Verbs:  []string{"poke"},
		Params: []types.Param{{Name: "e", Type: "container", Source: types.SourceArg1}},
		Pre: types.NumComp{
			Op:  types.OpGt,
			LHS: types.NumExpr{Pred: "stage", Args: []types.Term{types.V("e")}},
			RHS: types.NumExpr{Literal: 0},
		},
	})
	core, logs := observer.New(zapcore.ErrorLevel)
	e := newEngine(t, defs, WithLogger(zap.New(core)))
	before := e.Facts()

	res := step(t, e, "poke cupboard")
	if res.FailureKind != resolve.ResGeneric {
		t.Errorf("expected generic failure, got %+v", res)
	}
	if diff := cmp.Diff(before, e.Facts()); diff != "" {
		t.Errorf("state changed (-before +after):\n%s", diff)
	}
	entries := logs.FilterMessage("runtime invariant violated").All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["action"] != "poke" {
		t.Errorf("logged action = %v", fields["action"])
	}
	if _, ok := fields["subtree"]; !ok {
		t.Error("expected subtree field")
	}
	if e.Aborted() != nil {
		t.Error("evaluation errors must not abort the episode")
	}
}

func TestProcessAction_NumericUpdate(t *testing.T) {
	e := newEngine(t, enginetest.Defs())
	for i := 0; i < 3; i++ {
		if res := step(t, e, "wind clock"); !res.Success {
			t.Fatalf("wind %d failed: %+v", i+1, res)
		}
	}
	if !e.World.Contains(types.F("wound", "clock", "3")) {
		t.Errorf("expected wound(clock, 3), got %v", e.World.Query("wound", "clock"))
	}
	res := step(t, e, "wind clock")
	if res.Success || res.Feedback != "The clock is fully wound." {
		t.Errorf("expected fully wound failure, got %+v", res)
	}
}

func TestProcessAction_LookAndInventory(t *testing.T) {
	e := newEngine(t, enginetest.Defs())

	res := step(t, e, "look")
	if !strings.HasPrefix(res.Feedback, "You are in the kitchen. A warm kitchen.") {
		t.Errorf("look = %q", res.Feedback)
	}
	if len(res.ChangeSet.Added)+len(res.ChangeSet.Removed) != 0 {
		t.Errorf("look changed state: %+v", res.ChangeSet)
	}

	res = step(t, e, "i")
	if res.Feedback != "You are carrying nothing." {
		t.Errorf("inventory = %q", res.Feedback)
	}
	step(t, e, "take orange")
	res = step(t, e, "inventory")
	if res.Feedback != "You are carrying an orange." {
		t.Errorf("inventory = %q", res.Feedback)
	}
}

func TestProcessAction_TurnsAndLog(t *testing.T) {
	e := newEngine(t, enginetest.Defs())
	step(t, e, "look")
	step(t, e, "xyzzy")
	step(t, e, "take orange")

	if e.Turn != 3 {
		t.Errorf("turn = %d, want 3", e.Turn)
	}
	if diff := cmp.Diff([]string{"look", "xyzzy", "take orange"}, e.CommandLog); diff != "" {
		t.Errorf("command log (-want +got):\n%s", diff)
	}
}

func TestNew_MissingPlayer(t *testing.T) {
	defs := enginetest.Defs()
	delete(defs.Entities, "player")

	_, err := New(defs, enginetest.Config())
	var nf *state.NotFoundError
	if !errors.As(err, &nf) || nf.ID != "player" {
		t.Errorf("expected NotFoundError for player, got %v", err)
	}
}

func TestNew_BadInitialState(t *testing.T) {
	defs := enginetest.Defs()
	defs.Init = append(defs.Init, types.F("open", "cupboard"))

	if _, err := New(defs, enginetest.Config()); err == nil {
		t.Error("expected exclusive open/closed to be rejected")
	}
}

func TestRestore(t *testing.T) {
	e := newEngine(t, enginetest.Defs())
	step(t, e, "take orange")
	saved := e.Facts()

	step(t, e, "go north")
	if err := e.Restore(saved); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if diff := cmp.Diff(saved, e.Facts()); diff != "" {
		t.Errorf("restored facts (-want +got):\n%s", diff)
	}
	if e.World.PlayerRoom() != "kitchen" {
		t.Errorf("player in %q, want kitchen", e.World.PlayerRoom())
	}
}
