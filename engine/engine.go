// Package engine provides the ProcessAction orchestrator that wires together
// parsing, resolution, condition evaluation, effects and events into a single
// turn.
package engine

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nathoo/ifcore/config"
	"github.com/nathoo/ifcore/engine/describe"
	"github.com/nathoo/ifcore/engine/effects"
	"github.com/nathoo/ifcore/engine/events"
	"github.com/nathoo/ifcore/engine/parser"
	"github.com/nathoo/ifcore/engine/resolve"
	"github.com/nathoo/ifcore/engine/rules"
	"github.com/nathoo/ifcore/engine/state"
	"github.com/nathoo/ifcore/types"
)

// ErrEpisodeAborted is returned by every ProcessAction call after an
// unrecoverable error.
var ErrEpisodeAborted = errors.New("engine: episode aborted")

// Phases at which a turn can end.
const (
	PhaseParse        = "parse"
	PhaseResolution   = "resolution"
	PhasePrecondition = "precondition"
	PhaseEffects      = "effects"
	PhaseEvents       = "events"
	PhaseDone         = "done"
)

// genericFeedback is shown for failures without authored feedback.
const genericFeedback = "You can't do that."

// TurnResult is the outcome of one ProcessAction call.
type TurnResult struct {
	Feedback     string
	Success      bool
	GoalAchieved bool
	FailureKind  string // "" on success
	Phase        string
	ActionID     string
	Events       []string // ids of events fired, in order
	ChangeSet    types.ChangeSet

	// InformationGain counts facts the player came to know this turn.
	InformationGain int
}

// Engine runs one episode. It is not safe for concurrent use; separate
// episodes use separate engines.
type Engine struct {
	Defs       *state.Defs
	Config     config.Config
	World      *state.World
	Log        *zap.Logger
	Turn       int
	CommandLog []string

	// Exploration tracks what the player has perceived so far.
	Exploration *Exploration

	events  *events.Engine
	aborted error
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.Log = l
		}
	}
}

// New creates an engine with the world built from defs.Init.
func New(defs *state.Defs, cfg config.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, id := range []string{cfg.PlayerID, cfg.InventoryID} {
		if _, err := defs.Entity(id); err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
	}

	e := &Engine{Defs: defs, Config: cfg, Log: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	w, err := state.New(defs, cfg, defs.Init)
	if err != nil {
		return nil, fmt.Errorf("engine: initial state: %w", err)
	}
	e.World = w
	e.Exploration = newExploration(w)
	e.events = events.New(defs.Events, cfg.MaxCascadeDepth, e.Log)
	return e, nil
}

// Restore replaces the world with one built from facts and clears any abort.
func (e *Engine) Restore(facts []types.Fact) error {
	w, err := state.New(e.Defs, e.Config, facts)
	if err != nil {
		return fmt.Errorf("engine: restore: %w", err)
	}
	e.World = w
	e.Exploration = newExploration(w)
	e.aborted = nil
	return nil
}

// Facts returns the current fact set, sorted.
func (e *Engine) Facts() []types.Fact {
	return e.World.Facts()
}

// GoalAchieved reports whether every goal fact holds.
func (e *Engine) GoalAchieved() bool {
	return e.World.ContainsAll(e.Defs.Goal)
}

// Aborted returns the error that ended the episode, or nil.
func (e *Engine) Aborted() error {
	return e.aborted
}

// ProcessAction runs one turn. Parse and resolution problems are reported in
// the TurnResult, not as errors. An error is returned only when the episode
// cannot continue: a runaway event cascade or a containment cycle.
func (e *Engine) ProcessAction(input string) (TurnResult, error) {
	if e.aborted != nil {
		return TurnResult{Phase: PhaseDone}, fmt.Errorf("%w: %v", ErrEpisodeAborted, e.aborted)
	}
	e.Turn++
	e.CommandLog = append(e.CommandLog, input)

	// 1. Parse and bind to an action template.
	cmd := parser.Parse(input)
	act, err := resolve.Resolve(e.World, cmd)
	if err != nil {
		var pf *resolve.ParseFailure
		var rf *resolve.ResolutionFailure
		switch {
		case errors.As(err, &pf):
			return e.finish(TurnResult{Feedback: pf.Feedback, FailureKind: pf.Kind, Phase: PhaseParse}), nil
		case errors.As(err, &rf):
			return e.finish(TurnResult{Feedback: rf.Feedback, FailureKind: rf.Kind, Phase: PhaseResolution}), nil
		}
		return e.internal(err, "", nil), nil
	}
	log := e.Log.With(zap.Int("turn", e.Turn), zap.String("action", act.Def.ID))

	// 2. Precondition check.
	b, err := e.firstValid(act)
	if err != nil {
		return e.internal(err, act.Def.ID, act.Bindings), nil
	}
	if b == nil {
		return e.finish(e.preconditionFailure(act)), nil
	}

	// 3. Effects, all or nothing.
	cs, err := effects.Apply(act.Def.Effect, e.World, b)
	if err != nil {
		if errors.Is(err, state.ErrCyclicContainment) {
			res, abortErr := e.abort(err, act.Def.ID, b)
			res.Phase = PhaseEffects
			return res, abortErr
		}
		return e.internal(err, act.Def.ID, b), nil
	}
	log.Debug("action applied", zap.Int("added", len(cs.Added)), zap.Int("removed", len(cs.Removed)))

	res := TurnResult{
		Feedback: describe.Render(e.World, act.Def.Feedback, b, cmd.Prep),
		Success:  true,
		Phase:    PhaseDone,
		ActionID: act.Def.ID,
	}

	// 4. Event cascade.
	fired, evcs, err := e.events.Run(e.World, cs)
	texts := []string{res.Feedback}
	for _, f := range fired {
		res.Events = append(res.Events, f.EventID)
		if t := describe.Render(e.World, f.Feedback, f.Bindings, ""); t != "" {
			texts = append(texts, t)
		}
	}
	cs.Merge(evcs)
	res.ChangeSet = cs
	res.Feedback = strings.TrimSpace(strings.Join(texts, " "))
	if err != nil {
		res.Phase = PhaseEvents
		res.Success = false
		res.FailureKind = resolve.ResGeneric
		out, abortErr := e.abort(err, act.Def.ID, b)
		res.GoalAchieved = out.GoalAchieved
		return res, abortErr
	}
	return e.finish(res), nil
}

// firstValid returns the first precondition binding whose values fit the
// action's parameter types, or nil if the precondition does not hold.
func (e *Engine) firstValid(act *resolve.Action) (types.Bindings, error) {
	bs, err := rules.Eval(act.Def.Pre, e.World, act.Bindings)
	if err != nil {
		return nil, err
	}
	for _, b := range bs {
		if e.Defs.Conforms(act.Def.Params, b) {
			return b, nil
		}
	}
	return nil, nil
}

// preconditionFailure reports the annotated failure on the failing path.
// Resolution kinds become resolution failures; other authored kinds are
// precondition failures; an unannotated failure is a generic resolution
// failure.
func (e *Engine) preconditionFailure(act *resolve.Action) TurnResult {
	spec, b := rules.Explain(act.Def.Pre, e.World, act.Bindings)
	if spec == nil {
		return TurnResult{Feedback: genericFeedback, FailureKind: resolve.ResGeneric, Phase: PhaseResolution, ActionID: act.Def.ID}
	}
	feedback := describe.Render(e.World, spec.Feedback, b, act.Command.Prep)
	if feedback == "" {
		feedback = genericFeedback
	}
	phase := PhasePrecondition
	if resolve.IsResolutionKind(spec.Kind) {
		phase = PhaseResolution
	}
	return TurnResult{Feedback: feedback, FailureKind: spec.Kind, Phase: phase, ActionID: act.Def.ID}
}

// internal logs a recoverable invariant violation and downgrades it to a
// generic resolution failure. The world is unchanged.
func (e *Engine) internal(err error, actionID string, b types.Bindings) TurnResult {
	fields := []zap.Field{
		zap.Int("turn", e.Turn),
		zap.String("action", actionID),
		zap.String("bindings", rules.FormatBindings(b)),
		zap.Error(err),
	}
	var ee *rules.EvaluationError
	if errors.As(err, &ee) {
		fields = append(fields, zap.String("subtree", ee.Node))
	}
	e.Log.Error("runtime invariant violated", fields...)
	return e.finish(TurnResult{Feedback: genericFeedback, FailureKind: resolve.ResGeneric, Phase: PhaseResolution, ActionID: actionID})
}

// abort ends the episode.
func (e *Engine) abort(err error, actionID string, b types.Bindings) (TurnResult, error) {
	e.aborted = err
	e.Log.Error("episode aborted",
		zap.Int("turn", e.Turn),
		zap.String("action", actionID),
		zap.String("bindings", rules.FormatBindings(b)),
		zap.Error(err))
	return e.finish(TurnResult{Feedback: genericFeedback, FailureKind: resolve.ResGeneric, Phase: PhaseDone, ActionID: actionID}), err
}

func (e *Engine) finish(r TurnResult) TurnResult {
	r.GoalAchieved = e.GoalAchieved()
	st := e.Exploration.record(e.World, e.Turn, r.ActionID, r.ChangeSet)
	r.InformationGain = len(st.Gained)
	if r.InformationGain > 0 {
		e.Log.Debug("exploration", zap.Int("turn", e.Turn), zap.Int("gained", r.InformationGain), zap.Int("known", st.Known))
	}
	return r
}
