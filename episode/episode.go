// Package episode runs scripted episodes against shared game definitions.
// Each episode owns its engine; episodes run in parallel.
package episode

import (
	"context"
	"fmt"
	"runtime"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nathoo/ifcore/config"
	"github.com/nathoo/ifcore/engine"
	"github.com/nathoo/ifcore/engine/state"
)

// Script is a named command sequence.
type Script struct {
	Name     string
	Commands []string
}

// Step is one played command and its outcome.
type Step struct {
	Input  string
	Result engine.TurnResult
}

// Report summarizes one episode.
type Report struct {
	ID                   string
	Name                 string
	Turns                int
	Successes            int
	ParseFailures        int
	ResolutionFailures   int
	PreconditionFailures int
	GoalAchieved         bool
	GoalTurn             int    // first turn the goal held; 0 if never
	Aborted              string // reason the episode ended early, if it did
	Steps                []Step
}

// Run plays every script in its own episode, at most GOMAXPROCS at a time.
// Reports are returned in script order. An engine that cannot be built or a
// cancelled context fails the whole run; an aborted episode does not.
func Run(ctx context.Context, defs *state.Defs, cfg config.Config, log *zap.Logger, scripts []Script) ([]Report, error) {
	if log == nil {
		log = zap.NewNop()
	}
	reports := make([]Report, len(scripts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, s := range scripts {
		i, s := i, s
		g.Go(func() error {
			r, err := Play(ctx, defs, cfg, log, s)
			if err != nil {
				return fmt.Errorf("episode %q: %w", s.Name, err)
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// Play runs one script to completion, or until the episode aborts.
func Play(ctx context.Context, defs *state.Defs, cfg config.Config, log *zap.Logger, s Script) (Report, error) {
	if log == nil {
		log = zap.NewNop()
	}
	r := Report{ID: uuid.NewString(), Name: s.Name}
	log = log.With(zap.String("episode", r.ID), zap.String("script", s.Name))

	e, err := engine.New(defs, cfg, engine.WithLogger(log))
	if err != nil {
		return r, err
	}
	for _, cmd := range s.Commands {
		if err := ctx.Err(); err != nil {
			return r, err
		}
		res, err := e.ProcessAction(cmd)
		r.Turns++
		r.Steps = append(r.Steps, Step{Input: cmd, Result: res})
		if err != nil {
			r.Aborted = err.Error()
			log.Warn("episode aborted", zap.Int("turn", r.Turns), zap.Error(err))
			break
		}
		switch {
		case res.Success:
			r.Successes++
		case res.Phase == engine.PhaseParse:
			r.ParseFailures++
		case res.Phase == engine.PhasePrecondition:
			r.PreconditionFailures++
		default:
			r.ResolutionFailures++
		}
		if res.GoalAchieved && r.GoalTurn == 0 {
			r.GoalTurn = r.Turns
		}
	}
	r.GoalAchieved = e.GoalAchieved()
	log.Debug("episode finished",
		zap.Int("turns", r.Turns),
		zap.Bool("goal", r.GoalAchieved),
		zap.Int("parse_failures", r.ParseFailures))
	return r, nil
}

// Solution returns the game's known-good command list as a script.
func Solution(defs *state.Defs) Script {
	return Script{Name: "solution", Commands: defs.Solution}
}
