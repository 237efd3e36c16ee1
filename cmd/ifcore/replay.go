package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nathoo/ifcore/episode"
)

func newReplayCmd(opts *options) *cobra.Command {
	var runs int
	var steps bool

	cmd := &cobra.Command{
		Use:   "replay <game> [script...]",
		Short: "Replay command scripts in parallel episodes and report the outcome",
		Long: `Replay runs each script in its own isolated episode. With no scripts, the
game's own solution is replayed. The command fails if any episode aborts or
misses the goal.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, cfg, log, err := setup(opts, args[0], !opts.verbose)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			var scripts []episode.Script
			for _, path := range args[1:] {
				s, err := loadScript(path)
				if err != nil {
					return err
				}
				scripts = append(scripts, s)
			}
			if len(scripts) == 0 {
				if len(defs.Solution) == 0 {
					return fmt.Errorf("%s has no solution and no scripts were given", args[0])
				}
				scripts = append(scripts, episode.Solution(defs))
			}
			if runs > 1 {
				base := scripts
				scripts = nil
				for i := 0; i < runs; i++ {
					scripts = append(scripts, base...)
				}
			}

			reports, err := episode.Run(cmd.Context(), defs, cfg, log, scripts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, r := range reports {
				if steps {
					for _, st := range r.Steps {
						fmt.Fprintf(out, "> %s\n%s\n", st.Input, st.Result.Feedback)
					}
				}
				status := "goal"
				switch {
				case r.Aborted != "":
					status = "aborted: " + r.Aborted
					failed++
				case !r.GoalAchieved:
					status = "no goal"
					failed++
				}
				fmt.Fprintf(out, "%s %s: %d turns, %d ok, %d parse, %d resolution, %d precondition, %s\n",
					r.ID[:8], r.Name, r.Turns, r.Successes, r.ParseFailures,
					r.ResolutionFailures, r.PreconditionFailures, status)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d episode(s) failed", failed, len(reports))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&runs, "runs", 1, "play each script this many times")
	cmd.Flags().BoolVar(&steps, "steps", false, "print every command and its feedback")
	return cmd
}

func loadScript(path string) (episode.Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return episode.Script{}, fmt.Errorf("opening script: %w", err)
	}
	defer f.Close()
	cmds, err := readScript(f)
	if err != nil {
		return episode.Script{}, fmt.Errorf("reading script %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return episode.Script{Name: name, Commands: cmds}, nil
}
