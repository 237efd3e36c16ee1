package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nathoo/ifcore/loader"
)

func newValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <game>",
		Short: "Load a game, report authoring errors and warnings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			defs, _, _, err := setup(opts, args[0], true)
			if err != nil {
				var ae *loader.AuthoringError
				if errors.As(err, &ae) {
					for _, msg := range ae.Errors {
						fmt.Fprintf(out, "error: %s\n", msg)
					}
					return fmt.Errorf("%s: %d authoring error(s)", args[0], len(ae.Errors))
				}
				return err
			}

			warnings := loader.Lint(defs)
			for _, w := range warnings {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
			fmt.Fprintf(out, "%s: ok (%d entities, %d actions, %d events, %d warning(s))\n",
				defs.Game.Title, len(defs.Entities), len(defs.Actions), len(defs.Events), len(warnings))
			return nil
		},
	}
}
