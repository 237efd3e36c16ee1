// ifcore is a deterministic, data-driven engine for parser interactive fiction.
//
//	ifcore [play] [--plain] [--script <file>] [--trace] <game>
//	ifcore validate <game>
//	ifcore replay <game> [script...]
//	ifcore version
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nathoo/ifcore/cli"
	"github.com/nathoo/ifcore/config"
	"github.com/nathoo/ifcore/engine"
	"github.com/nathoo/ifcore/engine/state"
	"github.com/nathoo/ifcore/loader"
	"github.com/nathoo/ifcore/tui"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// options holds flags shared by every command.
type options struct {
	configPath string
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	play := &playOptions{}

	root := &cobra.Command{
		Use:   "ifcore <game>",
		Short: "Play, check and replay text adventures",
		Long: `ifcore runs text adventures authored as YAML/JSON files or Lua directories.

A game is a typed world of facts, actions with preconditions and effects, and
events that react to changes. Run with a game path to play it.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd, opts, play, args[0])
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "engine config file (YAML)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	addPlayFlags(root, play)

	playCmd := &cobra.Command{
		Use:   "play <game>",
		Short: "Play a game interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd, opts, play, args[0])
		},
	}
	addPlayFlags(playCmd, play)

	root.AddCommand(playCmd, newValidateCmd(opts), newReplayCmd(opts), newVersionCmd())
	return root
}

type playOptions struct {
	plain  bool
	trace  bool
	script string
}

func addPlayFlags(cmd *cobra.Command, p *playOptions) {
	cmd.Flags().BoolVar(&p.plain, "plain", false, "plain line-based interface instead of the TUI")
	cmd.Flags().BoolVar(&p.trace, "trace", false, "print the change set of every turn")
	cmd.Flags().StringVar(&p.script, "script", "", "read commands from a file (implies --plain)")
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ifcore %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}

// setup loads the engine config, builds the logger and loads the game.
func setup(opts *options, gamePath string, quiet bool) (*state.Defs, config.Config, *zap.Logger, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return nil, cfg, nil, err
		}
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}

	log := zap.NewNop()
	if !quiet || opts.verbose {
		l, err := config.NewLogger(cfg.Log)
		if err != nil {
			return nil, cfg, nil, err
		}
		log = l
	}

	defs, err := loader.Load(gamePath)
	if err != nil {
		return nil, cfg, log, fmt.Errorf("loading game: %w", err)
	}
	return defs, cfg, log, nil
}

func runPlay(cmd *cobra.Command, opts *options, p *playOptions, gamePath string) error {
	useTUI := !p.plain && p.script == "" && isTerminal()

	// The TUI owns the screen; log only when asked to.
	defs, cfg, log, err := setup(opts, gamePath, useTUI)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	eng, err := engine.New(defs, cfg, engine.WithLogger(log))
	if err != nil {
		return err
	}

	if useTUI {
		return tui.Run(eng)
	}

	c := cli.New(eng)
	c.Out = cmd.OutOrStdout()
	c.Trace = p.trace
	fmt.Fprintf(c.Out, "%s\n\n", defs.Game.Title)

	if p.script != "" {
		f, err := os.Open(p.script)
		if err != nil {
			return fmt.Errorf("opening script: %w", err)
		}
		defer f.Close()
		c.In = f
		c.EchoInput = true
	} else {
		c.In = cmd.InOrStdin()
	}
	return c.Run()
}

// readScript reads one command per line, skipping blanks and # comments.
func readScript(r io.Reader) ([]string, error) {
	var cmds []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cmds = append(cmds, line)
	}
	return cmds, sc.Err()
}

// isTerminal reports whether stdout is a terminal (not piped/redirected).
func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
