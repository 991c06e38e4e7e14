// Package cli is the tada command line: cobra commands over the store,
// session and stats components.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/idilsaglam/tada/internal/ui"
)

// Exit codes: 0 ok, 1 runtime error, 2 usage.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// usageError marks a mistake in how the command was invoked.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, a ...any) error {
	return usageError{msg: fmt.Sprintf(format, a...)}
}

// globals are the persistent root flags.
type globals struct {
	configPath string
	theme      string
	verbose    bool
	noColor    bool
	forceColor bool
}

// env carries the process streams so commands can run in tests.
type env struct {
	in      io.Reader
	out     io.Writer
	errOut  io.Writer
	version string

	flags globals
	app   *app
}

// Execute runs the command line and returns the process exit code.
func Execute(version string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return run(ctx, os.Args[1:], &env{in: os.Stdin, out: os.Stdout, errOut: os.Stderr, version: version})
}

func run(ctx context.Context, args []string, e *env) int {
	root := newRootCmd(e)
	root.SetArgs(args)
	root.SetIn(e.in)
	root.SetOut(e.out)
	root.SetErr(e.errOut)

	err := root.ExecuteContext(ctx)
	if e.app != nil {
		e.app.close()
	}
	if err == nil {
		return exitOK
	}

	ui.Fail(e.errOut, err.Error())
	var ue usageError
	if errors.As(err, &ue) {
		fmt.Fprintln(e.errOut)
		ui.Hint(e.errOut, "Run `tada --help` for usage.")
		return exitUsage
	}
	return exitError
}

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:   "tada",
		Short: "tada - your todo list, synced",
		Long: `tada is a terminal client for a remote todo service.

It keeps a local copy of your todos and their stats in line with the
server, and can follow changes made elsewhere over a live connection.`,
		Example: `  tada auth login --email me@example.com
  tada add "Buy milk" --desc "2 litres" --due 2024-05-01
  tada ls --status overdue
  tada done 42
  tada rm 42
  tada tui`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usagef("unknown subcommand: %s", args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetOut(e.errOut)
			_ = cmd.Help()
			return usagef("missing subcommand")
		},
		Version:       e.version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ui.SetColorForcing(e.flags.forceColor, e.flags.noColor)
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{msg: err.Error()}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&e.flags.configPath, "config", "", "config file (default ~/.tada/config.yaml)")
	pf.StringVar(&e.flags.theme, "theme", "", "color theme: classic, neon or mono")
	pf.BoolVarP(&e.flags.verbose, "verbose", "v", false, "log debug output to stderr")
	pf.BoolVar(&e.flags.noColor, "no-color", false, "disable colors")
	pf.BoolVar(&e.flags.forceColor, "force-color", false, "force colors even when not a terminal")

	root.AddCommand(
		newAuthCmd(e),
		newListCmd(e),
		newShowCmd(e),
		newAddCmd(e),
		newEditCmd(e),
		newDoneCmd(e),
		newRemoveCmd(e),
		newStatsCmd(e),
		newTUICmd(e),
		newConfigCmd(e),
		newVersionCmd(e),
	)
	return root
}

func newVersionCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  noArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(e.out, "tada", e.version)
		},
	}
}

// Argument validators that report usage errors.

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usagef("%s takes no arguments", cmd.CommandPath())
	}
	return nil
}

func exactArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usagef("usage: %s", usage)
		}
		return nil
	}
}

func minArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return usagef("usage: %s", usage)
		}
		return nil
	}
}
