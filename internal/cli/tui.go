package cli

import (
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/idilsaglam/tada/internal/config"
	"github.com/idilsaglam/tada/internal/tui"
)

func newTUICmd(e *env) *cobra.Command {
	var noPush bool
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive todo list",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The terminal belongs to the program, so logs go to a file.
			if err := os.MkdirAll(config.Dir(), 0o700); err != nil {
				return err
			}
			f, err := tea.LogToFile(filepath.Join(config.Dir(), "tada.log"), "tada")
			if err != nil {
				return err
			}
			a, err := e.setup(f)
			if err != nil {
				f.Close()
				return err
			}
			if a.logFile == nil {
				a.logFile = f
			}
			if a, err = e.requireAuth(cmd.Context()); err != nil {
				return err
			}

			d := tui.Deps{
				Store:        a.store,
				Stats:        a.stats,
				UserName:     a.session.UserName(),
				Admin:        a.session.IsAdmin(),
				SyncInterval: a.cfg.SyncInterval,
				Logger:       a.log,
			}
			if !noPush && a.cfg.PushURL != "" {
				d.Push = a.push
			}
			return tui.Run(cmd.Context(), d)
		},
	}
	cmd.Flags().BoolVar(&noPush, "no-push", false, "do not open the live update channel")
	return cmd
}
