package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/idilsaglam/tada/internal/ui"
)

func newStatsCmd(e *env) *cobra.Command {
	var byUser bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show completion statistics",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := e.requireAuth(cmd.Context())
			if err != nil {
				return err
			}
			if byUser {
				if err := adminOnly(a, "--by-user"); err != nil {
					return err
				}
				as, err := a.stats.AdminBreakdown(cmd.Context())
				if err != nil {
					return err
				}
				a.store.SetStats(as.Stats)
				fmt.Fprintln(e.out, statsPanel("All users", as.Stats.Percentages()))
				head := fmt.Sprintf("%d users, %d with todos", as.TotalUsers, as.UsersWithTodos)
				fmt.Fprintln(e.out, ui.Panel(append([]string{ui.Current().Muted.Render(head), ""}, breakdownLines(as.TodosByUser)...)))
				return nil
			}

			if _, err := a.stats.Refresh(cmd.Context()); err != nil {
				return err
			}
			title := a.session.UserName() + "'s todos"
			if a.session.IsAdmin() {
				title = "All todos"
			}
			fmt.Fprintln(e.out, statsPanel(title, a.stats.Percentages()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&byUser, "by-user", false, "break the numbers down per user (admin)")
	return cmd
}
