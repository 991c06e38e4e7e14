package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/ui"
)

func parseID(cmd *cobra.Command, s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, usagef("%s: not a todo id: %q", cmd.Name(), s)
	}
	return id, nil
}

// parseDue accepts the date formats the API understands and returns the
// form the API expects.
func parseDue(s string) (string, error) {
	ts, err := model.ParseTimestamp(strings.TrimSpace(s))
	if err != nil {
		return "", usagef("--due: %v (use YYYY-MM-DD)", err)
	}
	return ts.Format("2006-01-02 15:04:05"), nil
}

// adminOnly guards filters and fields that only admins may use.
func adminOnly(a *app, flag string) error {
	if !a.session.IsAdmin() {
		return usagef("%s requires an admin session", flag)
	}
	return nil
}

// asUsage turns local validation failures into usage errors.
func asUsage(err error) error {
	if errors.Is(err, model.ErrTitleRequired) || errors.Is(err, model.ErrDescriptionRequired) {
		return usageError{msg: err.Error()}
	}
	return err
}

func newListCmd(e *env) *cobra.Command {
	var (
		status   string
		userID   int64
		username string
		group    bool
	)
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List todos",
		Args:    noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := model.ParseStatus(status)
			if err != nil {
				return usageError{msg: err.Error()}
			}
			a, err := e.requireAuth(cmd.Context())
			if err != nil {
				return err
			}
			f := model.Filter{Status: st, UserID: userID, Username: username}
			if userID != 0 {
				if err := adminOnly(a, "--user-id"); err != nil {
					return err
				}
			}
			if username != "" {
				if err := adminOnly(a, "--username"); err != nil {
					return err
				}
			}

			if _, err := a.store.Load(cmd.Context(), f); err != nil {
				return err
			}
			fmt.Fprintln(e.out, listPanel(a.store.Items(), a.store.DeriveStats(), group, a.session.IsAdmin()))
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&status, "status", "", "only completed, incomplete or overdue todos")
	fl.Int64Var(&userID, "user-id", 0, "only todos of this user (admin)")
	fl.StringVar(&username, "username", "", "only todos of users matching this name (admin)")
	fl.BoolVar(&group, "group", false, "group output by overdue/pending/done")
	return cmd
}

func newShowCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one todo",
		Args:  exactArgs(1, "tada show <id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(cmd, args[0])
			if err != nil {
				return err
			}
			a, err := e.requireAuth(cmd.Context())
			if err != nil {
				return err
			}
			t, err := a.store.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintln(e.out, detailPanel(t))
			return nil
		},
	}
}

func newAddCmd(e *env) *cobra.Command {
	var (
		desc   string
		due    string
		userID int64
	)
	cmd := &cobra.Command{
		Use:   "add <title...>",
		Short: "Add a todo (the title can be several words)",
		Args:  minArgs(1, `tada add <title...> --desc "..."`),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := model.Draft{
				Title:       strings.TrimSpace(strings.Join(args, " ")),
				Description: strings.TrimSpace(desc),
				UserID:      userID,
			}
			if due != "" {
				var err error
				if d.DueDate, err = parseDue(due); err != nil {
					return err
				}
			}
			if err := d.Validate(); err != nil {
				return asUsage(err)
			}
			a, err := e.requireAuth(cmd.Context())
			if err != nil {
				return err
			}
			if userID != 0 {
				if err := adminOnly(a, "--user-id"); err != nil {
					return err
				}
			}

			resp, err := a.store.Create(cmd.Context(), d)
			if err != nil {
				return asUsage(err)
			}
			ui.OK(e.out, fmt.Sprintf("added #%d %s", resp.Todo.ID, resp.Todo.Title))
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&desc, "desc", "d", "", "description (required)")
	fl.StringVar(&due, "due", "", "due date, YYYY-MM-DD or YYYY-MM-DD HH:MM:SS")
	fl.Int64Var(&userID, "user-id", 0, "create the todo for another user (admin)")
	return cmd
}

func newEditCmd(e *env) *cobra.Command {
	var title, desc, due string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a todo's title, description or due date",
		Args:  exactArgs(1, "tada edit <id> [--title ...] [--desc ...] [--due ...]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(cmd, args[0])
			if err != nil {
				return err
			}
			var p model.Patch
			if cmd.Flags().Changed("title") {
				t := strings.TrimSpace(title)
				if t == "" {
					return usageError{msg: model.ErrTitleRequired.Error()}
				}
				p.Title = &t
			}
			if cmd.Flags().Changed("desc") {
				d := strings.TrimSpace(desc)
				if d == "" {
					return usageError{msg: model.ErrDescriptionRequired.Error()}
				}
				p.Description = &d
			}
			if cmd.Flags().Changed("due") {
				v, err := parseDue(due)
				if err != nil {
					return err
				}
				p.DueDate = &v
			}
			if p.Empty() {
				return usagef("edit: nothing to change, pass --title, --desc or --due")
			}

			a, err := e.requireAuth(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := a.store.Update(cmd.Context(), id, p)
			if err != nil {
				return err
			}
			ui.OK(e.out, fmt.Sprintf("updated #%d %s", id, resp.Todo.Title))
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&title, "title", "", "new title")
	fl.StringVarP(&desc, "desc", "d", "", "new description")
	fl.StringVar(&due, "due", "", "new due date")
	return cmd
}

func newDoneCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "done <id>",
		Aliases: []string{"toggle"},
		Short:   "Toggle a todo between done and pending",
		Args:    exactArgs(1, "tada done <id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(cmd, args[0])
			if err != nil {
				return err
			}
			a, err := e.requireAuth(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := a.store.Toggle(cmd.Context(), id)
			if err != nil {
				return err
			}
			verb := "reopened"
			if resp.Todo.CompletedAt != nil || resp.Todo.IsCompleted {
				verb = "completed"
			}
			ui.OK(e.out, fmt.Sprintf("%s #%d %s", verb, id, resp.Todo.Title))
			return nil
		},
	}
}

func newRemoveCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove"},
		Short:   "Delete a todo",
		Args:    exactArgs(1, "tada rm <id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(cmd, args[0])
			if err != nil {
				return err
			}
			a, err := e.requireAuth(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.store.Delete(cmd.Context(), id); err != nil {
				return err
			}
			ui.OK(e.out, fmt.Sprintf("removed #%d", id))
			return nil
		},
	}
}
