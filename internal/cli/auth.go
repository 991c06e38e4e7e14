package cli

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/session"
	"github.com/idilsaglam/tada/internal/ui"
)

func newAuthCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Sign in, sign out and inspect the current session",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return usagef("usage: tada auth <login|register|logout|status|whoami>")
		},
	}
	cmd.AddCommand(newLoginCmd(e), newRegisterCmd(e), newLogoutCmd(e), newStatusCmd(e), newWhoamiCmd(e))
	return cmd
}

// prompt reads one line from the command's input.
func (e *env) prompt(r *bufio.Reader, label string) (string, error) {
	fmt.Fprint(e.out, label)
	line, err := r.ReadString('\n')
	line = strings.TrimSpace(line)
	if err != nil && line == "" {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.TrimSpace(label), ":"), err)
	}
	return line, nil
}

func newLoginCmd(e *env) *cobra.Command {
	var email, password, token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password, or paste a token",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := e.setup(nil)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if token != "" {
				u, err := a.session.UseToken(ctx, token)
				if err != nil {
					return fmt.Errorf("token rejected: %w", err)
				}
				ui.OK(e.out, "logged in as "+u.Name)
				return nil
			}

			in := bufio.NewReader(e.in)
			if email == "" {
				if email, err = e.prompt(in, "Email: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = e.prompt(in, "Password: "); err != nil {
					return err
				}
			}
			resp, err := a.session.Login(ctx, model.LoginCredentials{Email: email, Password: password})
			if err != nil {
				return err
			}
			ui.OK(e.out, fmt.Sprintf("logged in as %s (%s)", resp.User.Name, resp.User.Role))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	cmd.Flags().StringVar(&token, "token", "", "use an existing bearer token instead")
	return cmd
}

func newRegisterCmd(e *env) *cobra.Command {
	var name, email, password, role string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch model.Role(role) {
			case "", model.RoleUser, model.RoleAdmin:
			default:
				return usagef("--role must be %q or %q", model.RoleUser, model.RoleAdmin)
			}
			a, err := e.setup(nil)
			if err != nil {
				return err
			}

			in := bufio.NewReader(e.in)
			if name == "" {
				if name, err = e.prompt(in, "Name: "); err != nil {
					return err
				}
			}
			if email == "" {
				if email, err = e.prompt(in, "Email: "); err != nil {
					return err
				}
			}
			confirm := password
			if password == "" {
				if password, err = e.prompt(in, "Password: "); err != nil {
					return err
				}
				if confirm, err = e.prompt(in, "Confirm password: "); err != nil {
					return err
				}
			}

			resp, err := a.session.Register(cmd.Context(), model.RegisterData{
				Name:                 name,
				Email:                email,
				Password:             password,
				PasswordConfirmation: confirm,
				Role:                 model.Role(role),
			})
			if err != nil {
				return err
			}
			ui.OK(e.out, "registered and logged in as "+resp.User.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted twice when omitted)")
	cmd.Flags().StringVar(&role, "role", "", "account role: user or admin")
	return cmd
}

func newLogoutCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the saved token",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := e.setup(nil)
			if err != nil {
				return err
			}
			if !a.session.IsAuthenticated() {
				ui.OK(e.out, "already logged out")
				return nil
			}
			fromEnv := a.session.Source() == session.SourceEnv
			if err := a.session.Logout(cmd.Context()); err != nil {
				return fmt.Errorf("logout: %w", err)
			}
			if fromEnv {
				ui.OK(e.out, "logged out; the token comes from TADA_TOKEN, unset it to stay logged out")
				return nil
			}
			ui.OK(e.out, "logged out")
			return nil
		},
	}
}

func newStatusCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where the token comes from and when it expires",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := e.setup(nil)
			if err != nil {
				return err
			}
			s := a.session
			if !s.IsAuthenticated() {
				fmt.Fprintln(e.out, ui.Current().Muted.Render("not logged in"))
				fmt.Fprintln(e.out, "Run: tada auth login")
				return nil
			}
			fmt.Fprintf(e.out, "user: %s\n", s.UserName())
			fmt.Fprintf(e.out, "source: %s\n", s.Source())
			if s.Source() == session.SourceFile {
				fmt.Fprintf(e.out, "file: %s\n", a.creds.Path())
			}
			if exp, ok := s.ExpiresAt(); ok {
				fmt.Fprintf(e.out, "expires: %s\n", exp.UTC().Format(time.RFC3339))
			} else {
				fmt.Fprintln(e.out, "expires: (unknown)")
			}
			fmt.Fprintln(e.out, "env override: TADA_TOKEN")
			return nil
		},
	}
}

// whoami asks the server who the token belongs to and shows any JWT claims
// decoded locally.
func newWhoamiCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := e.requireAuth(cmd.Context())
			if err != nil {
				return err
			}
			u, err := a.session.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "%s <%s>\n", ui.Current().Title.Render(u.Name), u.Email)
			fmt.Fprintf(e.out, "id: %d\nrole: %s\n", u.ID, u.Role)

			claims, ok := a.session.Claims()
			if !ok {
				fmt.Fprintln(e.out, ui.Current().Muted.Render("opaque token (cannot introspect locally)"))
				return nil
			}
			out, err := yaml.Marshal(map[string]any(claims))
			if err != nil {
				return err
			}
			fmt.Fprintln(e.out, "token claims:")
			fmt.Fprint(e.out, string(out))
			return nil
		},
	}
}
