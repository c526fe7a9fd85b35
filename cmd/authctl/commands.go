package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/geocoder89/authhub/internal/client"
	"github.com/geocoder89/authhub/internal/domain/user"
)

func newRegisterCmd(opts *globalOptions) *cobra.Command {
	var email, role string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a student or vendor account",
		Long: `Create an account. The password is read from the terminal without echo,
or from stdin when it is not a terminal. The new account is not signed in.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := promptPassword(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: ")
			if err != nil {
				return err
			}

			u, err := opts.client().Register(cmd.Context(), email, password, user.Role(role))
			if err != nil {
				return describe(cmd.ErrOrStderr(), err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "registered %s (id %d, role %s)\n", u.Email, u.ID, u.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&role, "role", string(user.RoleStudent), "account role (student|vendor)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newLoginCmd(opts *globalOptions) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and save the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := opts.session()
			if err != nil {
				return err
			}

			password, err := promptPassword(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: ")
			if err != nil {
				return err
			}

			u, err := sess.Login(cmd.Context(), opts.client(), email, password)
			if err != nil {
				return describe(cmd.ErrOrStderr(), err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s (%s)\n", u.Email, u.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newWhoamiCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user from the local session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := opts.session()
			if err != nil {
				return err
			}

			u, ok := sess.User()
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "not logged in")
				return nil
			}

			printUser(cmd, u)
			return nil
		},
	}
}

func newProfileCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "profile [email]",
		Short: "Fetch a profile from the server",
		Long:  `Fetch a profile by email. Without an argument the signed-in user's profile is fetched.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var email string
			if len(args) == 1 {
				email = args[0]
			} else {
				sess, err := opts.session()
				if err != nil {
					return err
				}
				u, ok := sess.User()
				if !ok {
					return errors.New("not logged in; pass an email or run authctl login")
				}
				email = u.Email
			}

			u, err := opts.client().Profile(cmd.Context(), email)
			if err != nil {
				return describe(cmd.ErrOrStderr(), err)
			}

			printUser(cmd, u)
			return nil
		},
	}
}

func newLogoutCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the local session",
		Long:  `Forget the local session. Nothing is sent to the server.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := opts.session()
			if err != nil {
				return err
			}
			if err := sess.Logout(); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

func newHealthCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the server is up",
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := opts.client().Health(cmd.Context())
			if err != nil {
				return describe(cmd.ErrOrStderr(), err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) %s\n", h.Status, h.Environment, h.Message)
			return nil
		},
	}
}

func printUser(cmd *cobra.Command, u user.User) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "id:      %d\n", u.ID)
	fmt.Fprintf(out, "email:   %s\n", u.Email)
	fmt.Fprintf(out, "role:    %s\n", u.Role)
	if !u.CreatedAt.IsZero() {
		fmt.Fprintf(out, "created: %s\n", u.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	}
}

// describe prints password rule failures one per line and returns err.
func describe(w io.Writer, err error) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		if v := apiErr.Violations(); len(v) > 0 {
			lines := make([]string, 0, len(v))
			for _, violation := range v {
				lines = append(lines, "  - "+violation.Message)
			}
			fmt.Fprintf(w, "password rejected:\n%s\n", strings.Join(lines, "\n"))
		}
	}
	return err
}
