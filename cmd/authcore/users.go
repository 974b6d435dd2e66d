package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/terrascope/authcore"
)

type userRecord struct {
	ID               string    `json:"id" yaml:"id"`
	Email            string    `json:"email" yaml:"email"`
	EmailVerified    bool      `json:"email_verified" yaml:"email_verified"`
	TwoFactorEnabled bool      `json:"two_factor_enabled" yaml:"two_factor_enabled"`
	CreatedAt        time.Time `json:"created_at" yaml:"created_at"`
}

type userList []userRecord

func (l userList) Headers() []string {
	return []string{"ID", "Email", "Verified", "2FA", "Created"}
}

func (l userList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, u := range l {
		rows = append(rows, []string{
			u.ID,
			u.Email,
			yesNo(u.EmailVerified),
			yesNo(u.TwoFactorEnabled),
			u.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return rows
}

func toRecords(users ...authcore.User) userList {
	out := make(userList, 0, len(users))
	for _, u := range users {
		out = append(out, userRecord{
			ID:               u.ID,
			Email:            u.Email,
			EmailVerified:    u.IsEmailVerified,
			TwoFactorEnabled: u.Is2FAEnabled,
			CreatedAt:        u.CreatedAt,
		})
	}
	return out
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func newUsersCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Account administration",
	}
	cmd.AddCommand(newUsersListCmd(opts), newUsersShowCmd(opts), newUsersCreateCmd(opts), newUsersVerifyCmd(opts))
	return cmd
}

func newUsersListCmd(opts *cliOptions) *cobra.Command {
	var offset, limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			users, err := rt.engine.ListUsers(cmd.Context(), offset, limit)
			if err != nil {
				return err
			}
			f, err := opts.formatter(cmd)
			if err != nil {
				return err
			}
			return f.Format(toRecords(users...))
		},
	}
	cmd.Flags().IntVar(&offset, "offset", 0, "skip this many accounts")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum accounts to list")
	return cmd
}

func newUsersShowCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|email>",
		Short: "Show one account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			var u authcore.User
			if strings.Contains(args[0], "@") {
				u, err = rt.store.GetByEmail(cmd.Context(), args[0])
			} else {
				u, err = rt.engine.CurrentUser(cmd.Context(), args[0])
			}
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			f, err := opts.formatter(cmd)
			if err != nil {
				return err
			}
			return f.Format(toRecords(u))
		},
	}
}

func newUsersCreateCmd(opts *cliOptions) *cobra.Command {
	var email, password string
	var verified bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account without sending mail",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || password == "" {
				return fmt.Errorf("email and password are required")
			}
			rt, err := openRuntime(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			u, err := rt.engine.CreateUser(cmd.Context(), email, password, verified)
			if err != nil {
				return err
			}
			opts.messages(cmd).Success("Created account %s", u.ID)

			f, err := opts.formatter(cmd)
			if err != nil {
				return err
			}
			return f.Format(toRecords(u))
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().BoolVar(&verified, "verified", false, "mark the email as already verified")
	return cmd
}

func newUsersVerifyCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <id>",
		Short: "Mark an account's email as verified",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer rt.Close()

			u, err := rt.engine.MarkEmailVerified(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			opts.messages(cmd).Success("Verified %s", u.Email)
			return nil
		},
	}
}
