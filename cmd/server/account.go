package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirebridge/internal/auth"
	"github.com/vovakirdan/wirebridge/internal/store/sqlite"
)

var (
	accountPassword string
	accountAdmin    bool
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage bridge accounts",
}

var accountAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if n := utf8.RuneCountInString(accountPassword); n < 3 || n > 1024 {
			return errors.New("password has to be between 3 and 1024 characters long")
		}
		return withStore(func(st *sqlite.SQLiteStore) error {
			ctx := cmd.Context()
			if err := auth.NewAccounts(st).InsertAccount(ctx, args[0], accountPassword, "cli"); err != nil {
				return fmt.Errorf("create account: %w", err)
			}
			if accountAdmin {
				if err := st.SetAdmin(ctx, args[0], true); err != nil {
					return fmt.Errorf("grant admin: %w", err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created account %s (admin=%t)\n", args[0], accountAdmin)
			return nil
		})
	},
}

var accountBlockCmd = &cobra.Command{
	Use:   "block <username>",
	Short: "Block an account from logging in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setBlocked(cmd, args[0], true)
	},
}

var accountUnblockCmd = &cobra.Command{
	Use:   "unblock <username>",
	Short: "Allow a blocked account to log in again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setBlocked(cmd, args[0], false)
	},
}

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withStore(func(st *sqlite.SQLiteStore) error {
			accounts, err := st.ListAccounts(cmd.Context())
			if err != nil {
				return fmt.Errorf("list accounts: %w", err)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "USERNAME\tADMIN\tBLOCKED\tREGISTER IP\tLOGIN IP")
			for _, a := range accounts {
				fmt.Fprintf(w, "%s\t%t\t%t\t%s\t%s\n", a.Username, a.IsAdmin, a.IsBlocked, a.RegisterIP, a.LoginIP)
			}
			return w.Flush()
		})
	},
}

func init() {
	accountAddCmd.Flags().StringVarP(&accountPassword, "password", "p", "", "account password")
	accountAddCmd.Flags().BoolVar(&accountAdmin, "admin", false, "grant admin rights")
	_ = accountAddCmd.MarkFlagRequired("password")

	accountCmd.AddCommand(accountAddCmd, accountBlockCmd, accountUnblockCmd, accountListCmd)
	rootCmd.AddCommand(accountCmd)
}

func setBlocked(cmd *cobra.Command, username string, blocked bool) error {
	return withStore(func(st *sqlite.SQLiteStore) error {
		if err := st.SetBlocked(cmd.Context(), username, blocked); err != nil {
			return fmt.Errorf("update account: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "account %s blocked=%t\n", username, blocked)
		return nil
	})
}

func withStore(fn func(st *sqlite.SQLiteStore) error) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	return fn(st)
}
