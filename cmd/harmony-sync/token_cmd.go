package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/harmony-sync/internal/store"
	"github.com/vovakirdan/harmony-sync/internal/store/sqlite"
)

// tokenCmd groups the credential subcommands.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the stored session token",
}

var tokenSetCmd = &cobra.Command{
	Use:   "set <token>",
	Short: "Store a session token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCredentials(cmd.Context(), func(ctx context.Context, c *store.Credentials) error {
			return c.SetToken(ctx, args[0])
		})
	},
}

var tokenClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget the stored session token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCredentials(cmd.Context(), func(ctx context.Context, c *store.Credentials) error {
			return c.ClearToken(ctx)
		})
	},
}

var tokenShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Report whether a session token is stored",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCredentials(cmd.Context(), func(_ context.Context, c *store.Credentials) error {
			if c.HasToken() {
				fmt.Fprintln(cmd.OutOrStdout(), "token stored")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "no token stored")
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.AddCommand(tokenSetCmd, tokenClearCmd, tokenShowCmd)
}

func withCredentials(ctx context.Context, fn func(context.Context, *store.Credentials) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	return fn(ctx, store.NewCredentials(st))
}
