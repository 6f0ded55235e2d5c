package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var skipFailed bool

var refreshAllCmd = &cobra.Command{
	Use:   "refresh-all",
	Short: "Run a bulk refresh pass over every stored token record",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, cleanup, err := newEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		if err := engine.RefreshAllTokens(cmd.Context(), skipFailed); err != nil {
			return fmt.Errorf("bulk refresh failed: %w", err)
		}
		fmt.Println("bulk refresh pass completed")
		return nil
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh <user-key> <provider-id>",
	Short: "Refresh one user's tokens for a provider",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, cleanup, err := newEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		userKey, providerID := args[0], args[1]
		if err := engine.RefreshUserTokens(cmd.Context(), userKey, providerID); err != nil {
			return fmt.Errorf("refresh for %s/%s failed: %w", userKey, providerID, err)
		}
		fmt.Printf("refresh completed for %s/%s\n", userKey, providerID)
		return nil
	},
}

func init() {
	refreshAllCmd.Flags().BoolVar(&skipFailed, "skip-failed", false, "skip records already marked failed")
	rootCmd.AddCommand(refreshAllCmd)
	rootCmd.AddCommand(refreshCmd)
}
