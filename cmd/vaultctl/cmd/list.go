package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list <user-key>",
	Short: "List the token records linked to a user key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, cleanup, err := newEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		records, err := engine.ListUserTokens(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("list tokens for %s: %w", args[0], err)
		}
		if len(records) == 0 {
			fmt.Println("no token records found")
			return nil
		}
		for _, record := range records {
			printRecord(record)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
