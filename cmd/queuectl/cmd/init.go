package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anvorisk/queuectl/store/sqlite"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database file, schema and default config",
	RunE: func(c *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(c.Context())
		defer cancel()
		db, err := sqlite.Open(ctx, dbPath())
		if err != nil {
			return fatalErr(err)
		}
		defer db.Close()
		fmt.Fprintf(c.OutOrStdout(), "initialized %s\n", dbPath())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
