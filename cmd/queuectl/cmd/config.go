package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var allowedConfigKeys = map[string]bool{
	"max_retries":  true,
	"backoff_base": true,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage system configuration (max_retries, backoff_base)",
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(c *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if !allowedConfigKeys[key] {
			return usageErr("unknown config key %q (allowed: max_retries, backoff_base)", key)
		}
		ctx, cancel := withTimeout(c.Context())
		defer cancel()
		st, closeFn, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeFn()
		if err := st.SetConfig(ctx, key, value); err != nil {
			return fatalErr(err)
		}
		fmt.Fprintf(c.OutOrStdout(), "%s = %s\n", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
