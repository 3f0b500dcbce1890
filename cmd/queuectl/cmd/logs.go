package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var logsStderr bool

var logsCmd = &cobra.Command{
	Use:   "logs <id>",
	Short: "Dump the stdout or stderr log file for a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		id := args[0]
		suffix := "out.log"
		if logsStderr {
			suffix = "err.log"
		}
		path := filepath.Join(logDir(), id+"."+suffix)
		data, err := os.ReadFile(path)
		if err != nil {
			return usageErr("log file not found: %s", path)
		}
		fmt.Fprint(c.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	logsCmd.Flags().Bool("stdout", true, "show the stdout log (default)")
	logsCmd.Flags().BoolVar(&logsStderr, "stderr", false, "show the stderr log")
	rootCmd.AddCommand(logsCmd)
}
