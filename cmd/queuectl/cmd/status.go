package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/anvorisk/queuectl/job"
)

var titleCaser = cases.Title(language.English)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print per-state job counts and worker liveness",
	RunE: func(c *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(c.Context())
		defer cancel()
		st, closeFn, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		out := c.OutOrStdout()
		fmt.Fprintln(out, "--- Job Status ---")
		summary, err := st.Summary(ctx)
		if err != nil {
			return fatalErr(err)
		}
		if len(summary) == 0 {
			fmt.Fprintln(out, "No jobs in the queue.")
		} else {
			for _, s := range []job.Status{job.Pending, job.Scheduled, job.Processing, job.Failed, job.Completed, job.Dead} {
				if n, ok := summary[s]; ok {
					fmt.Fprintf(out, "- %-12s: %d\n", titleCaser.String(s.String()), n)
				}
			}
			fmt.Fprintf(out, "- %-12s: %d\n", "Total", summary.Total())
		}

		fmt.Fprintln(out, "\n--- Worker Status ---")
		printWorkerStatus(out)
		return nil
	},
}

func printWorkerStatus(out io.Writer) {
	data, err := os.ReadFile(pidFilePath())
	if err != nil {
		fmt.Fprintln(out, "Inactive: no pid file found.")
		return
	}
	pid := strings.TrimSpace(string(data))
	if pid == "" {
		fmt.Fprintln(out, "Inactive: pid file is empty.")
		return
	}
	fmt.Fprintf(out, "Active: supervisor running (pid %s)\n", pid)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
