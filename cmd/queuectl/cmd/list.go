package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/anvorisk/queuectl/job"
)

var listStateFlag string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs in a given state",
	RunE: func(c *cobra.Command, args []string) error {
		status, err := job.ParseStatus(listStateFlag)
		if err != nil {
			return usageErr("unknown state %q", listStateFlag)
		}
		ctx, cancel := withTimeout(c.Context())
		defer cancel()
		st, closeFn, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		jobs, err := st.GetByState(ctx, status)
		if err != nil {
			return fatalErr(err)
		}
		printJobList(c.OutOrStdout(), listStateFlag, jobs)
		return nil
	},
}

func printJobList(out io.Writer, state string, jobs []*job.Job) {
	if len(jobs) == 0 {
		fmt.Fprintf(out, "No jobs found with state: %s\n", state)
		return
	}
	fmt.Fprintf(out, "--- Jobs (%s) ---\n", state)
	for _, j := range jobs {
		fmt.Fprintf(out, "ID: %s\n", j.Id)
		fmt.Fprintf(out, "  Command:   %s\n", j.Command)
		fmt.Fprintf(out, "  State:     %s\n", j.Status)
		fmt.Fprintf(out, "  Attempts:  %d/%d\n", j.Attempts, j.MaxRetries)
		if j.RunAt != nil {
			fmt.Fprintf(out, "  Next Run:  %s\n", j.RunAt.Format("2006-01-02T15:04:05Z07:00"))
		}
		fmt.Fprintf(out, "  Created:   %s\n", j.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
		fmt.Fprintln(out, "--------------------")
	}
}

func init() {
	listCmd.Flags().StringVar(&listStateFlag, "state", "pending", "job state to list")
	rootCmd.AddCommand(listCmd)
}
