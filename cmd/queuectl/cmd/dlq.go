package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anvorisk/queuectl/job"
	"github.com/anvorisk/queuectl/store"
)

var dlqCmd = &cobra.Command{
	Use:   "dlq",
	Short: "Manage the dead-letter queue",
}

var dlqListCmd = &cobra.Command{
	Use:   "list",
	Short: "List dead jobs",
	RunE: func(c *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(c.Context())
		defer cancel()
		st, closeFn, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		jobs, err := st.GetByState(ctx, job.Dead)
		if err != nil {
			return fatalErr(err)
		}
		out := c.OutOrStdout()
		if len(jobs) == 0 {
			fmt.Fprintln(out, "Dead Letter Queue is empty.")
			return nil
		}
		fmt.Fprintln(out, "--- Dead Letter Queue Jobs ---")
		for _, j := range jobs {
			fmt.Fprintf(out, "ID: %s\n", j.Id)
			fmt.Fprintf(out, "  Command:   %s\n", j.Command)
			fmt.Fprintf(out, "  Attempts:  %d/%d\n", j.Attempts, j.MaxRetries)
			fmt.Fprintf(out, "  Failed At: %s\n", j.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"))
			fmt.Fprintln(out, "--------------------")
		}
		return nil
	},
}

var dlqRetryCmd = &cobra.Command{
	Use:   "retry <id>",
	Short: "Move a dead job back to pending",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(c.Context())
		defer cancel()
		st, closeFn, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		if err := st.RetryDlq(ctx, args[0]); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return usageErr("job %q is not in the dead-letter queue", args[0])
			}
			return fatalErr(err)
		}
		fmt.Fprintf(c.OutOrStdout(), "%s requeued\n", args[0])
		return nil
	},
}

func init() {
	dlqCmd.AddCommand(dlqListCmd, dlqRetryCmd)
	rootCmd.AddCommand(dlqCmd)
}
