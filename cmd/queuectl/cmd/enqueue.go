package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/anvorisk/queuectl/policy"
	"github.com/anvorisk/queuectl/store"
)

// enqueueRequest mirrors the CLI's enqueue wire format. Unknown JSON
// fields are ignored by default via encoding/json's usual decoding.
type enqueueRequest struct {
	Id         string  `json:"id"`
	Command    string  `json:"command"`
	MaxRetries *uint32 `json:"max_retries"`
	RunAt      string  `json:"run_at"`
	Priority   int     `json:"priority"`
	Timeout    int     `json:"timeout"`
}

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <json>",
	Short: "Parse a JSON job description and insert it",
	Args:  cobra.ExactArgs(1),
	RunE: func(c *cobra.Command, args []string) error {
		var req enqueueRequest
		if err := json.Unmarshal([]byte(args[0]), &req); err != nil {
			return usageErr("invalid JSON: %v", err)
		}
		if req.Id == "" || req.Command == "" {
			return usageErr("job data must include 'id' and 'command'")
		}

		ctx, cancel := withTimeout(c.Context())
		defer cancel()
		st, closeFn, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		opts := store.EnqueueOptions{
			MaxRetries: req.MaxRetries,
			Priority:   req.Priority,
		}
		if req.Timeout > 0 {
			opts.Timeout = time.Duration(req.Timeout) * time.Second
		}
		if req.RunAt != "" {
			runAt, err := policy.ParseRunAt(req.RunAt, time.Now(), time.Local)
			if err != nil {
				return usageErr("invalid run_at: %v", err)
			}
			opts.RunAt = runAt
		}

		j, err := st.Enqueue(ctx, req.Id, req.Command, opts)
		if err != nil {
			if errors.Is(err, store.ErrDuplicateID) {
				return usageErr("job %q already exists", req.Id)
			}
			return fatalErr(err)
		}
		fmt.Fprintf(c.OutOrStdout(), "enqueued %s (%s)\n", j.Id, j.Status)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(enqueueCmd)
}
