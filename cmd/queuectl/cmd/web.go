package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/anvorisk/queuectl/internal/dashboard"
)

var webAddr string

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Start a read-only HTTP dashboard over the queue",
	RunE: func(c *cobra.Command, args []string) error {
		ctx, cancel := withTimeout(c.Context())
		defer cancel()
		st, closeFn, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		srv := dashboard.New(st, st, log)
		fmt.Fprintf(c.OutOrStdout(), "dashboard listening on %s\n", webAddr)
		if err := http.ListenAndServe(webAddr, srv); err != nil {
			return fatalErr(err)
		}
		return nil
	},
}

func init() {
	webCmd.Flags().StringVar(&webAddr, "addr", ":8080", "address to listen on")
	rootCmd.AddCommand(webCmd)
}
