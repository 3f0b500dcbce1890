package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	engine "github.com/anvorisk/queuectl"
	"github.com/anvorisk/queuectl/executor"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Manage the worker fleet",
}

var workerCount int

var workerStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the supervisor with N workers in the foreground",
	RunE: func(c *cobra.Command, args []string) error {
		ctx := c.Context()

		st, closeFn, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		ex, err := executor.New(logDir())
		if err != nil {
			return fatalErr(err)
		}

		sup := engine.NewSupervisor(st, ex, engine.SupervisorConfig{
			WorkerCount: workerCount,
			PidFile:     pidFilePath(),
		}, log)

		fmt.Fprintf(c.OutOrStdout(), "starting %d worker(s), pid file %s\n", workerCount, pidFilePath())
		if err := sup.Run(ctx); err != nil {
			if errors.Is(err, engine.ErrAlreadyRunning) {
				return usageErr("%v", err)
			}
			return fatalErr(err)
		}
		fmt.Fprintln(c.OutOrStdout(), "all workers shut down")
		return nil
	},
}

var workerStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Signal the running supervisor to exit",
	RunE: func(c *cobra.Command, args []string) error {
		if err := engine.SignalStop(pidFilePath()); err != nil {
			return usageErr("could not signal supervisor: %v", err)
		}
		fmt.Fprintln(c.OutOrStdout(), "stop signal sent")
		return nil
	},
}

func init() {
	workerStartCmd.Flags().IntVar(&workerCount, "count", 1, "number of workers to run")
	workerCmd.AddCommand(workerStartCmd, workerStopCmd)
	rootCmd.AddCommand(workerCmd)
}
