package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/anvorisk/queuectl/store"
	"github.com/anvorisk/queuectl/store/sqlite"
)

var (
	cfgFile string
	v       = viper.New()
	log     = slog.New(slog.NewTextHandler(os.Stderr, nil))
)

// exitError pairs an error with the process exit code the CLI
// surface requires for it (2 for bad input / not found, 1 for
// I/O/fatal errors).
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func usageErr(format string, args ...any) error {
	return &exitError{code: 2, err: fmt.Errorf(format, args...)}
}

func fatalErr(err error) error {
	return &exitError{code: 1, err: err}
}

// ExitCodeFor maps an error returned by Execute to a process exit
// code. Unrecognized errors exit 1.
func ExitCodeFor(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

var rootCmd = &cobra.Command{
	Use:   "queuectl",
	Short: "A durable local background-job queue",
	Long: `queuectl enqueues named shell commands and runs them through a pool
of workers that lease, execute and finalize jobs with retry/backoff
and a dead-letter queue. All state lives in a single SQLite file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command tree. Callers should pass its return value
// to ExitCodeFor to determine the process exit code.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.queuectl.yaml)")
	rootCmd.PersistentFlags().String("db", "queuectl.db", "path to the SQLite database file")
	rootCmd.PersistentFlags().String("log-dir", "logs", "directory for per-job stdout/stderr logs")
	rootCmd.PersistentFlags().String("pid-file", "queuectl.pid", "path to the supervisor pid file")

	_ = v.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	_ = v.BindPFlag("log_dir", rootCmd.PersistentFlags().Lookup("log-dir"))
	_ = v.BindPFlag("pid_file", rootCmd.PersistentFlags().Lookup("pid-file"))

	v.SetEnvPrefix("QUEUECTL")
	v.AutomaticEnv()

	cobra.OnInitialize(func() {
		if cfgFile != "" {
			v.SetConfigFile(cfgFile)
			_ = v.ReadInConfig()
		}
	})
}

func dbPath() string      { return v.GetString("db") }
func logDir() string      { return v.GetString("log_dir") }
func pidFilePath() string { return v.GetString("pid_file") }

// openStore opens (without creating, if absent) the configured
// database and returns it as a store.Store, ready for CLI commands
// that only need the Store contract.
func openStore(ctx context.Context) (*sqlite.Store, func() error, error) {
	if _, err := os.Stat(dbPath()); err != nil {
		return nil, nil, fatalErr(fmt.Errorf("database %q not found; run 'queuectl init' first: %w", dbPath(), err))
	}
	db, err := sqlite.Open(ctx, dbPath())
	if err != nil {
		return nil, nil, fatalErr(fmt.Errorf("open database: %w", err))
	}
	st := sqlite.New(db, log)
	return st, st.Close, nil
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 10*time.Second)
}

var _ store.Store = (*sqlite.Store)(nil)
