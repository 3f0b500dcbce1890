package executor

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/anvorisk/queuectl/job"
)

// ErrStillRunning is returned by Handle.Poll while the child process
// has not yet exited.
var ErrStillRunning = errors.New("executor: job still running")

// TimeoutExitCode is the synthetic, non-zero exit code reported for a
// job killed after exceeding its timeout, so the finalize path always
// treats a timeout as a failed attempt.
const TimeoutExitCode = -1

// Handle represents one in-flight child process: start it, poll for
// exit, escalate from a graceful terminate to a forceful kill, and
// release its resources when done.
type Handle interface {
	// Poll returns the process exit code once the child has exited, or
	// ErrStillRunning if it has not. It is safe to call repeatedly.
	Poll() (int, error)

	// Terminate asks the child to exit gracefully (SIGTERM).
	Terminate() error

	// Kill forcibly ends the child (SIGKILL).
	Kill() error

	// Close releases the handle's log file descriptors. Safe to call
	// more than once and after the process has exited.
	Close() error
}

// Executor spawns a child process for a single job, non-blocking.
type Executor interface {
	// Start spawns job.Command through the shell and returns a Handle
	// for it. The shell interprets the command; the Executor performs
	// no argument splitting.
	Start(j *job.Job) (Handle, error)
}

// shellExecutor is the default Executor: one os/exec child process
// per job, run in its own process group so a timeout can reach any
// grandchildren it spawns.
type shellExecutor struct {
	logDir string
	shell  string
}

// New returns an Executor that redirects each job's stdout/stderr to
// <logDir>/<job.id>.out.log and <logDir>/<job.id>.err.log, creating
// logDir if it does not already exist.
func New(logDir string) (*shellExecutor, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("executor: create log dir: %w", err)
	}
	return &shellExecutor{logDir: logDir, shell: shellPath()}, nil
}

func shellPath() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}

func (e *shellExecutor) Start(j *job.Job) (Handle, error) {
	outPath := filepath.Join(e.logDir, j.Id+".out.log")
	errPath := filepath.Join(e.logDir, j.Id+".err.log")

	outFile, err := os.Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("executor: open stdout log: %w", err)
	}
	errFile, err := os.Create(errPath)
	if err != nil {
		_ = outFile.Close()
		return nil, fmt.Errorf("executor: open stderr log: %w", err)
	}

	cmd := exec.Command(e.shell, "-c", j.Command)
	cmd.Stdout = outFile
	cmd.Stderr = errFile
	// Put the child in its own process group so a timeout kill can
	// also reach any grandchildren the shell spawns.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		_ = outFile.Close()
		_ = errFile.Close()
		return nil, fmt.Errorf("executor: start: %w", err)
	}

	return &processHandle{cmd: cmd, outFile: outFile, errFile: errFile}, nil
}

type processHandle struct {
	cmd      *exec.Cmd
	outFile  *os.File
	errFile  *os.File
	mu       sync.Mutex
	waited   bool
	exitCode int
	waitErr  error
}

func (h *processHandle) Poll() (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.waited {
		return h.exitCode, nil
	}

	var status syscall.WaitStatus
	pid, err := syscall.Wait4(h.cmd.Process.Pid, &status, syscall.WNOHANG, nil)
	if err != nil {
		return 0, err
	}
	if pid == 0 {
		return 0, ErrStillRunning
	}

	h.waited = true
	switch {
	case status.Exited():
		h.exitCode = status.ExitStatus()
	case status.Signaled():
		h.exitCode = TimeoutExitCode
	default:
		h.exitCode = TimeoutExitCode
	}
	return h.exitCode, nil
}

func (h *processHandle) Terminate() error {
	return h.signalGroup(syscall.SIGTERM)
}

func (h *processHandle) Kill() error {
	return h.signalGroup(syscall.SIGKILL)
}

func (h *processHandle) signalGroup(sig syscall.Signal) error {
	pgid, err := syscall.Getpgid(h.cmd.Process.Pid)
	if err != nil {
		// The process may have already exited; nothing to signal.
		return nil
	}
	if err := syscall.Kill(-pgid, sig); err != nil && !errors.Is(err, syscall.ESRCH) {
		return err
	}
	return nil
}

func (h *processHandle) Close() error {
	return errors.Join(h.outFile.Close(), h.errFile.Close())
}
