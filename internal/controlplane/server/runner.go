package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// Result is a finished CLI invocation. A non-zero exit is not an error.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// ExitFunc is called once when a spawned process exits.
type ExitFunc func(exitCode int, err error)

// Runner runs the freqtrade CLI.
type Runner interface {
	// Run executes bin and waits. err is set only when the command could not run.
	Run(ctx context.Context, bin string, args ...string) (Result, error)
	// Spawn starts a long-running bin in its own process group with output appended to
	// logPath, and returns its pid without waiting.
	Spawn(bin string, args []string, logPath string, onExit ExitFunc) (int, error)
	// Alive reports whether pid is still a run this server spawned: the process
	// exists and leads its own process group.
	Alive(pid int) bool
	// Terminate sends SIGTERM to the process group, then SIGKILL after timeout.
	// killed reports whether SIGKILL was needed.
	Terminate(pid int, timeout time.Duration) (killed bool, err error)
}

type execRunner struct{}

func NewExecRunner() Runner { return execRunner{} }

func (execRunner) Run(ctx context.Context, bin string, args ...string) (Result, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	var ee *exec.ExitError
	if errors.As(err, &ee) && ctx.Err() == nil {
		res.ExitCode = exitStatus(ee)
		return res, nil
	}
	if err != nil {
		return res, fmt.Errorf("run %s: %w", bin, err)
	}
	return res, nil
}

func (execRunner) Spawn(bin string, args []string, logPath string, onExit ExitFunc) (int, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return 0, err
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, err
	}

	cmd := exec.Command(bin, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		_ = logFile.Close()
		return 0, fmt.Errorf("spawn %s: %w", bin, err)
	}
	pid := cmd.Process.Pid

	go func() {
		waitErr := cmd.Wait()
		_ = logFile.Close()
		exitCode := 0
		if waitErr != nil {
			var ee *exec.ExitError
			if errors.As(waitErr, &ee) {
				exitCode = exitStatus(ee)
			} else {
				exitCode = 1
			}
		}
		if onExit != nil {
			onExit(exitCode, waitErr)
		}
	}()
	return pid, nil
}

func (execRunner) Alive(pid int) bool {
	return ownsGroup(pid)
}

func (execRunner) Terminate(pid int, timeout time.Duration) (bool, error) {
	return stopProcessGroup(pid, timeout)
}
