// Package exec provides the invocation collaborator for the orchestration
// loop: it accepts a fully-materialized command, runs it with a timeout, and
// returns the timed three-part result (stdout, stderr, exit code) the core
// inspects. The core never looks past that result.
package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Config holds one command invocation.
type Config struct {
	// Command is the name or path of the binary to execute (required).
	Command string

	// Args are the command-line arguments.
	Args []string

	// WorkDir is the working directory for the command.
	WorkDir string

	// Env specifies environment variables in "KEY=value" form. Nil inherits
	// the parent environment.
	Env []string

	// Timeout bounds the execution. Zero means no timeout beyond the
	// parent context.
	Timeout time.Duration
}

// Result is the three-part outcome of one invocation.
type Result struct {
	// Stdout contains the captured standard output.
	Stdout []byte

	// Stderr contains the captured standard error.
	Stderr []byte

	// ExitCode is the process exit code; 0 means success.
	ExitCode int

	// Duration is the wall-clock execution time.
	Duration time.Duration

	// TimedOut reports that the configured timeout killed the process.
	TimedOut bool
}

// Runner abstracts command execution so the orchestration loop can be
// tested without spawning processes.
type Runner interface {
	// Run executes the command. A non-zero exit is not an error — the
	// Result carries the exit code and the caller decides. A timeout is
	// reported on the Result, not as an error. Only genuine execution
	// failures (binary missing, permission denied) return an error.
	Run(ctx context.Context, cfg Config) (*Result, error)
}

// LocalRunner executes commands on the local host.
type LocalRunner struct{}

// NewLocalRunner returns a Runner backed by os/exec.
func NewLocalRunner() *LocalRunner {
	return &LocalRunner{}
}

// Run implements Runner.
func (r *LocalRunner) Run(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.Command == "" {
		return nil, errors.New("command is required")
	}

	// The caller's context is kept separate from the timeout-derived child
	// so its expiry reads as a cancellation, not a per-operation timeout.
	parent := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	if cfg.WorkDir != "" {
		cmd.Dir = cfg.WorkDir
	}
	if cfg.Env != nil {
		cmd.Env = cfg.Env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if err != nil {
		if perr := parent.Err(); perr != nil {
			return result, fmt.Errorf("command cancelled: %w", perr)
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			result.TimedOut = true
			result.ExitCode = -1
			return result, nil
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("command execution failed: %w", err)
	}
	return result, nil
}

// SplitCommand breaks a materialized command line into the binary and its
// arguments. Quoting is not interpreted; scan tool invocations are built
// from templates the core controls.
func SplitCommand(line string) (string, []string, error) {
	fields := strings.Fields(strings.TrimSpace(line))
	if len(fields) == 0 {
		return "", nil, errors.New("empty command line")
	}
	return fields[0], fields[1:], nil
}

// BinaryExists reports whether a binary is present in PATH.
func BinaryExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// BinaryPath returns the full path to a binary in PATH.
func BinaryPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("binary %q not found in PATH: %w", name, err)
	}
	return path, nil
}
