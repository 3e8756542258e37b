package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Result is the captured outcome of one subprocess
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Executor runs a command in dir and captures its output
type Executor interface {
	Run(ctx context.Context, dir string, argv []string) (Result, error)
}

// ExecExecutor runs real subprocesses
type ExecExecutor struct {
	// Timeout bounds a single step; zero means no limit
	Timeout time.Duration
}

// Run executes argv and returns an error for a non-zero exit status
func (e ExecExecutor) Run(ctx context.Context, dir string, argv []string) (Result, error) {
	if len(argv) == 0 {
		return Result{}, fmt.Errorf("empty command")
	}
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout: strings.TrimSpace(stdout.String()),
		Stderr: strings.TrimSpace(stderr.String()),
	}
	if ctx.Err() != nil {
		res.ExitCode = -1
		if e.Timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return res, fmt.Errorf("command timeout after %s", e.Timeout)
		}
		return res, fmt.Errorf("command aborted: %w", ctx.Err())
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
		}
		return res, err
	}
	return res, nil
}
