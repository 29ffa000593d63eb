// Package generator runs the project's OpenAPI generator as an opaque child
// process.
package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"syscall"
	"time"
)

// WaitDelay is how long an interrupted generator gets to exit after SIGTERM
// before it is killed.
const WaitDelay = 5 * time.Second

// Command describes one generator invocation.
type Command struct {
	// Path is the generator executable. It is run with no arguments.
	Path string
	// Dir is the working directory, the project root.
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
}

// ExitError is returned when the generator exits with a non-zero status.
type ExitError struct {
	Path string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Path, e.Code)
}

// ExitCode lets the CLI propagate the generator's status.
func (e *ExitError) ExitCode() int { return e.Code }

// Run executes the generator and waits for it. Cancelling ctx sends SIGTERM to
// the child.
func Run(ctx context.Context, c Command) error {
	cmd := exec.CommandContext(ctx, c.Path)
	cmd.Dir = c.Dir
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = WaitDelay

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s interrupted: %w", c.Path, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code <= 0 {
			// Killed by a signal we did not send.
			code = 1
		}
		return &ExitError{Path: c.Path, Code: code}
	}
	return fmt.Errorf("failed to start %s: %w", c.Path, err)
}
