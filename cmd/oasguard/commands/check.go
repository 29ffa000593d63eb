package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/bartekus/oasguard/internal/guard"
	"github.com/bartekus/oasguard/internal/projectroot"
	"github.com/bartekus/oasguard/internal/trace"
)

func runCheck(ctx context.Context, stdout, stderr io.Writer) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	root, err := projectroot.Locate(wd)
	if err != nil {
		return fmt.Errorf("%w: %w", guard.ErrEnvironment, err)
	}
	return checkAt(ctx, root, stdout, stderr)
}

// checkAt runs the guard from inside root so relative paths in the
// generator resolve the same way they do in CI.
func checkAt(ctx context.Context, root string, stdout, stderr io.Writer) error {
	tracer := trace.New(stderr)
	tracer.Step("cd", "dir", root)
	if err := os.Chdir(root); err != nil {
		return fmt.Errorf("%w: %w", guard.ErrEnvironment, err)
	}

	return guard.Run(ctx, guard.Options{
		Layout: guard.DefaultLayout(root),
		Stdout: stdout,
		Stderr: stderr,
		Tracer: tracer,
	})
}
