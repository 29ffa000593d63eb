// Package guard checks that the committed OpenAPI document is what the
// generator produces and that its number of paths is the expected one.
//
// Run executes four steps in order: snapshot the committed document,
// regenerate it in place, compare the two under a whitespace-tolerant rule,
// and count the regenerated document's paths. The snapshot is removed on
// every exit path.
package guard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/bartekus/oasguard/internal/apicount"
	"github.com/bartekus/oasguard/internal/generator"
	"github.com/bartekus/oasguard/internal/runner"
	"github.com/bartekus/oasguard/internal/textdiff"
	"github.com/bartekus/oasguard/internal/trace"
)

// ExpectedAPICount is the number of paths the maintainers have reviewed.
// Bump it only after checking READ_ONLY_POST_PATTERNS and READ_ONLY_RPC_PATHS.
const ExpectedAPICount = 51

// DevelopmentDocsURL explains how to regenerate the REST API documents.
const DevelopmentDocsURL = "https://github.com/qdrant/qdrant/blob/master/docs/DEVELOPMENT.md#rest"

var (
	// ErrEnvironment means the project layout is not what the guard expects.
	ErrEnvironment = errors.New("environment malformed")
	// ErrDrift means the committed document differs from the generated one.
	ErrDrift = errors.New("OpenAPI document drift detected")
)

// Options configures a run. Zero values select the defaults.
type Options struct {
	Layout Layout
	// ExpectedAPICount overrides the package constant when non-zero.
	ExpectedAPICount int
	Stdout           io.Writer
	Stderr           io.Writer
	Tracer           *trace.Tracer
}

func (o Options) withDefaults() Options {
	if o.ExpectedAPICount == 0 {
		o.ExpectedAPICount = ExpectedAPICount
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.Tracer == nil {
		o.Tracer = trace.New(o.Stderr)
	}
	return o
}

type check struct {
	opts     Options
	snapshot *Snapshot
}

// Run executes the guard. The returned error wraps ErrEnvironment, ErrDrift,
// apicount.ErrMalformed, or is a *generator.ExitError or
// *apicount.MismatchError.
func Run(ctx context.Context, opts Options) error {
	opts = opts.withDefaults()
	if err := opts.Layout.Validate(); err != nil {
		return err
	}

	c := &check{opts: opts}
	defer c.release()

	results, err := runner.NewRunner(
		runner.StepFunc("snapshot", c.takeSnapshot),
		runner.StepFunc("regenerate", c.regenerate),
		runner.StepFunc("compare", c.compare),
		runner.StepFunc("count", c.count),
	).Run(ctx)
	for _, res := range results {
		if res.Status == runner.StatusSkip {
			opts.Tracer.Step("skip", "step", res.Step)
		}
	}
	return err
}

// release removes the snapshot path even when this run never took a
// snapshot, so one left behind by an interrupted run does not survive.
func (c *check) release() {
	snap := c.snapshot
	if snap == nil {
		snap = &Snapshot{path: c.opts.Layout.SnapshotFile()}
	}
	c.opts.Tracer.Step("rm", "path", c.opts.Layout.SnapshotRel())
	if err := snap.Release(); err != nil {
		c.opts.Tracer.Warn("could not remove snapshot", "err", err)
	}
}

func (c *check) takeSnapshot(_ context.Context) error {
	l := c.opts.Layout
	c.opts.Tracer.Step("cp", "from", l.Document, "to", l.SnapshotRel())

	snap, err := TakeSnapshot(l.DocumentFile(), l.SnapshotFile())
	if err != nil {
		return err
	}
	c.snapshot = snap
	return nil
}

func (c *check) regenerate(ctx context.Context) error {
	l := c.opts.Layout
	c.opts.Tracer.Step("exec", "cmd", l.Generator, "dir", l.Root)

	err := generator.Run(ctx, generator.Command{
		Path:   l.GeneratorFile(),
		Dir:    l.Root,
		Stdout: c.opts.Stdout,
		Stderr: c.opts.Stderr,
	})
	var exitErr *generator.ExitError
	if err != nil && !errors.As(err, &exitErr) && errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: generator %s not found", ErrEnvironment, l.Generator)
	}
	return err
}

func (c *check) compare(_ context.Context) error {
	l := c.opts.Layout
	c.opts.Tracer.Step("diff", "committed", l.SnapshotRel(), "generated", l.Document)

	committed, err := os.ReadFile(c.snapshot.Path())
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	generated, err := os.ReadFile(l.DocumentFile())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: generator did not produce %s", ErrEnvironment, l.Document)
		}
		return fmt.Errorf("failed to read %s: %w", l.Document, err)
	}

	if textdiff.Equal(string(committed), string(generated)) {
		return c.opts.Tracer.Quiet(func() error {
			_, err := fmt.Fprintln(c.opts.Stdout, "No diffs found.")
			return err
		})
	}

	diff, err := textdiff.Unified(string(committed), string(generated), "a/"+l.Document, "b/"+l.Document)
	if err != nil {
		return err
	}
	werr := c.opts.Tracer.Quiet(func() error {
		if err := textdiff.Write(c.opts.Stdout, diff); err != nil {
			return err
		}
		_, err := fmt.Fprintf(c.opts.Stdout,
			"ERROR: Generated OpenAPI document is not consistent with the committed one.\n"+
				"Please regenerate it with %s and commit the result.\n"+
				"See %s\n", l.Generator, DevelopmentDocsURL)
		return err
	})
	if werr != nil {
		return fmt.Errorf("failed to report drift: %w", werr)
	}
	return ErrDrift
}

func (c *check) count(_ context.Context) error {
	l := c.opts.Layout
	c.opts.Tracer.Step("count paths", "file", l.Document)

	n, err := apicount.CountFile(l.DocumentFile())
	if err != nil {
		return err
	}

	err = apicount.Check(n, c.opts.ExpectedAPICount)
	var mismatch *apicount.MismatchError
	if !errors.As(err, &mismatch) {
		c.opts.Tracer.Step("paths counted", "count", n)
		return err
	}
	if werr := c.opts.Tracer.Quiet(func() error {
		_, err := io.WriteString(c.opts.Stdout, mismatch.Report())
		return err
	}); werr != nil {
		return fmt.Errorf("failed to report API count: %w", werr)
	}
	return mismatch
}
