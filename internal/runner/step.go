package runner

import "context"

// Step is one stage of a pipeline.
type Step interface {
	// ID names the step in traces and results (e.g. "snapshot").
	ID() string

	// Run executes the step. A non-nil error aborts the pipeline.
	Run(ctx context.Context) error
}

type stepFunc struct {
	id string
	fn func(ctx context.Context) error
}

func (s stepFunc) ID() string { return s.id }
func (s stepFunc) Run(ctx context.Context) error { return s.fn(ctx) }

// StepFunc adapts a function to the Step interface.
func StepFunc(id string, fn func(ctx context.Context) error) Step {
	return stepFunc{id: id, fn: fn}
}
