// Package runner executes pipeline steps strictly in order and stops at the
// first failure.
package runner

import (
	"context"
	"fmt"
)

// Runner manages the execution of steps.
type Runner struct {
	steps []Step
}

// NewRunner creates a runner over steps.
func NewRunner(steps ...Step) *Runner {
	return &Runner{steps: steps}
}

// Run executes every step in order. The first failing step ends the run; the
// steps after it are reported as skipped. The returned error is the failing
// step's error, unwrapped so callers can inspect it with errors.Is/As.
func (r *Runner) Run(ctx context.Context) ([]StepResult, error) {
	results := make([]StepResult, 0, len(r.steps))

	var failure error
	for _, step := range r.steps {
		id := step.ID()
		if failure != nil {
			results = append(results, StepResult{Step: id, Status: StatusSkip})
			continue
		}

		if err := ctx.Err(); err != nil {
			failure = fmt.Errorf("%s: %w", id, err)
			results = append(results, StepResult{Step: id, Status: StatusFail})
			continue
		}

		res := StepResult{Step: id, Status: StatusPass}
		if err := step.Run(ctx); err != nil {
			res.Status = StatusFail
			failure = err
		}
		results = append(results, res)
	}

	return results, failure
}
