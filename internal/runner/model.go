package runner

// StepStatus represents the outcome of a step.
type StepStatus string

const (
	StatusPass StepStatus = "pass"
	StatusFail StepStatus = "fail"
	// StatusSkip marks steps never reached because an earlier one failed.
	StatusSkip StepStatus = "skip"
)

// StepResult records what happened to a single step.
type StepResult struct {
	Step   string
	Status StepStatus
}
