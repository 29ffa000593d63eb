// Package trace echoes the guard's steps to stderr before they run, the way a
// shell script traces itself, and can be switched off around summary output.
package trace

import (
	"io"

	"github.com/charmbracelet/log"
)

// Marker starts every traced step, as in `set -x` output.
const Marker = "+"

// Tracer is not safe for concurrent use.
type Tracer struct {
	logger *log.Logger
	on     bool
}

// New returns an enabled Tracer writing to w.
func New(w io.Writer) *Tracer {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: false,
		Level:           log.InfoLevel,
	})
	return &Tracer{logger: logger, on: true}
}

// Discard returns a Tracer that drops everything.
func Discard() *Tracer {
	return New(io.Discard)
}

// Step traces an action about to be executed as "+ msg key=value...". It is
// a no-op while tracing is off.
func (t *Tracer) Step(msg string, keyvals ...any) {
	if t == nil || !t.on {
		return
	}
	// Print carries no level, so the line reads like shell tracing.
	t.logger.Print(Marker+" "+msg, keyvals...)
}

// Warn is printed even while tracing is off.
func (t *Tracer) Warn(msg string, keyvals ...any) {
	if t == nil {
		return
	}
	t.logger.Warn(msg, keyvals...)
}

// Quiet runs fn with tracing off and restores the previous state.
func (t *Tracer) Quiet(fn func() error) error {
	if t == nil {
		return fn()
	}
	prev := t.on
	t.on = false
	defer func() { t.on = prev }()
	return fn()
}
