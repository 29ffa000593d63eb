// Package clierr maps errors to process exit statuses.
package clierr

import "errors"

// ExitCoder is implemented by errors that choose the process exit status,
// such as a failed generator propagating its own status.
type ExitCoder interface {
	error
	ExitCode() int
}

// ExitCodeOf extracts an exit code from any error, defaulting to 1. The
// outermost ExitCoder in the chain wins.
func ExitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var ec ExitCoder
	if errors.As(err, &ec) {
		// A failure must never look like success.
		if code := ec.ExitCode(); code > 0 {
			return code
		}
	}
	return 1
}
