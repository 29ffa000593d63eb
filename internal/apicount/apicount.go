// Package apicount counts the HTTP paths declared by an OpenAPI document and
// checks the count against the number the maintainers have signed off on.
package apicount

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrMalformed is wrapped by every error caused by a document that cannot be
// inspected: invalid JSON, a non-object top level, or a missing or non-object
// "paths" member.
var ErrMalformed = errors.New("malformed OpenAPI document")

// Count returns the number of direct members of the top-level "paths" object.
// Duplicate member names are counted once.
func Count(data []byte) (int, error) {
	if !gjson.ValidBytes(data) {
		return 0, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}

	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return 0, fmt.Errorf("%w: top level is %s, not an object", ErrMalformed, kind(doc))
	}

	// A JSON object decoder keeps the last duplicate, so do the same.
	var paths gjson.Result
	found := false
	doc.ForEach(func(key, value gjson.Result) bool {
		if key.String() == "paths" {
			paths = value
			found = true
		}
		return true
	})

	if !found {
		return 0, fmt.Errorf("%w: missing top-level \"paths\" member", ErrMalformed)
	}
	if !paths.IsObject() {
		return 0, fmt.Errorf("%w: \"paths\" is %s, not an object", ErrMalformed, kind(paths))
	}

	seen := make(map[string]struct{})
	paths.ForEach(func(key, _ gjson.Result) bool {
		seen[key.String()] = struct{}{}
		return true
	})
	return len(seen), nil
}

// CountFile reads path and counts its paths.
func CountFile(path string) (int, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the guard layout
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	n, err := Count(data)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}

func kind(r gjson.Result) string {
	switch {
	case r.IsArray():
		return "an array"
	case r.Type == gjson.String:
		return "a string"
	case r.Type == gjson.Number:
		return "a number"
	case r.Type == gjson.True, r.Type == gjson.False:
		return "a boolean"
	case r.Type == gjson.Null:
		return "null"
	default:
		return "unknown"
	}
}

// MismatchError reports an API count that differs from the expected one.
type MismatchError struct {
	Expected int
	Actual   int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("API count mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Report renders the remediation block shown to contributors.
func (e *MismatchError) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ERROR: Expected: %d APIs, got: %d.\n", e.Expected, e.Actual)
	b.WriteString("The API surface has changed. Review READ_ONLY_POST_PATTERNS and\n")
	b.WriteString("READ_ONLY_RPC_PATHS so that new endpoints get the correct read-only\n")
	b.WriteString("access mode, then update the expected API count in the guard.\n")
	return b.String()
}

// Check returns a *MismatchError when actual differs from expected.
func Check(actual, expected int) error {
	if actual != expected {
		return &MismatchError{Expected: expected, Actual: actual}
	}
	return nil
}
