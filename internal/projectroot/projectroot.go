// Package projectroot locates the root of the project the guard checks.
package projectroot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Marker is the file, relative to the root, that identifies a project root.
const Marker = "tools/generate_openapi_models.sh"

// ErrNotFound is returned when no directory qualifies as the project root.
var ErrNotFound = errors.New("project root not found")

// Locate returns the project root for the running executable, falling back to
// a search upward from wd when the executable does not live inside a project
// (for example under go run).
func Locate(wd string) (string, error) {
	if exe, err := os.Executable(); err == nil {
		if root, err := FromExecutable(exe); err == nil {
			return root, nil
		}
	}
	return Find(wd)
}

// FromExecutable returns the parent of the directory containing exe, as long
// as it carries the marker.
func FromExecutable(exe string) (string, error) {
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	abs, err := filepath.Abs(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", exe, err)
	}
	root := filepath.Dir(filepath.Dir(abs))
	if !hasMarker(root) {
		return "", fmt.Errorf("%w: %s has no %s", ErrNotFound, root, Marker)
	}
	return root, nil
}

// Find walks up from start until it reaches a directory carrying the marker.
func Find(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", start, err)
	}
	for {
		if hasMarker(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w: no %s above %s", ErrNotFound, Marker, start)
		}
		dir = parent
	}
}

func hasMarker(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(Marker)))
	return err == nil && !info.IsDir()
}
