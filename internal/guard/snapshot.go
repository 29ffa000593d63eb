package guard

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Snapshot is a pre-regeneration copy of the committed document. It must be
// released on every exit path.
type Snapshot struct {
	path     string
	released bool
}

// TakeSnapshot copies src to dst, replacing a snapshot left behind by an
// interrupted run. A missing src is reported as ErrEnvironment.
func TakeSnapshot(src, dst string) (*Snapshot, error) {
	in, err := os.Open(src) //nolint:gosec // path comes from the guard layout
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrEnvironment, src)
		}
		return nil, fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", src, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrEnvironment, src)
	}

	// Write next to dst and rename so a snapshot is never half-written.
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".snapshot-tmp-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot %s: %w", dst, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, in); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("failed to chmod snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to write snapshot %s: %w", dst, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return nil, fmt.Errorf("failed to move snapshot to %s: %w", dst, err)
	}
	return &Snapshot{path: dst}, nil
}

// Path returns the snapshot file path.
func (s *Snapshot) Path() string { return s.path }

// Release removes the snapshot. It is idempotent and a file that is already
// gone is not an error.
func (s *Snapshot) Release() error {
	if s == nil || s.released {
		return nil
	}
	s.released = true
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove snapshot %s: %w", s.path, err)
	}
	return nil
}
