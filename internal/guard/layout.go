package guard

import (
	"fmt"
	"path/filepath"
)

const (
	// DocumentPath is the committed OpenAPI document, relative to the project root.
	DocumentPath = "docs/redoc/master/openapi.json"
	// GeneratorPath is the generator script, relative to the project root.
	GeneratorPath = "tools/generate_openapi_models.sh"
	// SnapshotMarker is inserted before the document's file name to name the snapshot.
	SnapshotMarker = ".diff."
)

// Layout locates the files the guard touches.
type Layout struct {
	Root      string
	Document  string
	Generator string
}

// DefaultLayout returns the standard layout anchored at root.
func DefaultLayout(root string) Layout {
	return Layout{
		Root:      root,
		Document:  DocumentPath,
		Generator: GeneratorPath,
	}
}

// SnapshotRel is the snapshot path relative to Root.
func (l Layout) SnapshotRel() string {
	dir, name := filepath.Split(filepath.FromSlash(l.Document))
	return filepath.Join(dir, SnapshotMarker+name)
}

func (l Layout) DocumentFile() string { return filepath.Join(l.Root, filepath.FromSlash(l.Document)) }
func (l Layout) SnapshotFile() string { return filepath.Join(l.Root, l.SnapshotRel()) }
func (l Layout) GeneratorFile() string { return filepath.Join(l.Root, filepath.FromSlash(l.Generator)) }

// Validate rejects layouts the guard cannot run safely.
func (l Layout) Validate() error {
	if l.Root == "" {
		return fmt.Errorf("%w: project root is empty", ErrEnvironment)
	}
	if l.Document == "" || l.Generator == "" {
		return fmt.Errorf("%w: document and generator paths are required", ErrEnvironment)
	}
	if filepath.Clean(l.SnapshotFile()) == filepath.Clean(l.DocumentFile()) {
		return fmt.Errorf("%w: snapshot path collides with %s", ErrEnvironment, l.Document)
	}
	if filepath.Clean(l.SnapshotFile()) == filepath.Clean(l.GeneratorFile()) {
		return fmt.Errorf("%w: snapshot path collides with %s", ErrEnvironment, l.Generator)
	}
	return nil
}
