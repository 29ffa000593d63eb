package guard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bartekus/oasguard/internal/apicount"
	"github.com/bartekus/oasguard/internal/generator"
	"github.com/bartekus/oasguard/internal/trace"
)

// copyFixture makes the generator reproduce tools/fixture.json.
const copyFixture = "cp tools/fixture.json " + DocumentPath

// openAPIDocument renders a document with n paths, three lines per path,
// starting at line 4. Line 10 is the key of the third path.
func openAPIDocument(n int) string {
	var b strings.Builder
	b.WriteString("{\n")
	b.WriteString("  \"openapi\": \"3.0.1\",\n")
	b.WriteString("  \"paths\": {\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "    \"/collections/%d\": {\n", i)
		b.WriteString("      \"get\": {}\n")
		if i == n-1 {
			b.WriteString("    }\n")
		} else {
			b.WriteString("    },\n")
		}
	}
	b.WriteString("  }\n")
	b.WriteString("}\n")
	return b.String()
}

type project struct {
	root   string
	stdout bytes.Buffer
	stderr bytes.Buffer
}

// newProject lays out a project whose committed document is committed and
// whose generator runs script.
func newProject(t *testing.T, committed, script string) *project {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("generator scripts need a POSIX shell")
	}

	root := t.TempDir()
	doc := filepath.Join(root, filepath.FromSlash(DocumentPath))
	require.NoError(t, os.MkdirAll(filepath.Dir(doc), 0o750))
	require.NoError(t, os.WriteFile(doc, []byte(committed), 0o600))

	gen := filepath.Join(root, filepath.FromSlash(GeneratorPath))
	require.NoError(t, os.MkdirAll(filepath.Dir(gen), 0o750))
	require.NoError(t, os.WriteFile(gen, []byte("#!/bin/sh\n"+script+"\n"), 0o755)) //nolint:gosec // generator must be executable

	return &project{root: root}
}

// newGeneratedProject is newProject with a generator that writes generated.
func newGeneratedProject(t *testing.T, committed, generated string) *project {
	t.Helper()
	p := newProject(t, committed, copyFixture)
	require.NoError(t, os.WriteFile(filepath.Join(p.root, "tools", "fixture.json"), []byte(generated), 0o600))
	return p
}

func (p *project) run(t *testing.T) error {
	t.Helper()
	p.stdout.Reset()
	p.stderr.Reset()
	return Run(context.Background(), Options{
		Layout: DefaultLayout(p.root),
		Stdout: &p.stdout,
		Stderr: &p.stderr,
		Tracer: trace.New(&p.stderr),
	})
}

func (p *project) output() string {
	return p.stdout.String() + p.stderr.String()
}

func (p *project) tree(t *testing.T) map[string]string {
	t.Helper()
	files := map[string]string{}
	err := filepath.WalkDir(p.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(path) //nolint:gosec // test tree
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(p.root, path)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return files
}

func (p *project) assertNoSnapshot(t *testing.T) {
	t.Helper()
	_, err := os.Stat(DefaultLayout(p.root).SnapshotFile())
	assert.True(t, errors.Is(err, fs.ErrNotExist), "snapshot must not remain on disk")
}

func TestRun_MatchingDocument(t *testing.T) {
	doc := openAPIDocument(51)
	p := newGeneratedProject(t, doc, doc)
	before := p.tree(t)

	for i := 0; i < 2; i++ {
		require.NoError(t, p.run(t), p.output())
		assert.Contains(t, p.stdout.String(), "No diffs found.")
		p.assertNoSnapshot(t)
		assert.Equal(t, before, p.tree(t), "working tree must be left untouched")
	}
}

func TestRun_TracesStepsToStderr(t *testing.T) {
	doc := openAPIDocument(51)
	p := newGeneratedProject(t, doc, doc)

	require.NoError(t, p.run(t))
	stderr := p.stderr.String()
	for _, step := range []string{"+ cp ", "+ exec ", "+ diff ", "+ count paths ", "+ rm "} {
		assert.Equal(t, 1, strings.Count(stderr, step), "%q traced once", step)
	}
	assert.Contains(t, stderr, GeneratorPath)
	assert.NotContains(t, stderr, "INFO")
	assert.NotContains(t, stderr, "No diffs found.")
	assert.NotContains(t, stderr, "skip")
	assert.NotContains(t, p.stdout.String(), "+ cp ")
}

func TestRun_TracesSkippedSteps(t *testing.T) {
	p := newGeneratedProject(t, openAPIDocument(51), openAPIDocument(52))

	require.ErrorIs(t, p.run(t), ErrDrift)
	assert.Contains(t, p.stderr.String(), "+ skip step=count")
	assert.NotContains(t, p.stderr.String(), "+ count paths")
}

func TestRun_Drift(t *testing.T) {
	p := newGeneratedProject(t, openAPIDocument(51), openAPIDocument(52))

	err := p.run(t)
	require.ErrorIs(t, err, ErrDrift)

	out := p.stdout.String()
	assert.Contains(t, out, "--- a/"+DocumentPath)
	assert.Contains(t, out, "+++ b/"+DocumentPath)
	assert.Contains(t, out, `+ "/collections/51": {`)
	assert.Contains(t, out, "DEVELOPMENT.md#rest")
	assert.NotContains(t, out, "No diffs found.")
	p.assertNoSnapshot(t)
}

func TestRun_DriftFromSingleCharacterEdits(t *testing.T) {
	generated := openAPIDocument(51)
	edits := map[string]string{
		"changed key":       strings.Replace(generated, "/collections/7\"", "/collections/8\"", 1),
		"changed version":   strings.Replace(generated, "3.0.1", "3.0.2", 1),
		"removed comma":     strings.Replace(generated, "\"3.0.1\",", "\"3.0.1\"", 1),
		"removed space":     strings.Replace(generated, "\"openapi\": ", "\"openapi\":", 1),
		"added letter":      strings.Replace(generated, "\"get\"", "\"gets\"", 1),
		"removed last line": strings.TrimSuffix(generated, "}\n"),
	}

	for name, committed := range edits {
		t.Run(name, func(t *testing.T) {
			require.NotEqual(t, generated, committed)
			p := newGeneratedProject(t, committed, generated)

			require.ErrorIs(t, p.run(t), ErrDrift)
			assert.Contains(t, p.stdout.String(), "@@")
			p.assertNoSnapshot(t)
		})
	}
}

func TestRun_WhitespaceOnlyDifferences(t *testing.T) {
	generated := openAPIDocument(51)
	lines := strings.Split(generated, "\n")

	line10 := append([]string(nil), lines...)
	line10[9] = "  " + line10[9]
	require.Contains(t, line10[9], `"/collections/2"`)

	edits := map[string]string{
		"two spaces before key on line 10": strings.Join(line10, "\n"),
		"trailing whitespace":              strings.ReplaceAll(generated, ",\n", ",  \t\n"),
		"crlf line endings":                strings.ReplaceAll(generated, "\n", "\r\n"),
		"tabs for indentation":             strings.ReplaceAll(generated, "    \"", "\t\""),
		"expanded inner run":               strings.Replace(generated, "\"openapi\": ", "\"openapi\":     ", 1),
		"no final newline":                 strings.TrimSuffix(generated, "\n"),
	}

	for name, committed := range edits {
		t.Run(name, func(t *testing.T) {
			p := newGeneratedProject(t, committed, generated)

			require.NoError(t, p.run(t), p.output())
			assert.Contains(t, p.stdout.String(), "No diffs found.")
			p.assertNoSnapshot(t)
		})
	}
}

func TestRun_CountTripwire(t *testing.T) {
	for _, n := range []int{0, 1, 50, 52, 60} {
		t.Run(fmt.Sprintf("%d paths", n), func(t *testing.T) {
			doc := openAPIDocument(n)
			if n == 0 {
				doc = "{\n  \"paths\": {}\n}\n"
			}
			p := newGeneratedProject(t, doc, doc)

			err := p.run(t)
			var mismatch *apicount.MismatchError
			require.ErrorAs(t, err, &mismatch)
			assert.Equal(t, ExpectedAPICount, mismatch.Expected)
			assert.Equal(t, n, mismatch.Actual)

			out := p.stdout.String()
			assert.Contains(t, out, "No diffs found.")
			assert.Contains(t, out, "Expected: 51")
			assert.Contains(t, out, fmt.Sprintf("got: %d", n))
			assert.Contains(t, out, "READ_ONLY_POST_PATTERNS")
			assert.Contains(t, out, "READ_ONLY_RPC_PATHS")
			p.assertNoSnapshot(t)
		})
	}
}

func TestRun_ExpectedCountOverride(t *testing.T) {
	doc := openAPIDocument(3)
	p := newGeneratedProject(t, doc, doc)

	err := Run(context.Background(), Options{
		Layout:           DefaultLayout(p.root),
		ExpectedAPICount: 3,
		Stdout:           &p.stdout,
		Stderr:           &p.stderr,
		Tracer:           trace.Discard(),
	})
	require.NoError(t, err)
}

func TestRun_GeneratorFailure(t *testing.T) {
	p := newProject(t, openAPIDocument(51), "echo boom >&2\nexit 2")

	err := p.run(t)
	var exitErr *generator.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.ExitCode())
	assert.Contains(t, p.output(), "boom")
	assert.NotContains(t, p.stdout.String(), "No diffs found.")
	p.assertNoSnapshot(t)
}

func TestRun_GeneratorOutputIsStreamed(t *testing.T) {
	doc := openAPIDocument(51)
	p := newGeneratedProject(t, doc, doc)
	gen := filepath.Join(p.root, filepath.FromSlash(GeneratorPath))
	require.NoError(t, os.WriteFile(gen, []byte("#!/bin/sh\necho generating models\necho warning >&2\n"+copyFixture+"\n"), 0o755)) //nolint:gosec // generator must be executable

	require.NoError(t, p.run(t))
	assert.Contains(t, p.stdout.String(), "generating models")
	assert.Contains(t, p.stderr.String(), "warning")
}

func TestRun_MalformedGeneratedDocument(t *testing.T) {
	cases := map[string]string{
		"invalid json":     "{\n  \"paths\": {\n",
		"missing paths":    "{\n  \"openapi\": \"3.0.1\"\n}\n",
		"paths not object": "{\n  \"paths\": []\n}\n",
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			p := newGeneratedProject(t, doc, doc)

			err := p.run(t)
			require.ErrorIs(t, err, apicount.ErrMalformed)
			var mismatch *apicount.MismatchError
			assert.False(t, errors.As(err, &mismatch))
			p.assertNoSnapshot(t)
		})
	}
}

func TestRun_MissingDocument(t *testing.T) {
	p := newProject(t, "", "exit 0")
	require.NoError(t, os.Remove(filepath.Join(p.root, filepath.FromSlash(DocumentPath))))

	err := p.run(t)
	require.ErrorIs(t, err, ErrEnvironment)
	p.assertNoSnapshot(t)
}

func TestRun_MissingGenerator(t *testing.T) {
	doc := openAPIDocument(51)
	p := newProject(t, doc, "exit 0")
	require.NoError(t, os.Remove(filepath.Join(p.root, filepath.FromSlash(GeneratorPath))))

	err := p.run(t)
	require.ErrorIs(t, err, ErrEnvironment)
	p.assertNoSnapshot(t)
}

func TestRun_GeneratorDeletesDocument(t *testing.T) {
	p := newProject(t, openAPIDocument(51), "rm "+DocumentPath)

	err := p.run(t)
	require.ErrorIs(t, err, ErrEnvironment)
	p.assertNoSnapshot(t)
}

func TestRun_StaleSnapshotIsReplaced(t *testing.T) {
	doc := openAPIDocument(51)
	p := newGeneratedProject(t, doc, doc)
	require.NoError(t, os.WriteFile(DefaultLayout(p.root).SnapshotFile(), []byte("left over"), 0o600))

	require.NoError(t, p.run(t), p.output())
	p.assertNoSnapshot(t)
}

func TestRun_StaleSnapshotRemovedWhenDocumentMissing(t *testing.T) {
	p := newProject(t, "", "exit 0")
	require.NoError(t, os.Remove(filepath.Join(p.root, filepath.FromSlash(DocumentPath))))
	require.NoError(t, os.WriteFile(DefaultLayout(p.root).SnapshotFile(), []byte("left over"), 0o600))

	err := p.run(t)
	require.ErrorIs(t, err, ErrEnvironment)
	p.assertNoSnapshot(t)
}

func TestRun_StaleSnapshotRemovedWhenCancelled(t *testing.T) {
	doc := openAPIDocument(51)
	p := newGeneratedProject(t, doc, doc)
	require.NoError(t, os.WriteFile(DefaultLayout(p.root).SnapshotFile(), []byte("left over"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Run(ctx, Options{
		Layout: DefaultLayout(p.root),
		Stdout: &p.stdout,
		Stderr: &p.stderr,
	})
	require.ErrorIs(t, err, context.Canceled)
	p.assertNoSnapshot(t)
}

func TestRun_CancelledContext(t *testing.T) {
	doc := openAPIDocument(51)
	p := newGeneratedProject(t, doc, doc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Run(ctx, Options{
		Layout: DefaultLayout(p.root),
		Stdout: &p.stdout,
		Stderr: &p.stderr,
	})
	require.ErrorIs(t, err, context.Canceled)
	p.assertNoSnapshot(t)
}

func TestRun_InvalidLayout(t *testing.T) {
	err := Run(context.Background(), Options{Layout: Layout{}, Tracer: trace.Discard()})
	require.ErrorIs(t, err, ErrEnvironment)
}
