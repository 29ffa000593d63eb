// Package textdiff compares text files under a whitespace-tolerant rule and
// renders the differences as a unified diff.
//
// Two texts are equal when their normalized lines are equal. Normalization
// maps CRLF and lone CR to LF, collapses runs of horizontal whitespace to a
// single space and drops trailing whitespace on every line. A missing final
// newline is not a difference.
package textdiff

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pmezard/go-difflib/difflib"
)

// ContextLines is the number of unchanged lines shown around each hunk.
const ContextLines = 3

// Normalize splits text into normalized lines.
func Normalize(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = normalizeLine(line)
	}
	return lines
}

func normalizeLine(line string) string {
	var b strings.Builder
	b.Grow(len(line))
	inRun := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		if isHorizontalSpace(c) {
			inRun = true
			continue
		}
		if inRun {
			b.WriteByte(' ')
			inRun = false
		}
		b.WriteByte(c)
	}
	// A trailing run is never flushed.
	return b.String()
}

func isHorizontalSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\v', '\f':
		return true
	}
	return false
}

// Equal reports whether a and b are equal after normalization.
func Equal(a, b string) bool {
	la, lb := Normalize(a), Normalize(b)
	if len(la) != len(lb) {
		return false
	}
	for i := range la {
		if la[i] != lb[i] {
			return false
		}
	}
	return true
}

// Unified returns the unified diff of the normalized forms of a and b, or ""
// when they are equal.
func Unified(a, b, fromLabel, toLabel string) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        withNewlines(Normalize(a)),
		B:        withNewlines(Normalize(b)),
		FromFile: fromLabel,
		ToFile:   toLabel,
		Context:  ContextLines,
	}
	out, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("failed to render diff: %w", err)
	}
	return out, nil
}

func withNewlines(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l + "\n"
	}
	return out
}

// Write renders diff to w. Removed lines are red and added lines green when w
// is a terminal; otherwise the diff is written verbatim.
func Write(w io.Writer, diff string) error {
	r := lipgloss.NewRenderer(w)
	header := r.NewStyle().Bold(true)
	hunk := r.NewStyle().Foreground(lipgloss.Color("6"))
	removed := r.NewStyle().Foreground(lipgloss.Color("1"))
	added := r.NewStyle().Foreground(lipgloss.Color("2"))

	for _, line := range strings.SplitAfter(diff, "\n") {
		if line == "" {
			continue
		}
		body := strings.TrimSuffix(line, "\n")
		switch {
		case strings.HasPrefix(body, "---"), strings.HasPrefix(body, "+++"):
			body = header.Render(body)
		case strings.HasPrefix(body, "@@"):
			body = hunk.Render(body)
		case strings.HasPrefix(body, "-"):
			body = removed.Render(body)
		case strings.HasPrefix(body, "+"):
			body = added.Render(body)
		}
		if _, err := io.WriteString(w, body+"\n"); err != nil {
			return err
		}
	}
	return nil
}
