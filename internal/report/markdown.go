// Package report turns a finished run's result tree into the files and
// console blocks handed to humans and CI.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tvanlaerhoven/cavy-cli/internal/event"
)

// MarkdownFile is the name of the summary written after every run.
const MarkdownFile = "cavy_results.md"

const (
	markdownTitle     = "### E2E Test Summary"
	markdownHeader    = "|Description 📝|Test results 🧪|Duration ⏰|"
	markdownSeparator = "|---|---|---|"

	glyphPass = "✅"
	glyphFail = "❌"
)

// Markdown renders tree as a markdown table, one row per test case in input
// order. Descriptions are written verbatim; a "|" in a description breaks
// the row.
func Markdown(tree event.ResultTree) string {
	var b strings.Builder
	b.WriteString(markdownTitle + "\n")
	b.WriteString(markdownHeader + "\n")
	b.WriteString(markdownSeparator + "\n")

	rows := make([]string, 0, len(tree.TestCases))
	for _, tc := range tree.TestCases {
		glyph := glyphFail
		if tc.Passed {
			glyph = glyphPass
		}
		rows = append(rows, fmt.Sprintf("|%s|%s|%ss|", tc.Description, glyph, FormatSeconds(tc.Time)))
	}
	b.WriteString(strings.Join(rows, "\n"))
	return b.String()
}

// WriteMarkdown renders tree and writes it to MarkdownFile inside dir,
// replacing any previous report. It returns the written path.
func WriteMarkdown(dir string, tree event.ResultTree) (string, error) {
	path := filepath.Join(dir, MarkdownFile)
	if err := os.WriteFile(path, []byte(Markdown(tree)), 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// FormatSeconds prints a seconds value with the shortest representation
// that round-trips, so 1.2 stays "1.2" and 3 stays "3".
func FormatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}
