package engine

import (
	"fmt"
	"strings"
)

// Render formats records as markdown: one "## title" heading per chapter
// followed by its summary, blocks separated by blank lines.
func Render(records []Record) string {
	blocks := make([]string, 0, len(records))
	for _, r := range records {
		title := strings.TrimSpace(r.Title)
		if title == "" {
			title = fmt.Sprintf("Chapter %d", r.Index+1)
		}
		blocks = append(blocks, fmt.Sprintf("## %s\n\n%s", title, r.Summary))
	}
	return strings.Join(blocks, "\n\n")
}
