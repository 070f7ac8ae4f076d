package summarize

import (
	"strings"

	"github.com/jackzampolin/digest/internal/similarity"
)

// NormalizeTitle maps a model-reported title onto the table of contents.
// An entry with the same normalized form wins; otherwise the closest entry
// is used when it clears the similarity threshold. Titles that match
// nothing are returned trimmed.
func NormalizeTitle(title string, toc []string) string {
	title = strings.TrimSpace(title)
	if title == "" || len(toc) == 0 {
		return title
	}

	want := similarity.Normalize(title)
	for _, entry := range toc {
		if similarity.Normalize(entry) == want {
			return strings.TrimSpace(entry)
		}
	}

	if best, ratio, ok := similarity.Best(title, toc); ok && ratio >= similarity.Threshold {
		return strings.TrimSpace(best)
	}
	return title
}
