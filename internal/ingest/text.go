package ingest

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

// chapterHeading matches markdown level 1-2 headings and lines such as
// "Chapter 3", "CHAPTER XII. The Storm" or "Part One".
var chapterHeading = regexp.MustCompile(`(?i)^\s*(?:#{1,2}\s+\S.*|(?:chapter|part|book)\s+(?:\d+|[ivxlcdm]+|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve)\b.*)$`)

// ReadText splits a plain text or markdown document into chapters at
// chapter headings. Text before the first heading becomes its own leading
// chunk. A document without headings is a single chapter.
func ReadText(r io.Reader, title string) (*Document, error) {
	doc := &Document{
		Title:    title,
		Chapters: []string{},
		TOC:      []string{},
	}

	var current []string
	flush := func() {
		if text := strings.TrimSpace(strings.Join(current, "\n")); text != "" {
			doc.Chapters = append(doc.Chapters, text)
		}
		current = current[:0]
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxUploadSize)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if chapterHeading.MatchString(line) {
			flush()
			doc.TOC = append(doc.TOC, headingTitle(line))
		}
		current = append(current, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()

	if len(doc.Chapters) == 0 {
		return nil, ErrNoChapters
	}
	return doc, nil
}

func headingTitle(line string) string {
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#"))
}
