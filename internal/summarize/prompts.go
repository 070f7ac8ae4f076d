package summarize

import (
	"fmt"
	"strings"
)

// Prompt keys recorded with each LLM call.
const (
	PromptKeyChapter = "summarize.chapter"
	PromptKeySkim    = "summarize.skim"
)

// ChapterSystemPrompt is the system prompt for chapter summarization.
const ChapterSystemPrompt = `You are a helpful assistant that summarizes books to help readers quickly grasp the content.
Focus on identifying key plot points, character developments, and important details.
You will be provided the summary of the previous chapters and the full text of the chapter the reader wants to summarize.

Some inputs are not chapters at all: tables of contents, copyright pages, dedications, prefaces, indexes.
For those, return {"is_chapter": false} and nothing else.

For a genuine chapter return a JSON object with:
- "is_chapter": true
- "title": the chapter's title. If a table of contents is given, use the matching entry exactly as written there.
- "summary": a comprehensive summary of this chapter, including key plot points and character developments
- "is_stop_target": true only if this chapter is the one the reader asked to stop at

Wrap the JSON object in a markdown code block tagged json.`

// SkimSystemPrompt is the system prompt for query-driven skimming.
const SkimSystemPrompt = "You are a helpful assistant that skims text based on user queries."

// BuildChapterPrompt builds the user prompt for one chapter.
func BuildChapterPrompt(req Request) string {
	var b strings.Builder

	previous := strings.TrimSpace(req.Context)
	if previous == "" {
		previous = "(none, this is the first chapter)"
	}
	fmt.Fprintf(&b, "Previous chapters summary:\n%s\n\n", previous)

	if len(req.TOC) > 0 {
		b.WriteString("Table of contents:\n")
		for i, entry := range req.TOC {
			fmt.Fprintf(&b, "%d. %s\n", i+1, entry)
		}
		b.WriteString("\n")
	}

	if target := strings.TrimSpace(req.StopTarget); target != "" {
		fmt.Fprintf(&b, "The reader wants to stop after the chapter titled: %q\n\n", target)
	}

	fmt.Fprintf(&b, "Current chapter:\n---\n%s\n---\n\n", req.Chapter)
	b.WriteString("Please provide a comprehensive summary of this book chapter, including key plot points and character developments, as the JSON object described above.")
	return b.String()
}

// BuildSkimPrompt builds the user prompt for skimming text against a query.
func BuildSkimPrompt(text, query string) string {
	return fmt.Sprintf("Text: %s\n\nQuery: %s\n\nPlease skim the text, replacing lengthy or less relevant sections with \"[...]\" while preserving key points and context.", text, query)
}

// OutcomeJSONSchema returns the JSON schema for a chapter outcome.
func OutcomeJSONSchema() map[string]any {
	return map[string]any{
		"name":   "chapter_outcome",
		"strict": false,
		"schema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"is_chapter": map[string]any{
					"type":        "boolean",
					"description": "False for front matter or other non-narrative content",
				},
				"title": map[string]any{
					"type":        "string",
					"description": "Chapter title, matching the table of contents when given",
				},
				"summary": map[string]any{
					"type":        "string",
					"description": "Summary of the chapter",
				},
				"is_stop_target": map[string]any{
					"type":        "boolean",
					"description": "Whether this chapter is the requested stop point",
				},
			},
			"required": []string{"is_chapter"},
			"if": map[string]any{
				"properties": map[string]any{"is_chapter": map[string]any{"const": true}},
			},
			"then": map[string]any{
				"required": []string{"title", "summary"},
			},
		},
	}
}
