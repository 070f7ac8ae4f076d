// Package summarize defines the single-chapter summarization contract and
// its LLM-backed implementation.
package summarize

import "context"

// Request is the input to one chapter summarization.
type Request struct {
	// Context is the running narrative context; empty for the first chapter.
	Context string
	// Chapter is the full chapter text.
	Chapter string
	// StopTarget is the chapter title the reader wants to stop at, if any.
	StopTarget string
	// TOC is the book's table of contents, if known.
	TOC []string
	// Index is the chapter position, recorded for traceability only.
	Index int
}

// Outcome is the result of a summarization call. When IsChapter is false
// the other fields are meaningless.
type Outcome struct {
	IsChapter bool
	Title     string
	Summary   string
	// SuggestsStop is the model's own judgment that this is the stop
	// target. Callers decide stops themselves.
	SuggestsStop bool
}

// Summarizer summarizes one chapter. Implementations honor ctx
// cancellation and return errors classified with Classify.
type Summarizer interface {
	SummarizeChapter(ctx context.Context, req Request) (Outcome, error)
}

// Func adapts a function to the Summarizer interface.
type Func func(ctx context.Context, req Request) (Outcome, error)

// SummarizeChapter calls f.
func (f Func) SummarizeChapter(ctx context.Context, req Request) (Outcome, error) {
	return f(ctx, req)
}
