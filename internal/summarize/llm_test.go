package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackzampolin/digest/internal/llmcall"
	"github.com/jackzampolin/digest/internal/providers"
)

func fenced(json string) string {
	return "Here is the result:\n```json\n" + json + "\n```\n"
}

func newTestLLM(t *testing.T, client providers.LLMClient, rec llmcall.Recorder) *LLM {
	t.Helper()
	s, err := NewLLM(LLMConfig{Client: client, Recorder: rec, JobID: "job-1"})
	if err != nil {
		t.Fatalf("NewLLM() error = %v", err)
	}
	return s
}

func TestLLM_SummarizeChapter(t *testing.T) {
	toc := []string{"Preface", "Chapter One", "Chapter Two"}

	t.Run("genuine chapter", func(t *testing.T) {
		client := providers.NewMockClient(providers.MockReply{
			Content: fenced(`{"is_chapter": true, "title": "chapter ONE", "summary": " Ann leaves home. ", "is_stop_target": true}`),
		})
		s := newTestLLM(t, client, nil)

		out, err := s.SummarizeChapter(context.Background(), Request{
			Context:    "Earlier things happened.",
			Chapter:    "Ann packed her bags.",
			StopTarget: "Chapter One",
			TOC:        toc,
		})
		if err != nil {
			t.Fatalf("SummarizeChapter() error = %v", err)
		}
		if !out.IsChapter || out.Title != "Chapter One" || out.Summary != "Ann leaves home." || !out.SuggestsStop {
			t.Errorf("unexpected outcome: %+v", out)
		}

		reqs := client.Requests()
		if len(reqs) != 1 {
			t.Fatalf("requests = %d, want 1", len(reqs))
		}
		req := reqs[0]
		if req.Temperature != DefaultTemperature || req.MaxTokens != DefaultMaxTokens {
			t.Errorf("temperature/max tokens = %v/%d", req.Temperature, req.MaxTokens)
		}
		if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_schema" {
			t.Error("expected json_schema response format")
		}
		user := req.Messages[1].Content
		for _, want := range []string{"Earlier things happened.", "Ann packed her bags.", "2. Chapter One", `"Chapter One"`} {
			if !strings.Contains(user, want) {
				t.Errorf("user prompt missing %q", want)
			}
		}
	})

	t.Run("not a chapter", func(t *testing.T) {
		client := providers.NewMockClient(providers.MockReply{Content: fenced(`{"is_chapter": false}`)})
		s := newTestLLM(t, client, nil)

		out, err := s.SummarizeChapter(context.Background(), Request{Chapter: "Contents..."})
		if err != nil {
			t.Fatalf("SummarizeChapter() error = %v", err)
		}
		if out.IsChapter {
			t.Errorf("expected not-a-chapter, got %+v", out)
		}
	})

	malformed := []struct {
		name    string
		content string
	}{
		{"prose only", "This chapter is about a dog."},
		{"missing summary", fenced(`{"is_chapter": true, "title": "One"}`)},
		{"blank summary", fenced(`{"is_chapter": true, "title": "One", "summary": "  "}`)},
		{"wrong type", fenced(`{"is_chapter": "yes"}`)},
		{"broken fence", "```json\n{\"is_chapter\": tru\n```"},
	}
	for _, tc := range malformed {
		t.Run("malformed "+tc.name, func(t *testing.T) {
			client := providers.NewMockClient(providers.MockReply{Content: tc.content})
			s := newTestLLM(t, client, nil)

			_, err := s.SummarizeChapter(context.Background(), Request{Chapter: "text"})
			if !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("expected ErrMalformedResponse, got %v", err)
			}
			if IsTransient(err) {
				t.Error("malformed responses must not be transient")
			}
		})
	}

	t.Run("provider errors are classified", func(t *testing.T) {
		cases := []struct {
			err       error
			transient bool
			sentinel  error
		}{
			{&providers.HTTPError{Provider: "p", StatusCode: 503}, true, ErrTransient},
			{&providers.RateLimitError{Provider: "p", StatusCode: 429}, true, ErrTransient},
			{&providers.EmptyResponseError{Provider: "p"}, true, ErrTransient},
			{&providers.HTTPError{Provider: "p", StatusCode: 401}, false, ErrProvider},
			{fmt.Errorf("p: %w", providers.ErrMissingAPIKey), false, ErrConfiguration},
			{context.Canceled, false, ErrCancelled},
		}
		for _, tc := range cases {
			client := providers.NewMockClient(providers.MockReply{Err: tc.err})
			s := newTestLLM(t, client, nil)

			_, err := s.SummarizeChapter(context.Background(), Request{Chapter: "text"})
			if IsTransient(err) != tc.transient {
				t.Errorf("%v: IsTransient = %v, want %v", tc.err, IsTransient(err), tc.transient)
			}
			if !errors.Is(err, tc.sentinel) {
				t.Errorf("%v: expected %v in chain, got %v", tc.err, tc.sentinel, err)
			}
			if !errors.Is(err, tc.err) {
				t.Errorf("original error %v dropped from chain", tc.err)
			}
		}
	})

	t.Run("missing api key fails before network", func(t *testing.T) {
		client := providers.NewOpenRouterClient(providers.OpenRouterConfig{BaseURL: "http://127.0.0.1:1"})
		s := newTestLLM(t, client, nil)

		_, err := s.SummarizeChapter(context.Background(), Request{Chapter: "text"})
		if !errors.Is(err, ErrConfiguration) {
			t.Errorf("expected ErrConfiguration, got %v", err)
		}
	})

	t.Run("cancelled context makes no call", func(t *testing.T) {
		client := providers.NewMockClient()
		s := newTestLLM(t, client, nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := s.SummarizeChapter(ctx, Request{Chapter: "text"})
		if !IsCancelled(err) {
			t.Errorf("expected cancellation, got %v", err)
		}
		if client.RequestCount() != 0 {
			t.Errorf("RequestCount = %d, want 0", client.RequestCount())
		}
	})

	t.Run("records calls", func(t *testing.T) {
		store := llmcall.NewStore(10)
		client := providers.NewMockClient(
			providers.MockReply{Content: fenced(`{"is_chapter": false}`)},
			providers.MockReply{Err: &providers.HTTPError{Provider: "mock", StatusCode: 500}},
		)
		s := newTestLLM(t, client, store)

		s.SummarizeChapter(context.Background(), Request{Chapter: "a", Index: 0})
		s.SummarizeChapter(context.Background(), Request{Chapter: "b", Index: 1})

		calls := store.List(llmcall.QueryFilter{JobID: "job-1"})
		if len(calls) != 2 {
			t.Fatalf("recorded %d calls, want 2", len(calls))
		}
		if calls[0].Success || *calls[0].ChapterIndex != 1 {
			t.Errorf("newest call = %+v", calls[0])
		}
		if !calls[1].Success || calls[1].PromptKey != PromptKeyChapter {
			t.Errorf("oldest call = %+v", calls[1])
		}
	})
}

func TestNewLLM(t *testing.T) {
	if _, err := NewLLM(LLMConfig{}); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for nil client, got %v", err)
	}
}

func TestLLM_Skim(t *testing.T) {
	client := providers.NewMockClient(providers.MockReply{Content: "  The dog [...] barked.  "})
	s := newTestLLM(t, client, nil)

	out, err := s.Skim(context.Background(), "The dog sat for a long while and barked.", "dog")
	if err != nil {
		t.Fatalf("Skim() error = %v", err)
	}
	if out != "The dog [...] barked." {
		t.Errorf("Skim() = %q", out)
	}
	req := client.Requests()[0]
	if req.ResponseFormat != nil {
		t.Error("skim should not request structured output")
	}
	if !strings.Contains(req.Messages[1].Content, "Query: dog") {
		t.Errorf("unexpected skim prompt: %s", req.Messages[1].Content)
	}
}

func TestNormalizeTitle(t *testing.T) {
	toc := []string{"Prologue", "Chapter 1: The Road", "Chapter 11: The River"}
	tests := []struct {
		title string
		toc   []string
		want  string
	}{
		{"  Chapter One  ", nil, "Chapter One"},
		{"chapter 1 the road", toc, "Chapter 1: The Road"},
		{"CHAPTER 11 - THE RIVER", toc, "Chapter 11: The River"},
		{"Chapter 2: Elsewhere", toc, "Chapter 2: Elsewhere"},
		{"", toc, ""},
	}
	for _, tt := range tests {
		if got := NormalizeTitle(tt.title, tt.toc); got != tt.want {
			t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	if Classify(nil) != nil {
		t.Error("Classify(nil) should be nil")
	}
	err := Classify(errors.New("something odd"))
	if !errors.Is(err, ErrProvider) || IsTransient(err) {
		t.Errorf("unknown errors should be fatal provider errors, got %v", err)
	}
	wrapped := fmt.Errorf("outer: %w", ErrMalformedResponse)
	if Classify(wrapped) != wrapped {
		t.Error("already classified errors should pass through")
	}
	if !IsCancelled(Classify(context.DeadlineExceeded)) {
		t.Error("deadline should classify as cancelled")
	}
}
