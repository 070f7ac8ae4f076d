package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/jackzampolin/digest/internal/llmcall"
	"github.com/jackzampolin/digest/internal/providers"
)

func TestLLMRecorder(t *testing.T) {
	ok := LLMCallTotal.WithLabelValues("test-provider", "m1", "success")
	failed := LLMCallTotal.WithLabelValues("test-provider", "m1", "rate_limit")
	prompt := LLMTokensUsed.WithLabelValues("test-provider", "m1", "prompt")
	before, beforeFailed, beforePrompt := testutil.ToFloat64(ok), testutil.ToFloat64(failed), testutil.ToFloat64(prompt)

	LLM.Record(&providers.ChatResult{
		Provider:     "test-provider",
		ModelUsed:    "m1",
		Success:      true,
		PromptTokens: 12,
		TotalTime:    time.Second,
	}, llmcall.RecordOptions{})
	LLM.Record(&providers.ChatResult{
		Provider:  "test-provider",
		ModelUsed: "m1",
		ErrorType: "rate_limit",
	}, llmcall.RecordOptions{})
	LLM.Record(nil, llmcall.RecordOptions{})

	if got := testutil.ToFloat64(ok) - before; got != 1 {
		t.Errorf("success calls = %v, want 1", got)
	}
	if got := testutil.ToFloat64(failed) - beforeFailed; got != 1 {
		t.Errorf("rate_limit calls = %v, want 1", got)
	}
	if got := testutil.ToFloat64(prompt) - beforePrompt; got != 12 {
		t.Errorf("prompt tokens = %v, want 12", got)
	}
}

func TestObserveChapter(t *testing.T) {
	summarized := ChaptersTotal.WithLabelValues("summarized")
	skipped := ChaptersTotal.WithLabelValues("skipped")
	s0, k0 := testutil.ToFloat64(summarized), testutil.ToFloat64(skipped)

	ObserveChapter(true)
	ObserveChapter(true)
	ObserveChapter(false)

	if got := testutil.ToFloat64(summarized) - s0; got != 2 {
		t.Errorf("summarized = %v, want 2", got)
	}
	if got := testutil.ToFloat64(skipped) - k0; got != 1 {
		t.Errorf("skipped = %v, want 1", got)
	}
}

func TestJobLifecycle(t *testing.T) {
	active := testutil.ToFloat64(JobsActive)
	done := JobsTotal.WithLabelValues("completed")
	d0 := testutil.ToFloat64(done)

	JobStarted()
	if got := testutil.ToFloat64(JobsActive); got != active+1 {
		t.Errorf("active = %v, want %v", got, active+1)
	}
	JobFinished("completed", time.Now())
	if got := testutil.ToFloat64(JobsActive); got != active {
		t.Errorf("active = %v, want %v", got, active)
	}
	if got := testutil.ToFloat64(done) - d0; got != 1 {
		t.Errorf("completed = %v, want 1", got)
	}
}

func TestObserveHTTP(t *testing.T) {
	c := HTTPRequestsTotal.WithLabelValues("GET", "/health", "200")
	c0 := testutil.ToFloat64(c)

	ObserveHTTP("GET", "/health", 200, time.Millisecond)

	if got := testutil.ToFloat64(c) - c0; got != 1 {
		t.Errorf("requests = %v, want 1", got)
	}
}
