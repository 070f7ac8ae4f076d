package metrics

import (
	"strconv"
	"time"

	"github.com/jackzampolin/digest/internal/llmcall"
	"github.com/jackzampolin/digest/internal/providers"
)

// LLM records chat calls into the LLM collectors.
var LLM llmcall.Recorder = llmRecorder{}

type llmRecorder struct{}

func (llmRecorder) Record(result *providers.ChatResult, _ llmcall.RecordOptions) {
	if result == nil {
		return
	}
	status := "success"
	if !result.Success {
		status = result.ErrorType
		if status == "" {
			status = "error"
		}
	}
	LLMCallTotal.WithLabelValues(result.Provider, result.ModelUsed, status).Inc()
	LLMCallDuration.WithLabelValues(result.Provider, result.ModelUsed).Observe(result.TotalTime.Seconds())
	if result.PromptTokens > 0 {
		LLMTokensUsed.WithLabelValues(result.Provider, result.ModelUsed, "prompt").Add(float64(result.PromptTokens))
	}
	if result.CompletionTokens > 0 {
		LLMTokensUsed.WithLabelValues(result.Provider, result.ModelUsed, "completion").Add(float64(result.CompletionTokens))
	}
}

// ObserveHTTP records one served request.
func ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// ObserveChapter records a processed chapter. Skipped chapters are non-narrative content.
func ObserveChapter(isChapter bool) {
	if isChapter {
		ChaptersTotal.WithLabelValues("summarized").Inc()
		return
	}
	ChaptersTotal.WithLabelValues("skipped").Inc()
}

// JobStarted marks a job as running.
func JobStarted() {
	JobsActive.Inc()
}

// JobFinished records the final state of a job started at start.
func JobFinished(state string, start time.Time) {
	JobsActive.Dec()
	JobsTotal.WithLabelValues(state).Inc()
	JobDuration.Observe(time.Since(start).Seconds())
}
