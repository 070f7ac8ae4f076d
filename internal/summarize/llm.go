package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackzampolin/digest/internal/llmcall"
	"github.com/jackzampolin/digest/internal/providers"
)

const (
	DefaultTemperature = 0.2
	DefaultMaxTokens   = 1000
)

// LLMConfig configures an LLM-backed summarizer.
type LLMConfig struct {
	Client      providers.LLMClient
	Model       string  // Client default when empty
	Temperature float64 // DefaultTemperature when zero
	MaxTokens   int     // DefaultMaxTokens when zero

	// Recorder receives every chat call. Optional.
	Recorder llmcall.Recorder
	// JobID tags recorded calls.
	JobID string

	Logger *slog.Logger
}

// LLM summarizes chapters with a chat completion client.
type LLM struct {
	client      providers.LLMClient
	model       string
	temperature float64
	maxTokens   int
	recorder    llmcall.Recorder
	jobID       string
	logger      *slog.Logger
	schema      json.RawMessage
}

// NewLLM creates an LLM summarizer.
func NewLLM(cfg LLMConfig) (*LLM, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("%w: no LLM client", ErrConfiguration)
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Recorder == nil {
		cfg.Recorder = llmcall.Discard
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	schema, err := json.Marshal(OutcomeJSONSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON schema: %w", err)
	}

	return &LLM{
		client:      cfg.Client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		recorder:    cfg.Recorder,
		jobID:       cfg.JobID,
		logger:      cfg.Logger,
		schema:      schema,
	}, nil
}

// SummarizeChapter sends one chapter to the model and parses its outcome.
func (s *LLM) SummarizeChapter(ctx context.Context, req Request) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, Classify(err)
	}

	chatReq := &providers.ChatRequest{
		Model: s.model,
		Messages: []providers.Message{
			{Role: "system", Content: ChapterSystemPrompt},
			{Role: "user", Content: BuildChapterPrompt(req)},
		},
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
		ResponseFormat: &providers.ResponseFormat{
			Type:       "json_schema",
			JSONSchema: s.schema,
		},
	}

	result, err := s.client.Chat(ctx, chatReq)
	idx := req.Index
	s.record(result, PromptKeyChapter, &idx)
	if err != nil {
		return Outcome{}, Classify(err)
	}
	if err := ctx.Err(); err != nil {
		return Outcome{}, Classify(err)
	}

	outcome, err := s.parseOutcome(result, req.TOC)
	if err != nil {
		s.logger.Warn("unusable chapter outcome",
			"chapter", req.Index,
			"provider", result.Provider,
			"error", err)
		return Outcome{}, err
	}
	return outcome, nil
}

// chapterOutcome is the wire form of Outcome.
type chapterOutcome struct {
	IsChapter    bool   `json:"is_chapter"`
	Title        string `json:"title"`
	Summary      string `json:"summary"`
	IsStopTarget bool   `json:"is_stop_target"`
}

func (s *LLM) parseOutcome(result *providers.ChatResult, toc []string) (Outcome, error) {
	raw := result.ParsedJSON
	if len(raw) == 0 {
		parsed, err := providers.ParseStructuredJSON(result.Content)
		if err != nil {
			return Outcome{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		}
		raw = parsed
	}
	if err := providers.ValidateStructuredJSON(s.schema, raw); err != nil {
		return Outcome{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	var wire chapterOutcome
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Outcome{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if !wire.IsChapter {
		return Outcome{IsChapter: false}, nil
	}

	summary := strings.TrimSpace(wire.Summary)
	if summary == "" {
		return Outcome{}, fmt.Errorf("%w: chapter outcome has an empty summary", ErrMalformedResponse)
	}
	return Outcome{
		IsChapter:    true,
		Title:        NormalizeTitle(wire.Title, toc),
		Summary:      summary,
		SuggestsStop: wire.IsStopTarget,
	}, nil
}

// Skim condenses text for a query, replacing less relevant passages
// with "[...]".
func (s *LLM) Skim(ctx context.Context, text, query string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", Classify(err)
	}

	result, err := s.client.Chat(ctx, &providers.ChatRequest{
		Model: s.model,
		Messages: []providers.Message{
			{Role: "system", Content: SkimSystemPrompt},
			{Role: "user", Content: BuildSkimPrompt(text, query)},
		},
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	})
	s.record(result, PromptKeySkim, nil)
	if err != nil {
		return "", Classify(err)
	}

	out := strings.TrimSpace(result.Content)
	if out == "" {
		return "", fmt.Errorf("%w: empty skim", ErrMalformedResponse)
	}
	return out, nil
}

func (s *LLM) record(result *providers.ChatResult, promptKey string, chapter *int) {
	if result == nil {
		return
	}
	temp := s.temperature
	s.recorder.Record(result, llmcall.RecordOptions{
		JobID:        s.jobID,
		ChapterIndex: chapter,
		PromptKey:    promptKey,
		Temperature:  &temp,
	})
}

var _ Summarizer = (*LLM)(nil)
