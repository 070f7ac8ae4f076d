package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	OpenAIName     = "openai"
	OpenAIBaseURL  = "https://api.openai.com/v1"
	DeepSeekName   = "deepseek"
	DeepSeekURL    = "https://api.deepseek.com/v1"
	openAIDefModel = "gpt-4o-mini"
)

// OpenAIConfig holds configuration for an OpenAI-compatible chat client.
type OpenAIConfig struct {
	Name         string // Registry name reported by Name(); defaults to "openai"
	APIKey       string
	BaseURL      string
	DefaultModel string
	RateLimit    float64 // Requests per second
	Timeout      time.Duration
	HTTPClient   *http.Client // Optional (tests)
}

// OpenAIClient implements LLMClient using the official OpenAI SDK. It talks
// to any OpenAI-compatible endpoint (OpenAI, DeepSeek, OpenRouter).
type OpenAIClient struct {
	name         string
	apiKey       string
	baseURL      string
	defaultModel string
	rateLimit    float64
	limiter      *RateLimiter
	client       openai.Client
}

// NewOpenAIClient creates a new OpenAI-compatible client. SDK retries are
// disabled; each Chat call is exactly one request.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Name == "" {
		cfg.Name = OpenAIName
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = OpenAIBaseURL
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = openAIDefModel
	}
	if cfg.RateLimit <= 0 {
		// Default to ~500 RPM.
		cfg.RateLimit = 8.0
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	)

	return &OpenAIClient{
		name:         cfg.Name,
		apiKey:       cfg.APIKey,
		baseURL:      cfg.BaseURL,
		defaultModel: cfg.DefaultModel,
		rateLimit:    cfg.RateLimit,
		limiter:      NewRateLimiter(cfg.RateLimit),
		client:       client,
	}
}

// Name returns the client identifier.
func (c *OpenAIClient) Name() string {
	return c.name
}

// Model returns the configured default model.
func (c *OpenAIClient) Model() string {
	return c.defaultModel
}

// RateLimiterStatus reports the client's limiter state.
func (c *OpenAIClient) RateLimiterStatus() RateLimiterStatus {
	return c.limiter.Status()
}

// Chat sends a chat completion request.
func (c *OpenAIClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	result := &ChatResult{
		RequestID: requestID,
		Provider:  c.name,
	}

	if c.apiKey == "" {
		return result, result.fail(start, "configuration", fmt.Errorf("%s: %w", c.name, ErrMissingAPIKey))
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return result, result.fail(start, "context_cancelled", err)
	}
	result.QueueTime = time.Since(start)

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)),
	}
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))
		case "assistant":
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		}
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		err = c.mapError(err)
		var rle *RateLimitError
		if errors.As(err, &rle) {
			c.limiter.Record429()
		}
		return result, result.fail(start, "http_error", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		modelUsed := model
		if resp != nil {
			modelUsed = resp.Model
		}
		return result, result.fail(start, "empty_response", &EmptyResponseError{Provider: c.name, Model: modelUsed})
	}

	result.Success = true
	result.Content = resp.Choices[0].Message.Content
	result.ModelUsed = resp.Model
	result.PromptTokens = int(resp.Usage.PromptTokens)
	result.CompletionTokens = int(resp.Usage.CompletionTokens)
	result.TotalTokens = int(resp.Usage.TotalTokens)
	result.ExecutionTime = time.Since(start) - result.QueueTime
	result.TotalTime = time.Since(start)

	if req.ResponseFormat != nil {
		if parsed, err := ParseStructuredJSON(result.Content); err == nil {
			result.ParsedJSON = parsed
		}
	}

	return result, nil
}

// mapError converts SDK errors into the package's typed errors.
func (c *OpenAIClient) mapError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	if apiErr.StatusCode == http.StatusTooManyRequests {
		retryAfter := time.Duration(0)
		if apiErr.Response != nil {
			retryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
		}
		return &RateLimitError{
			Provider:   c.name,
			Message:    apiErr.Message,
			RetryAfter: retryAfter,
			StatusCode: apiErr.StatusCode,
		}
	}
	return &HTTPError{
		Provider:   c.name,
		StatusCode: apiErr.StatusCode,
		Message:    strings.TrimSpace(apiErr.Message),
	}
}

// Verify interface
var _ LLMClient = (*OpenAIClient)(nil)
