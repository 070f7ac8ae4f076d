package endpoints

import (
	"github.com/jackzampolin/digest/internal/api"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	// SwaggerSpecPath overrides the embedded OpenAPI document when set.
	SwaggerSpecPath string
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&StatusEndpoint{},

		// Document conversion
		&ConvertEndpoint{},

		// Summarization jobs
		&CreateSummaryEndpoint{},
		&ListSummariesEndpoint{},
		&GetSummaryEndpoint{},
		&CancelSummaryEndpoint{},

		// LLM call history
		&ListLLMCallsEndpoint{},
		&GetLLMCallEndpoint{},
		&LLMCallCountsEndpoint{},

		// Swagger/OpenAPI
		&SwaggerEndpoint{SpecPath: cfg.SwaggerSpecPath},
	}
}
