package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/jackzampolin/digest/internal/providers"
)

// Summarization defaults.
const (
	DefaultProvider         = "openrouter"
	DefaultTemperature      = 0.2
	DefaultMaxTokens        = 1000
	DefaultMaxAttempts      = 3
	DefaultInitialDelay     = time.Second
	DefaultContextStrategy  = "replace"
	DefaultProgressInterval = 500 * time.Millisecond
)

// Server defaults.
const (
	DefaultHost = "127.0.0.1"
	DefaultPort = "8080"
)

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"openrouter": {
				Type:      "openrouter",
				BaseURL:   providers.OpenRouterBaseURL,
				Model:     "google/gemini-flash-1.5",
				APIKey:    "${OPENROUTER_API_KEY}",
				RateLimit: 150,
				Enabled:   true,
			},
			"openai": {
				Type:      "openai",
				BaseURL:   providers.OpenAIBaseURL,
				Model:     "gpt-4o-mini",
				APIKey:    "${OPENAI_API_KEY}",
				RateLimit: 8,
				Enabled:   true,
			},
			"deepseek": {
				Type:      "openai",
				BaseURL:   providers.DeepSeekURL,
				Model:     "deepseek-chat",
				APIKey:    "${DEEPSEEK_API_KEY}",
				RateLimit: 8,
				Enabled:   true,
			},
		},
		Summarize: SummarizeCfg{
			Provider:         DefaultProvider,
			Temperature:      DefaultTemperature,
			MaxTokens:        DefaultMaxTokens,
			MaxAttempts:      DefaultMaxAttempts,
			InitialDelay:     DefaultInitialDelay,
			ContextStrategy:  DefaultContextStrategy,
			ProgressInterval: DefaultProgressInterval,
		},
		Server: ServerCfg{
			Host: DefaultHost,
			Port: DefaultPort,
		},
	}
}

// setDefaults registers every default as a leaf key so that a config file
// overriding one field of a section keeps the defaults for the rest.
func setDefaults(v *viper.Viper, cfg *Config) {
	for name, p := range cfg.LLMProviders {
		prefix := "llm_providers." + name + "."
		v.SetDefault(prefix+"type", p.Type)
		v.SetDefault(prefix+"base_url", p.BaseURL)
		v.SetDefault(prefix+"model", p.Model)
		v.SetDefault(prefix+"api_key", p.APIKey)
		v.SetDefault(prefix+"rate_limit", p.RateLimit)
		v.SetDefault(prefix+"enabled", p.Enabled)
	}

	s := cfg.Summarize
	v.SetDefault("summarize.provider", s.Provider)
	v.SetDefault("summarize.model", s.Model)
	v.SetDefault("summarize.temperature", s.Temperature)
	v.SetDefault("summarize.max_tokens", s.MaxTokens)
	v.SetDefault("summarize.max_attempts", s.MaxAttempts)
	v.SetDefault("summarize.initial_delay", s.InitialDelay)
	v.SetDefault("summarize.context_strategy", s.ContextStrategy)
	v.SetDefault("summarize.progress_interval", s.ProgressInterval)

	v.SetDefault("server.host", cfg.Server.Host)
	v.SetDefault("server.port", cfg.Server.Port)
}
