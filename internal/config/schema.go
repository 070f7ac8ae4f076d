package config

import "time"

// Config holds digest configuration.
// Stored at: ~/.digest/config.yaml
type Config struct {
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers" json:"llm_providers"`
	Summarize    SummarizeCfg              `mapstructure:"summarize" yaml:"summarize" json:"summarize"`
	Server       ServerCfg                 `mapstructure:"server" yaml:"server" json:"server"`
}

// LLMProviderCfg configures an LLM provider.
type LLMProviderCfg struct {
	Type      string  `mapstructure:"type" yaml:"type" json:"type"`                   // "openrouter", "openai"
	BaseURL   string  `mapstructure:"base_url" yaml:"base_url" json:"base_url"`       // Empty uses the provider default
	Model     string  `mapstructure:"model" yaml:"model" json:"model"`                // Model name
	APIKey    string  `mapstructure:"api_key" yaml:"api_key" json:"api_key"`          // API key (supports ${ENV_VAR} syntax)
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"` // Requests per second
	Enabled   bool    `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
}

// SummarizeCfg holds the defaults applied to every summarization run.
type SummarizeCfg struct {
	Provider         string        `mapstructure:"provider" yaml:"provider" json:"provider"`
	Model            string        `mapstructure:"model" yaml:"model" json:"model"` // Overrides the provider model when set
	Temperature      float64       `mapstructure:"temperature" yaml:"temperature" json:"temperature"`
	MaxTokens        int           `mapstructure:"max_tokens" yaml:"max_tokens" json:"max_tokens"`
	MaxAttempts      int           `mapstructure:"max_attempts" yaml:"max_attempts" json:"max_attempts"`
	InitialDelay     time.Duration `mapstructure:"initial_delay" yaml:"initial_delay" json:"initial_delay"`
	ContextStrategy  string        `mapstructure:"context_strategy" yaml:"context_strategy" json:"context_strategy"` // "replace" or "accumulate"
	ProgressInterval time.Duration `mapstructure:"progress_interval" yaml:"progress_interval" json:"progress_interval"`
}

// ServerCfg configures the HTTP server.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host" json:"host"`
	Port string `mapstructure:"port" yaml:"port" json:"port"`
}

// Addr returns host:port.
func (s ServerCfg) Addr() string {
	return s.Host + ":" + s.Port
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// EnabledLLMProviders returns all enabled LLM providers.
func (c *Config) EnabledLLMProviders() map[string]LLMProviderCfg {
	result := make(map[string]LLMProviderCfg)
	for name, cfg := range c.LLMProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

// Redacted returns a copy of the config with API keys masked.
// Unresolved ${ENV_VAR} references are kept so users can see where a key comes from.
func (c *Config) Redacted() *Config {
	out := *c
	out.LLMProviders = make(map[string]LLMProviderCfg, len(c.LLMProviders))
	for name, p := range c.LLMProviders {
		p.APIKey = redact(p.APIKey)
		out.LLMProviders[name] = p
	}
	return &out
}

func redact(key string) string {
	switch {
	case key == "":
		return ""
	case envRef.MatchString(key) && envRef.FindString(key) == key:
		return key
	case len(key) <= 8:
		return "********"
	default:
		return key[:4] + "****" + key[len(key)-4:]
	}
}
