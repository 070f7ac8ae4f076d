package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"gopkg.in/yaml.v2"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	for _, name := range []string{"openrouter", "openai", "deepseek"} {
		if _, ok := cfg.GetLLMProvider(name); !ok {
			t.Errorf("expected default provider %s", name)
		}
	}
	if cfg.LLMProviders["openrouter"].APIKey != "${OPENROUTER_API_KEY}" {
		t.Error("expected openrouter API key placeholder")
	}
	if cfg.Summarize.Temperature != 0.2 || cfg.Summarize.MaxTokens != 1000 {
		t.Errorf("unexpected sampling defaults: %+v", cfg.Summarize)
	}
	if cfg.Summarize.MaxAttempts != 3 || cfg.Summarize.InitialDelay != time.Second {
		t.Errorf("unexpected retry defaults: %+v", cfg.Summarize)
	}
	if cfg.Summarize.ContextStrategy != "replace" {
		t.Errorf("ContextStrategy = %s, want replace", cfg.Summarize.ContextStrategy)
	}
	if cfg.Server.Addr() != "127.0.0.1:8080" {
		t.Errorf("Addr = %s", cfg.Server.Addr())
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		t.Setenv("TEST_API_KEY", "secret123")

		result := ResolveEnvVars("${TEST_API_KEY}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func TestConfig_ToProviderRegistryConfig(t *testing.T) {
	t.Setenv("TEST_OPENROUTER_KEY", "or-key-123")

	cfg := &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"openrouter": {Type: "openrouter", APIKey: "${TEST_OPENROUTER_KEY}", Enabled: true},
			"local":      {Type: "openai", BaseURL: "http://localhost:1234/v1", APIKey: "direct-key", RateLimit: 2},
		},
	}

	reg := cfg.ToProviderRegistryConfig()
	if got := reg.LLMProviders["openrouter"].APIKey; got != "or-key-123" {
		t.Errorf("expected or-key-123, got %s", got)
	}
	local := reg.LLMProviders["local"]
	if local.APIKey != "direct-key" || local.BaseURL != "http://localhost:1234/v1" || local.RateLimit != 2 {
		t.Errorf("unexpected local provider: %+v", local)
	}
	if local.Enabled {
		t.Error("expected local provider disabled")
	}
}

func TestConfig_Redacted(t *testing.T) {
	cfg := &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"ref":     {APIKey: "${OPENAI_API_KEY}"},
			"literal": {APIKey: "sk-abcdefghijklmnop"},
			"short":   {APIKey: "abc"},
		},
	}

	red := cfg.Redacted()
	if got := red.LLMProviders["ref"].APIKey; got != "${OPENAI_API_KEY}" {
		t.Errorf("env reference should be kept, got %s", got)
	}
	if got := red.LLMProviders["literal"].APIKey; got != "sk-a****mnop" {
		t.Errorf("literal = %s", got)
	}
	if got := red.LLMProviders["short"].APIKey; got != "********" {
		t.Errorf("short = %s", got)
	}
	if cfg.LLMProviders["literal"].APIKey != "sk-abcdefghijklmnop" {
		t.Error("Redacted must not modify the original")
	}
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		path := writeConfig(t, `
llm_providers:
  local:
    type: openai
    base_url: http://localhost:1234/v1
    api_key: local-key
    enabled: true
summarize:
  model: my-model
  initial_delay: 250ms
server:
  port: "9000"
`)

		mgr, err := NewManager(path)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		local, ok := cfg.GetLLMProvider("local")
		if !ok || local.BaseURL != "http://localhost:1234/v1" {
			t.Errorf("unexpected local provider: %+v", local)
		}
		if _, ok := cfg.GetLLMProvider("openrouter"); !ok {
			t.Error("expected defaults to be merged with file providers")
		}
		if cfg.Summarize.Model != "my-model" {
			t.Errorf("Model = %s, want my-model", cfg.Summarize.Model)
		}
		if cfg.Summarize.InitialDelay != 250*time.Millisecond {
			t.Errorf("InitialDelay = %v, want 250ms", cfg.Summarize.InitialDelay)
		}
		if cfg.Summarize.MaxTokens != DefaultMaxTokens {
			t.Errorf("MaxTokens = %d, want default", cfg.Summarize.MaxTokens)
		}
		if cfg.Server.Addr() != "127.0.0.1:9000" {
			t.Errorf("Addr = %s", cfg.Server.Addr())
		}
		if mgr.ConfigFile() != path {
			t.Errorf("ConfigFile = %s, want %s", mgr.ConfigFile(), path)
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("DIGEST_SUMMARIZE_PROVIDER", "deepseek")
		path := writeConfig(t, "summarize:\n  provider: openai\n")

		mgr, err := NewManager(path)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		if got := mgr.Get().Summarize.Provider; got != "deepseek" {
			t.Errorf("Provider = %s, want deepseek", got)
		}
	})

	t.Run("missing explicit file is an error", func(t *testing.T) {
		_, err := NewManager(filepath.Join(t.TempDir(), "nope.yaml"))
		if err == nil {
			t.Fatal("expected error for missing config file")
		}
	})
}

func TestManager_OnChange_Multiple(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "summarize:\n  model: m\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 3 {
		t.Errorf("expected 3 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_Get_ThreadSafe(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "summarize:\n  model: m\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				_ = mgr.Get().Summarize.Model
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestManager_WatchConfig(t *testing.T) {
	path := writeConfig(t, "summarize:\n  model: initial_value\n")

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	if got := mgr.Get().Summarize.Model; got != "initial_value" {
		t.Errorf("initial value mismatch: got %s", got)
	}

	var callbackCount atomic.Int32
	var lastValue atomic.Value

	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastValue.Store(cfg.Summarize.Model)
	})

	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(path, []byte("summarize:\n  model: updated_value\n"), 0o644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if v, _ := lastValue.Load().(string); v == "updated_value" {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Fatal("callback was not invoked after config file change")
	}
	if got := mgr.Get().Summarize.Model; got != "updated_value" {
		t.Errorf("config not updated: got %s", got)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# Digest configuration") {
		t.Error("expected header comment")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("written file is not valid yaml: %v", err)
	}
	if cfg.LLMProviders["deepseek"].BaseURL != "https://api.deepseek.com/v1" {
		t.Errorf("unexpected deepseek provider: %+v", cfg.LLMProviders["deepseek"])
	}

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager on default file: %v", err)
	}
	if mgr.Get().Summarize.InitialDelay != time.Second {
		t.Errorf("InitialDelay = %v, want 1s", mgr.Get().Summarize.InitialDelay)
	}
}
