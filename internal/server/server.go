package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jackzampolin/digest/internal/api"
	"github.com/jackzampolin/digest/internal/config"
	"github.com/jackzampolin/digest/internal/home"
	"github.com/jackzampolin/digest/internal/jobs"
	"github.com/jackzampolin/digest/internal/llmcall"
	"github.com/jackzampolin/digest/internal/metrics"
	"github.com/jackzampolin/digest/internal/providers"
	"github.com/jackzampolin/digest/internal/server/endpoints"
	"github.com/jackzampolin/digest/internal/svcctx"
)

const shutdownTimeout = 30 * time.Second

// Server is the main Digest HTTP server.
// It owns the provider registry, the LLM call log, and the job manager.
type Server struct {
	httpServer *http.Server
	registry   *providers.Registry
	callStore  *llmcall.Store
	configMgr  *config.Manager
	home       *home.Dir
	logger     *slog.Logger

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu         sync.RWMutex
	running    bool
	listener   net.Listener
	jobManager *jobs.Manager
	services   *svcctx.Services
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8080, "0" picks a free port)
	Port string
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Home is the digest home directory (optional)
	Home *home.Dir
	// Registry overrides the provider registry built from ConfigManager
	Registry *providers.Registry
	// LLMCallCapacity bounds the in-memory LLM call log
	LLMCallCapacity int
	// SwaggerSpecPath serves this file instead of the compiled-in OpenAPI doc
	SwaggerSpecPath string
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = config.DefaultHost
	}
	if cfg.Port == "" {
		cfg.Port = config.DefaultPort
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ConfigManager == nil && cfg.Registry == nil {
		return nil, errors.New("server needs a config manager or a provider registry")
	}

	registry := cfg.Registry
	if registry == nil {
		registry = providers.NewRegistry()
		registry.SetLogger(cfg.Logger)
		registry.Reload(cfg.ConfigManager.Get().ToProviderRegistryConfig())

		// Watch for config changes
		cfg.ConfigManager.OnChange(func(c *config.Config) {
			registry.Reload(c.ToProviderRegistryConfig())
			cfg.Logger.Info("provider registry reloaded from config")
		})
	}

	s := &Server{
		registry:  registry,
		callStore: llmcall.NewStore(cfg.LLMCallCapacity),
		configMgr: cfg.ConfigManager,
		home:      cfg.Home,
		logger:    cfg.Logger,
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{SwaggerSpecPath: cfg.SwaggerSpecPath}) {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)
	s.registerRoutes(mux)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.middleware(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start initializes the job manager and serves HTTP.
// It blocks until the context is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()
	defer s.setNotRunning()

	jm, err := jobs.NewManager(jobs.Config{
		Providers: s.registry,
		Defaults:  s.jobDefaults(),
		Recorder:  llmcall.Multi(s.callStore, metrics.LLM),
		Logger:    s.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create job manager: %w", err)
	}

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.jobManager = jm
	s.services = &svcctx.Services{
		JobManager:   jm,
		Registry:     s.registry,
		Config:       s.configMgr,
		Logger:       s.logger,
		Home:         s.home,
		LLMCallStore: s.callStore,
	}
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("starting HTTP server", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			s.logger.Info("shutdown signal received")
		}
		return s.shutdown(jm)
	})

	return g.Wait()
}

// shutdown stops accepting requests and cancels running jobs.
func (s *Server) shutdown(jm *jobs.Manager) error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.logger.Info("stopping jobs")
	if err := jm.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("job manager shutdown error", "error", err)
		return err
	}

	s.logger.Info("server stopped")
	return nil
}

func (s *Server) jobDefaults() jobs.Defaults {
	d := jobs.Defaults{
		Provider:        config.DefaultProvider,
		Temperature:     config.DefaultTemperature,
		MaxTokens:       config.DefaultMaxTokens,
		MaxAttempts:     config.DefaultMaxAttempts,
		InitialDelay:    config.DefaultInitialDelay,
		ContextStrategy: config.DefaultContextStrategy,
	}
	if s.configMgr == nil {
		return d
	}
	sc := s.configMgr.Get().Summarize
	return jobs.Defaults{
		Provider:        sc.Provider,
		Model:           sc.Model,
		Temperature:     sc.Temperature,
		MaxTokens:       sc.MaxTokens,
		MaxAttempts:     sc.MaxAttempts,
		InitialDelay:    sc.InitialDelay,
		ContextStrategy: sc.ContextStrategy,
	}
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// JobManager returns the job manager.
// Returns nil if the server hasn't started yet.
func (s *Server) JobManager() *jobs.Manager {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobManager
}

// Addr returns the bound address once started, the configured one before.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Registry returns the provider registry.
func (s *Server) Registry() *providers.Registry {
	return s.registry
}

// LLMCallStore returns the LLM call log.
func (s *Server) LLMCallStore() *llmcall.Store {
	return s.callStore
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) currentServices() *svcctx.Services {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.services
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable if the job manager isn't ready.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.JobManager() == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
