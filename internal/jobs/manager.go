package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/digest/internal/engine"
	"github.com/jackzampolin/digest/internal/llmcall"
	"github.com/jackzampolin/digest/internal/metrics"
	"github.com/jackzampolin/digest/internal/providers"
	"github.com/jackzampolin/digest/internal/summarize"
)

// LLMSource resolves provider names to clients.
type LLMSource interface {
	GetLLM(name string) (providers.LLMClient, error)
}

// Defaults apply to every job unless its Request overrides them.
type Defaults struct {
	Provider        string
	Model           string // Provider default when empty
	Temperature     float64
	MaxTokens       int
	MaxAttempts     int
	InitialDelay    time.Duration
	ContextStrategy string
}

// Config configures a Manager.
type Config struct {
	Providers LLMSource
	Defaults  Defaults
	Recorder  llmcall.Recorder // Optional
	Logger    *slog.Logger
}

// Manager runs one engine per job, each in its own goroutine.
type Manager struct {
	providers LLMSource
	defaults  Defaults
	recorder  llmcall.Recorder
	logger    *slog.Logger

	mu     sync.RWMutex
	jobs   map[string]*job
	closed bool
	wg     sync.WaitGroup
}

type job struct {
	id         string
	title      string
	provider   string
	model      string
	stopTarget string
	createdAt  time.Time
	engine     *engine.Engine
	done       chan struct{}

	mu          sync.Mutex
	startedAt   *time.Time
	completedAt *time.Time
	result      string
}

// NewManager creates a new job manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Providers == nil {
		return nil, fmt.Errorf("%w: no provider source", summarize.ErrConfiguration)
	}
	if cfg.Recorder == nil {
		cfg.Recorder = llmcall.Discard
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Manager{
		providers: cfg.Providers,
		defaults:  cfg.Defaults,
		recorder:  cfg.Recorder,
		logger:    cfg.Logger,
		jobs:      make(map[string]*job),
	}, nil
}

// Create validates req and starts the job in the background.
func (m *Manager) Create(req Request) (*Record, error) {
	if len(req.Chapters) == 0 {
		return nil, fmt.Errorf("%w: no chapters", ErrInvalidRequest)
	}

	providerName := req.Provider
	if providerName == "" {
		providerName = m.defaults.Provider
	}
	client, err := m.providers.GetLLM(providerName)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, providerName)
	}

	strategyName := req.ContextStrategy
	if strategyName == "" {
		strategyName = m.defaults.ContextStrategy
	}
	strategy, err := engine.ParseContextStrategy(strategyName)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	model := req.Model
	if model == "" {
		model = m.defaults.Model
	}
	if model == "" {
		model = client.Model()
	}

	id := uuid.New().String()
	logger := m.logger.With("job_id", id)

	summarizer, err := summarize.NewLLM(summarize.LLMConfig{
		Client:      client,
		Model:       model,
		Temperature: m.defaults.Temperature,
		MaxTokens:   m.defaults.MaxTokens,
		Recorder:    m.recorder,
		JobID:       id,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	eng, err := engine.New(engine.Config{
		Chapters:     req.Chapters,
		Summarizer:   summarizer,
		StopTarget:   req.StopTarget,
		TOC:          req.TOC,
		Strategy:     strategy,
		MaxAttempts:  m.defaults.MaxAttempts,
		InitialDelay: m.defaults.InitialDelay,
		OnChapter:    func(engine.Record) { metrics.ObserveChapter(true) },
		OnSkip:       func(int) { metrics.ObserveChapter(false) },
		OnRetry:      func(int, int, error) { metrics.RetriesTotal.Inc() },
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	j := &job{
		id:         id,
		title:      req.Title,
		provider:   providerName,
		model:      model,
		stopTarget: req.StopTarget,
		createdAt:  time.Now().UTC(),
		engine:     eng,
		done:       make(chan struct{}),
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	m.jobs[id] = j
	m.wg.Add(1)
	m.mu.Unlock()

	logger.Info("job created",
		"title", req.Title,
		"chapters", len(req.Chapters),
		"provider", providerName,
		"model", model,
		"stop_target", req.StopTarget)

	go m.run(j, logger)

	return j.snapshot(), nil
}

func (m *Manager) run(j *job, logger *slog.Logger) {
	defer m.wg.Done()
	defer close(j.done)

	start := time.Now()
	started := start.UTC()
	j.mu.Lock()
	j.startedAt = &started
	j.mu.Unlock()
	metrics.JobStarted()

	result, err := j.engine.Run(context.Background())

	completed := time.Now().UTC()
	j.mu.Lock()
	j.result = result
	j.completedAt = &completed
	j.mu.Unlock()

	status := statusOf(j.engine.State())
	metrics.JobFinished(string(status), start)

	switch status {
	case StatusCompleted:
		logger.Info("job completed", "chapters", len(j.engine.Records()), "duration", time.Since(start))
	case StatusCancelled:
		logger.Info("job cancelled", "cursor", j.engine.Cursor(), "total", j.engine.Total())
	default:
		logger.Error("job failed", "cursor", j.engine.Cursor(), "error", err)
	}
}

// Get returns a job by ID.
func (m *Manager) Get(id string) (*Record, error) {
	j, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	return j.snapshot(), nil
}

// List returns jobs matching the filter, newest first.
func (m *Manager) List(filter ListFilter) []*Record {
	m.mu.RLock()
	all := make([]*job, 0, len(m.jobs))
	for _, j := range m.jobs {
		all = append(all, j)
	}
	m.mu.RUnlock()

	sort.Slice(all, func(a, b int) bool {
		if all[a].createdAt.Equal(all[b].createdAt) {
			return all[a].id < all[b].id
		}
		return all[a].createdAt.After(all[b].createdAt)
	})

	out := make([]*Record, 0, len(all))
	for _, j := range all {
		rec := j.snapshot()
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		out = append(out, rec)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out
}

// Cancel stops a job. Cancelling a finished job is a no-op.
func (m *Manager) Cancel(id string) (*Record, error) {
	j, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	j.engine.Cancel()
	m.logger.Info("job cancel requested", "job_id", id)
	return j.snapshot(), nil
}

// Wait blocks until the job finishes or ctx is done.
func (m *Manager) Wait(ctx context.Context, id string) (*Record, error) {
	j, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	select {
	case <-j.done:
		return j.snapshot(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Counts returns the number of jobs in each status.
func (m *Manager) Counts() map[Status]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[Status]int)
	for _, j := range m.jobs {
		counts[j.status()]++
	}
	return counts
}

// Shutdown cancels every job and waits for their goroutines to exit.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	for _, j := range m.jobs {
		j.engine.Cancel()
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) lookup(id string) (*job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return j, nil
}

// status reports the job status. A job is running until its goroutine has
// stored the result, so a Record never shows a finished status without it.
func (j *job) status() Status {
	s := statusOf(j.engine.State())
	select {
	case <-j.done:
		return s
	default:
	}
	if s.Finished() {
		return StatusRunning
	}
	return s
}

func (j *job) snapshot() *Record {
	rec := &Record{
		ID:         j.id,
		Title:      j.title,
		Status:     j.status(),
		Progress:   j.engine.Progress(),
		Cursor:     j.engine.Cursor(),
		Total:      j.engine.Total(),
		Provider:   j.provider,
		Model:      j.model,
		StopTarget: j.stopTarget,
		Chapters:   j.engine.Records(),
		CreatedAt:  j.createdAt,
	}
	if rec.Status == StatusFailed {
		if err := j.engine.Err(); err != nil {
			rec.Error = err.Error()
		}
	}

	j.mu.Lock()
	rec.StartedAt = j.startedAt
	rec.CompletedAt = j.completedAt
	rec.Result = j.result
	j.mu.Unlock()

	if rec.Result == "" && len(rec.Chapters) > 0 {
		rec.Result = engine.Render(rec.Chapters)
	}
	return rec
}
