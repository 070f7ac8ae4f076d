// Package engine walks a book chapter by chapter, summarizing each with the
// running context of the chapters before it.
//
// An Engine owns the chapter cursor, the running context, the record log and
// a cancellation token. Work is strictly sequential: each Step makes at most
// one summarization call (with retries) and commits its outcome before the
// cursor moves. Cancel may be called from any goroutine; a blocked Step
// returns as soon as the token fires and any reply arriving afterwards is
// discarded.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackzampolin/digest/internal/cancel"
	"github.com/jackzampolin/digest/internal/retry"
	"github.com/jackzampolin/digest/internal/similarity"
	"github.com/jackzampolin/digest/internal/summarize"
)

var (
	// ErrTerminal is returned by Step once the engine has completed.
	ErrTerminal = errors.New("engine is in a terminal state")

	// ErrStepInFlight is returned when Step is called while another Step is running.
	ErrStepInFlight = errors.New("a step is already in flight")

	// ErrConfiguration is returned by New for unusable configurations.
	ErrConfiguration = summarize.ErrConfiguration
)

// State is the engine lifecycle state.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further steps are possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// ContextStrategy decides how the running context evolves.
type ContextStrategy string

const (
	// ContextReplace keeps only the latest chapter summary.
	ContextReplace ContextStrategy = "replace"
	// ContextAccumulate concatenates every summary, separated by blank lines.
	ContextAccumulate ContextStrategy = "accumulate"
)

// ParseContextStrategy parses a strategy name. Empty means ContextReplace.
func ParseContextStrategy(s string) (ContextStrategy, error) {
	switch ContextStrategy(s) {
	case "", ContextReplace:
		return ContextReplace, nil
	case ContextAccumulate:
		return ContextAccumulate, nil
	default:
		return "", fmt.Errorf("%w: unknown context strategy %q", ErrConfiguration, s)
	}
}

func (s ContextStrategy) next(current, summary string) string {
	if s == ContextAccumulate && current != "" {
		return current + "\n\n" + summary
	}
	return summary
}

// Record is one summarized chapter.
type Record struct {
	Index   int    `json:"index"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// Config configures an Engine.
type Config struct {
	Chapters   []string
	Summarizer summarize.Summarizer

	// StopTarget ends the run after the first chapter whose title matches it.
	StopTarget string
	TOC        []string

	Strategy     ContextStrategy // ContextReplace when empty
	MaxAttempts  int             // retry.DefaultAttempts when zero
	InitialDelay time.Duration   // retry.DefaultInitialDelay when zero

	// OnChapter is called after each record is committed, from the
	// goroutine running Step.
	OnChapter func(Record)
	// OnSkip is called when the content at index is not a chapter.
	OnSkip func(index int)
	// OnRetry is called before each retry of the chapter at index.
	OnRetry func(index, attempt int, err error)

	Logger *slog.Logger
}

// Engine is the progressive summarization state machine.
type Engine struct {
	chapters     []string
	summarizer   summarize.Summarizer
	stopTarget   string
	toc          []string
	strategy     ContextStrategy
	attempts     int
	initialDelay time.Duration
	onChapter    func(Record)
	onSkip       func(int)
	onRetry      func(int, int, error)
	logger       *slog.Logger

	token  *cancel.Token
	stepMu sync.Mutex
	cursor atomic.Int64

	mu      sync.Mutex
	state   State
	records []Record
	running string
	err     error
}

// New creates an Engine in the Idle state.
func New(cfg Config) (*Engine, error) {
	if cfg.Summarizer == nil {
		return nil, fmt.Errorf("%w: no summarizer", ErrConfiguration)
	}
	strategy, err := ParseContextStrategy(string(cfg.Strategy))
	if err != nil {
		return nil, err
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = retry.DefaultAttempts
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = retry.DefaultInitialDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	chapters := make([]string, len(cfg.Chapters))
	copy(chapters, cfg.Chapters)
	toc := make([]string, len(cfg.TOC))
	copy(toc, cfg.TOC)

	return &Engine{
		chapters:     chapters,
		summarizer:   cfg.Summarizer,
		stopTarget:   cfg.StopTarget,
		toc:          toc,
		strategy:     strategy,
		attempts:     cfg.MaxAttempts,
		initialDelay: cfg.InitialDelay,
		onChapter:    cfg.OnChapter,
		onSkip:       cfg.OnSkip,
		onRetry:      cfg.OnRetry,
		logger:       cfg.Logger,
		token:        cancel.New(context.Background()),
	}, nil
}

type stepResult struct {
	outcome summarize.Outcome
	err     error
}

// Step summarizes the chapter at the cursor. done is true when the run has
// completed, either at the end of the book or at the stop target.
//
// A failed step leaves the cursor in place, so calling Step again retries
// the same chapter. Cancelling ctx cancels the engine.
func (e *Engine) Step(ctx context.Context) (done bool, err error) {
	if !e.stepMu.TryLock() {
		return false, ErrStepInFlight
	}
	defer e.stepMu.Unlock()

	if ctx.Err() != nil {
		e.Cancel()
	}

	e.mu.Lock()
	switch {
	case e.state == StateCompleted:
		e.mu.Unlock()
		return true, ErrTerminal
	case e.state == StateCancelled || e.token.Cancelled():
		e.state = StateCancelled
		e.mu.Unlock()
		return false, e.cancelledErr(ctx)
	}
	idx := int(e.cursor.Load())
	if idx >= len(e.chapters) {
		e.state = StateCompleted
		e.mu.Unlock()
		return true, nil
	}
	e.state = StateRunning
	req := summarize.Request{
		Context:    e.running,
		Chapter:    e.chapters[idx],
		StopTarget: e.stopTarget,
		TOC:        e.toc,
		Index:      idx,
	}
	e.mu.Unlock()

	callCtx, stopCall := context.WithCancel(e.token.Context())
	defer stopCall()
	stopWatch := context.AfterFunc(ctx, e.Cancel)
	defer stopWatch()

	// Buffered so an abandoned call can finish without blocking.
	results := make(chan stepResult, 1)
	go func() {
		out, err := retry.Do(callCtx, func(c context.Context) (summarize.Outcome, error) {
			return e.summarizer.SummarizeChapter(c, req)
		},
			retry.Attempts(e.attempts),
			retry.InitialDelay(e.initialDelay),
			retry.If(summarize.IsTransient),
			retry.OnRetry(func(attempt int, delay time.Duration, err error) {
				e.logger.Warn("retrying chapter",
					"chapter", idx,
					"attempt", attempt,
					"delay", delay,
					"error", err)
				if e.onRetry != nil {
					e.onRetry(idx, attempt, err)
				}
			}),
		)
		results <- stepResult{outcome: out, err: err}
	}()

	var res stepResult
	select {
	case res = <-results:
	case <-e.token.Done():
		e.markCancelled()
		return false, e.cancelledErr(ctx)
	}

	return e.commit(ctx, idx, res)
}

// commit applies a step result. Results that arrive after cancellation are
// dropped without touching state.
func (e *Engine) commit(ctx context.Context, idx int, res stepResult) (bool, error) {
	e.mu.Lock()
	if e.token.Cancelled() {
		e.state = StateCancelled
		e.mu.Unlock()
		return false, e.cancelledErr(ctx)
	}

	if res.err != nil {
		e.state = StateFailed
		e.err = res.err
		e.mu.Unlock()
		e.logger.Error("chapter failed", "chapter", idx, "error", res.err)
		return false, res.err
	}
	e.err = nil

	out := res.outcome
	if !out.IsChapter {
		next := e.cursor.Add(1)
		done := int(next) >= len(e.chapters)
		if done {
			e.state = StateCompleted
		}
		e.mu.Unlock()
		e.logger.Debug("skipped non-chapter content", "chapter", idx)
		if e.onSkip != nil {
			e.onSkip(idx)
		}
		return done, nil
	}

	rec := Record{Index: idx, Title: out.Title, Summary: out.Summary}
	e.records = append(e.records, rec)
	e.running = e.strategy.next(e.running, out.Summary)

	stop := e.stopTarget != "" && similarity.IsMatch(out.Title, e.stopTarget)
	next := e.cursor.Add(1)
	done := stop || int(next) >= len(e.chapters)
	if done {
		e.state = StateCompleted
	}
	e.mu.Unlock()

	if e.stopTarget != "" && out.SuggestsStop != stop {
		e.logger.Debug("model stop judgment disagrees with title match",
			"chapter", idx,
			"title", out.Title,
			"model_stop", out.SuggestsStop,
			"matched", stop)
	}
	e.logger.Info("chapter summarized", "chapter", idx, "title", out.Title, "stop", stop)

	if e.onChapter != nil {
		e.onChapter(rec)
	}
	return done, nil
}

func (e *Engine) cancelledErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", summarize.ErrCancelled, err)
	}
	return summarize.ErrCancelled
}

func (e *Engine) markCancelled() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateCompleted {
		e.state = StateCancelled
	}
}

// Run steps until the run completes and returns the rendered summary. On
// error the render of the chapters recorded so far is returned with it.
func (e *Engine) Run(ctx context.Context) (string, error) {
	if e.State() == StateCompleted {
		return Render(e.Records()), nil
	}
	for {
		done, err := e.Step(ctx)
		if err != nil {
			return Render(e.Records()), err
		}
		if done {
			return Render(e.Records()), nil
		}
	}
}

// Cancel stops the engine. It is safe to call more than once and from any
// goroutine. A completed engine stays completed.
func (e *Engine) Cancel() {
	e.token.Cancel()
	e.markCancelled()
}

// Done is closed once the engine is cancelled.
func (e *Engine) Done() <-chan struct{} {
	return e.token.Done()
}

// Progress returns cursor/total in [0,1]. It never blocks.
func (e *Engine) Progress() float64 {
	total := len(e.chapters)
	if total == 0 {
		return 0
	}
	return float64(e.cursor.Load()) / float64(total)
}

// Cursor returns the index of the next chapter to process.
func (e *Engine) Cursor() int {
	return int(e.cursor.Load())
}

// Total returns the number of chapters.
func (e *Engine) Total() int {
	return len(e.chapters)
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Err returns the error of the last failed step, if the engine is Failed.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Records returns a copy of the record log.
func (e *Engine) Records() []Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Record, len(e.records))
	copy(out, e.records)
	return out
}

// RunningContext returns the context that will be sent with the next chapter.
func (e *Engine) RunningContext() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}
