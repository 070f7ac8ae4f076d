// Package jobs runs summarization engines in the background and tracks
// their progress in memory. Jobs do not survive a restart.
package jobs

import (
	"errors"
	"time"

	"github.com/jackzampolin/digest/internal/engine"
)

var (
	// ErrNotFound is returned for unknown job IDs.
	ErrNotFound = errors.New("job not found")
	// ErrInvalidRequest is returned when a job request cannot be run.
	ErrInvalidRequest = errors.New("invalid job request")
	// ErrUnknownProvider is returned when the requested LLM provider is not registered.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrClosed is returned by Create after Shutdown.
	ErrClosed = errors.New("job manager closed")
)

// Status represents the current state of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Finished reports whether the job will make no further progress.
func (s Status) Finished() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

func statusOf(s engine.State) Status {
	switch s {
	case engine.StateRunning:
		return StatusRunning
	case engine.StateCompleted:
		return StatusCompleted
	case engine.StateCancelled:
		return StatusCancelled
	case engine.StateFailed:
		return StatusFailed
	default:
		return StatusQueued
	}
}

// Request describes a summarization job.
type Request struct {
	Title      string   `json:"title,omitempty"`
	Chapters   []string `json:"chapters"`
	TOC        []string `json:"toc,omitempty"`
	StopTarget string   `json:"stop_target,omitempty"`

	// Overrides of the manager defaults
	Provider        string `json:"provider,omitempty"`
	Model           string `json:"model,omitempty"`
	ContextStrategy string `json:"context_strategy,omitempty"`
}

// Record is a point-in-time view of a job.
type Record struct {
	ID         string  `json:"id"`
	Title      string  `json:"title,omitempty"`
	Status     Status  `json:"status"`
	Progress   float64 `json:"progress"`
	Cursor     int     `json:"cursor"`
	Total      int     `json:"total"`
	Provider   string  `json:"provider"`
	Model      string  `json:"model"`
	StopTarget string  `json:"stop_target,omitempty"`

	Chapters []engine.Record `json:"chapters"`
	Result   string          `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ListFilter specifies criteria for listing jobs.
type ListFilter struct {
	Status Status // Filter by status (empty = all)
	Limit  int    // Max results (0 = all)
}
