package llmcall

import (
	"errors"
	"sync"
	"time"
)

// DefaultCapacity is the number of calls kept when NewStore is given zero.
const DefaultCapacity = 1000

// ErrNotFound is returned by Get for unknown call IDs.
var ErrNotFound = errors.New("llm call not found")

// Store keeps the most recent LLM calls in memory. Once full, the oldest
// call is evicted for each new one.
type Store struct {
	mu       sync.RWMutex
	capacity int
	calls    []*Call // ring buffer
	next     int
	full     bool
}

// NewStore creates a new LLMCall store holding up to capacity calls.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		capacity: capacity,
		calls:    make([]*Call, capacity),
	}
}

// QueryFilter specifies filters for listing LLM calls.
type QueryFilter struct {
	JobID     string
	PromptKey string
	Provider  string
	Model     string
	After     *time.Time
	Before    *time.Time
	Success   *bool
	Limit     int
	Offset    int
}

// RecordCall stores an already-constructed Call.
func (s *Store) RecordCall(call *Call) {
	if s == nil || call == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[s.next] = call
	s.next = (s.next + 1) % s.capacity
	if s.next == 0 {
		s.full = true
	}
}

// Len returns the number of stored calls.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.full {
		return s.capacity
	}
	return s.next
}

// Get retrieves a single LLM call by ID.
func (s *Store) Get(id string) (*Call, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.calls {
		if c != nil && c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// List retrieves LLM calls matching the filter, newest first.
func (s *Store) List(filter QueryFilter) []Call {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.next
	if s.full {
		n = s.capacity
	}

	var out []Call
	skipped := 0
	for i := 0; i < n; i++ {
		idx := (s.next - 1 - i + s.capacity) % s.capacity
		c := s.calls[idx]
		if c == nil || !filter.matches(c) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		out = append(out, *c)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out
}

// CountByPromptKey returns call counts grouped by prompt key.
func (s *Store) CountByPromptKey(jobID string) map[string]int {
	counts := make(map[string]int)
	for _, c := range s.List(QueryFilter{JobID: jobID}) {
		counts[c.PromptKey]++
	}
	return counts
}

func (f QueryFilter) matches(c *Call) bool {
	if f.JobID != "" && c.JobID != f.JobID {
		return false
	}
	if f.PromptKey != "" && c.PromptKey != f.PromptKey {
		return false
	}
	if f.Provider != "" && c.Provider != f.Provider {
		return false
	}
	if f.Model != "" && c.Model != f.Model {
		return false
	}
	if f.Success != nil && c.Success != *f.Success {
		return false
	}
	if f.After != nil && !c.Timestamp.After(*f.After) {
		return false
	}
	if f.Before != nil && !c.Timestamp.Before(*f.Before) {
		return false
	}
	return true
}
