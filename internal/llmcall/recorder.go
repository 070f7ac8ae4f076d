package llmcall

import (
	"github.com/jackzampolin/digest/internal/providers"
)

// Recorder captures LLM calls. Implementations must not block the caller.
type Recorder interface {
	Record(result *providers.ChatResult, opts RecordOptions)
}

// Discard is a Recorder that drops every call.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Record(*providers.ChatResult, RecordOptions) {}

// Record captures an LLM call. A nil store drops it.
func (s *Store) Record(result *providers.ChatResult, opts RecordOptions) {
	if s == nil {
		return
	}
	s.RecordCall(FromChatResult(result, opts))
}

var _ Recorder = (*Store)(nil)

// Multi fans a call out to every recorder in order. Nil entries are skipped.
func Multi(recorders ...Recorder) Recorder {
	var rs multi
	for _, r := range recorders {
		if r != nil {
			rs = append(rs, r)
		}
	}
	return rs
}

type multi []Recorder

func (m multi) Record(result *providers.ChatResult, opts RecordOptions) {
	for _, r := range m {
		r.Record(result, opts)
	}
}
