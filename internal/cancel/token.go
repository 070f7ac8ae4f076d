// Package cancel provides a one-shot cancellation token.
//
// A Token can be observed by polling (Cancelled), by waiting on a channel
// (Done), by registering callbacks (OnCancel) or through the context it
// carries (Context), which is what network calls and backoff sleeps consume.
// Once cancelled a Token stays cancelled.
package cancel

import (
	"context"
	"errors"
	"sync"
)

// ErrCancelled is the cause attached to a token's context by Cancel.
var ErrCancelled = errors.New("cancelled")

// Token is a terminal cancellation flag paired with a signal.
// The zero value is not usable; create tokens with New.
type Token struct {
	ctx    context.Context
	cancel context.CancelCauseFunc

	mu        sync.Mutex
	cancelled bool
	callbacks []func()
}

// New returns a token whose context derives from parent. Cancellation of
// parent also cancels the token.
func New(parent context.Context) *Token {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancelCause(parent)
	t := &Token{ctx: ctx, cancel: cancel}

	// Parent cancellation must flip the flag and run callbacks too.
	context.AfterFunc(ctx, t.Cancel)
	return t
}

// Cancel marks the token cancelled, closes Done and runs registered
// callbacks. Calls after the first have no effect.
func (t *Token) Cancel() {
	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		return
	}
	t.cancelled = true
	callbacks := t.callbacks
	t.callbacks = nil
	t.mu.Unlock()

	t.cancel(ErrCancelled)
	for _, fn := range callbacks {
		fn()
	}
}

// Cancelled reports whether the token or its parent has been cancelled.
func (t *Token) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled || t.ctx.Err() != nil
}

// Done returns a channel that is closed when the token is cancelled.
func (t *Token) Done() <-chan struct{} {
	return t.ctx.Done()
}

// Context returns a context that is cancelled together with the token.
func (t *Token) Context() context.Context {
	return t.ctx
}

// OnCancel registers fn to run once when the token is cancelled. If the
// token is already cancelled fn runs immediately on the calling goroutine.
func (t *Token) OnCancel(fn func()) {
	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		fn()
		return
	}
	t.callbacks = append(t.callbacks, fn)
	t.mu.Unlock()
}
