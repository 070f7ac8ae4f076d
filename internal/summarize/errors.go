package summarize

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackzampolin/digest/internal/cancel"
	"github.com/jackzampolin/digest/internal/providers"
)

var (
	// ErrTransient marks failures worth retrying: network faults, rate
	// limiting, 5xx responses.
	ErrTransient = errors.New("transient summarization failure")

	// ErrMalformedResponse is returned when the reply holds no valid
	// structured outcome. Not retried.
	ErrMalformedResponse = errors.New("malformed summarization response")

	// ErrCancelled is returned when the caller cancelled the call.
	ErrCancelled = cancel.ErrCancelled

	// ErrConfiguration is returned before any network activity for missing
	// credentials or an unusable setup.
	ErrConfiguration = errors.New("summarizer configuration error")

	// ErrProvider is a fatal provider rejection (4xx other than 408/429).
	ErrProvider = errors.New("provider rejected request")
)

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsCancelled reports whether err is a cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Classify maps a provider or transport error onto the summarization
// taxonomy. The original error stays in the chain.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTransient), errors.Is(err, ErrMalformedResponse),
		errors.Is(err, ErrConfiguration), errors.Is(err, ErrProvider):
		return err
	case IsCancelled(err):
		if errors.Is(err, ErrCancelled) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	case errors.Is(err, providers.ErrMissingAPIKey):
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	case providers.IsRetryable(err):
		return fmt.Errorf("%w: %w", ErrTransient, err)
	default:
		return fmt.Errorf("%w: %w", ErrProvider, err)
	}
}
