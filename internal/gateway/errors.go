package gateway

import (
	"context"
	"errors"
	"net"
)

var (
	// ErrEmptyConversation is returned before any model call when there is nothing to summarize.
	ErrEmptyConversation = errors.New("conversation has no messages")

	ErrCircuitOpen   = errors.New("circuit breaker open")
	ErrNotConfigured = errors.New("no language model configured")
	ErrEmptyOutput   = errors.New("model returned no text")
)

// Error is every failure of a model call. Retryable marks transient failures.
// Throttled marks quota rejections, which are not retried but still count
// against upstream health.
type Error struct {
	Op        string
	Retryable bool
	Throttled bool
	Err       error
}

func (e *Error) Error() string {
	return "gateway " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// asError wraps err as an *Error for op, keeping an existing classification.
func asError(op string, err error) *Error {
	var gerr *Error
	if errors.As(err, &gerr) {
		if gerr.Op == "" {
			gerr.Op = op
		}
		return gerr
	}
	return &Error{Op: op, Retryable: isTransient(err), Err: err}
}

func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// breakerOutcome decides whether a failed call says anything about the upstream.
func breakerOutcome(err *Error) outcome {
	switch {
	case errors.Is(err, context.Canceled):
		return outcomeNeutral
	case err.Retryable, err.Throttled:
		return outcomeFailure
	default:
		return outcomeNeutral
	}
}
