package llm

import (
	"fmt"
	"time"
)

// ErrRateLimit indicates the provider returned a rate limit error (429).
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrProviderUnavailable indicates the provider is down or unreachable.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("LLM provider unavailable: %v", e.Err)
	}
	return "LLM provider unavailable"
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrRejected indicates the provider refused the request, e.g. a bad API
// key or an invalid argument. It is never retried.
type ErrRejected struct {
	Code int
	Err  error
}

func (e *ErrRejected) Error() string {
	return fmt.Sprintf("LLM request rejected (%d): %v", e.Code, e.Err)
}

func (e *ErrRejected) Unwrap() error { return e.Err }

// ErrEmptyResponse indicates the model returned no text.
type ErrEmptyResponse struct {
	StopReason string
}

func (e *ErrEmptyResponse) Error() string {
	return fmt.Sprintf("LLM returned no text (stop reason %q)", e.StopReason)
}
