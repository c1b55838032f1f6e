package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotConfigured is returned by the "none" provider.
var ErrNotConfigured = errors.New("llm provider not configured")

type RateLimitError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// InvalidResponseError means the model answered but the content is not
// usable: bad JSON, schema mismatch, or no content at all.
type InvalidResponseError struct {
	Content json.RawMessage
	Err     error
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("invalid llm response: %v", e.Err)
}

func (e *InvalidResponseError) Unwrap() error { return e.Err }

type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	if e.Err == nil {
		return "llm provider unavailable"
	}
	return fmt.Sprintf("llm provider unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func invalid(raw json.RawMessage, format string, args ...any) error {
	return &InvalidResponseError{Content: raw, Err: fmt.Errorf(format, args...)}
}

// statusError classifies an HTTP status from any SDK into the errors above.
func statusError(status int, err error) error {
	switch {
	case status == 429:
		return &RateLimitError{Err: err}
	default:
		return &UnavailableError{Err: err}
	}
}
