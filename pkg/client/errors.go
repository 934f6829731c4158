package client

import (
	"errors"
	"fmt"
)

// HTTPError represents a non-2xx HTTP response from the engine.
type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("HTTP %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsStatus returns true if err (or any wrapped error) is an HTTPError with
// the given status code.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == code
	}
	return false
}

// ErrResolveBusy is returned when a candidate selection arrives while a
// previous selection is still being parsed. Selections are not queued.
var ErrResolveBusy = errors.New("candidate resolution already in progress")

// ErrNoSourceText is the client-side precondition failure for card
// generation: nothing has been ingested for this professor yet.
var ErrNoSourceText = errors.New("no source text available; ingest a URL first")
