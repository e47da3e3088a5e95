package jira

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnknownIntent is returned when an expression names an intent outside the closed set.
	ErrUnknownIntent = errors.New("unknown filter intent")
	// ErrBaseURLInvalid is returned by NewClient for a missing or malformed site URL.
	ErrBaseURLInvalid = errors.New("invalid jira base url")
)

// RetrievalError reports a failed search against the tracker.
// StatusCode is zero for transport failures. Permanent marks failures that
// happen before a request is sent.
type RetrievalError struct {
	StatusCode int
	Message    string
	Err        error
	Permanent  bool
}

func (e *RetrievalError) Error() string {
	msg := "jira search"
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// Temporary reports whether retrying the same search may succeed.
func (e *RetrievalError) Temporary() bool {
	if e.Permanent {
		return false
	}
	if e.StatusCode == 0 {
		return e.Err != nil
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}
