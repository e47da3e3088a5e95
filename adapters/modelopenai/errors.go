package modelopenai

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrAPIKeyRequired = errors.New("api key is required")
	ErrModelRequired  = errors.New("model is required")
)

// ProviderError reports a failed call to the chat completions endpoint.
// StatusCode is zero for transport failures.
type ProviderError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("provider request execute: %v", e.Err)
	}
	return fmt.Sprintf("provider response status=%d body=%s", e.StatusCode, e.Body)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Temporary reports transport failures, rate limiting and server errors.
func (e *ProviderError) Temporary() bool {
	if e.StatusCode == 0 {
		return e.Err != nil
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}
