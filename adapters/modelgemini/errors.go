package modelgemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

// ProviderError reports a failed Gemini API call. StatusCode is zero for transport failures.
type ProviderError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("gemini request: %v", e.Err)
	}
	return fmt.Sprintf("gemini response status=%d: %s", e.StatusCode, e.Message)
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

func providerError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return err
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{StatusCode: apiErr.Code, Message: apiErr.Message, Err: err}
	}
	return &ProviderError{Err: err}
}
