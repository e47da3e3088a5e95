package retry

import (
	"context"
	"errors"
	"time"

	"github.com/Gurpartap/jiraagent/agent"
)

// Config controls retry behavior for wrapped model, completer and search calls.
// Attempt n waits n*Backoff before running again.
type Config struct {
	MaxAttempts int
	Backoff     time.Duration
	ShouldRetry func(error) bool
}

// Do runs fn until it succeeds, the policy refuses another attempt, or ctx is done.
// The last error is returned unchanged.
func Do[T any](ctx context.Context, cfg Config, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if ctx == nil {
		return zero, agent.ErrContextNil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return zero, ctxErr
	}

	attempts := normalizedAttempts(cfg.MaxAttempts)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		value, err := fn(ctx)
		if err == nil {
			return value, nil
		}
		lastErr = err
		if attempt == attempts || !shouldRetry(ctx, cfg, err) {
			break
		}
		if err := wait(ctx, time.Duration(attempt)*cfg.Backoff); err != nil {
			break
		}
	}
	return zero, lastErr
}

// WrapModel wraps a model with error-only retries.
func WrapModel(model agent.Model, cfg Config) agent.Model {
	if model == nil {
		return nil
	}
	return &modelWrapper{
		next: model,
		cfg:  cfg,
	}
}

type modelWrapper struct {
	next agent.Model
	cfg  Config
}

func (w *modelWrapper) Generate(ctx context.Context, request agent.ModelRequest) (agent.Message, error) {
	return Do(ctx, w.cfg, func(ctx context.Context) (agent.Message, error) {
		return w.next.Generate(ctx, request)
	})
}

// WrapCompleter wraps a text completer with error-only retries.
func WrapCompleter(completer agent.Completer, cfg Config) agent.Completer {
	if completer == nil {
		return nil
	}
	return &completerWrapper{
		next: completer,
		cfg:  cfg,
	}
}

type completerWrapper struct {
	next agent.Completer
	cfg  Config
}

func (w *completerWrapper) Complete(ctx context.Context, request agent.CompletionRequest) (string, error) {
	return Do(ctx, w.cfg, func(ctx context.Context) (string, error) {
		return w.next.Complete(ctx, request)
	})
}

// Temporary retries only errors that report themselves as temporary.
func Temporary(err error) bool {
	var temporary interface{ Temporary() bool }
	return errors.As(err, &temporary) && temporary.Temporary()
}

// NotMalformed retries every error except decisions the model got wrong.
func NotMalformed(err error) bool {
	return !errors.Is(err, agent.ErrMalformedDecision)
}

func normalizedAttempts(maxAttempts int) int {
	if maxAttempts < 1 {
		return 1
	}
	return maxAttempts
}

func shouldRetry(ctx context.Context, cfg Config, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if cfg.ShouldRetry == nil {
		return true
	}
	return cfg.ShouldRetry(err)
}

func wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
