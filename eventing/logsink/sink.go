package logsink

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Gurpartap/jiraagent/agent"
)

// Sink writes every run event to a structured logger at debug level.
type Sink struct {
	logger     *slog.Logger
	structured bool
}

var _ agent.EventSink = Sink{}

// New returns nil for a nil logger. With structured set the event is logged as a
// nested attribute; otherwise it is flattened to a JSON string for text handlers.
func New(logger *slog.Logger, structured bool) agent.EventSink {
	if logger == nil {
		return nil
	}
	return Sink{
		logger:     logger,
		structured: structured,
	}
}

func (s Sink) Publish(ctx context.Context, event agent.Event) error {
	if ctx == nil {
		return agent.ErrContextNil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	attrs := []slog.Attr{
		slog.String("run_id", string(event.RunID)),
		slog.Int("step", event.Step),
		slog.String("type", string(event.Type)),
	}
	if s.structured {
		attrs = append(attrs, slog.Any("event", event))
	} else {
		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}
		attrs = append(attrs, slog.String("event", string(payload)))
	}

	s.logger.LogAttrs(ctx, slog.LevelDebug, "run event", attrs...)
	return nil
}
