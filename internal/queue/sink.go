package queue

import (
	"context"
	"errors"
	"log/slog"

	"github.com/felixgeelhaar/parlance/internal/domain"
)

// LogSink writes domain events to a structured logger. It is the event
// sink when no broker is configured.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink logging at info level.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With("component", "events")}
}

func (s *LogSink) Publish(ctx context.Context, event domain.Event) error {
	s.logger.InfoContext(ctx, "domain event",
		"type", event.EventType(),
		"event_id", event.EventID(),
		"session_id", event.SessionID(),
	)
	return nil
}

// Sink is anything that accepts domain events.
type Sink interface {
	Publish(ctx context.Context, event domain.Event) error
}

// Fanout publishes to every sink and joins their errors.
type Fanout []Sink

func (f Fanout) Publish(ctx context.Context, event domain.Event) error {
	var errs []error
	for _, s := range f {
		if err := s.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
