package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/parlance/internal/domain"
)

// jsonPublisher is the part of Connection the producer needs.
type jsonPublisher interface {
	PublishJSON(ctx context.Context, queue string, data any) error
}

// Producer publishes domain events to the event queue.
type Producer struct {
	pub    jsonPublisher
	queue  string
	logger *slog.Logger
}

// NewProducer creates a producer on conn's declared queue.
func NewProducer(conn *Connection) *Producer {
	return newProducer(conn, conn.Queue(), conn.logger)
}

func newProducer(pub jsonPublisher, queue string, logger *slog.Logger) *Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{pub: pub, queue: queue, logger: logger}
}

// Publish sends one domain event.
func (p *Producer) Publish(ctx context.Context, event domain.Event) error {
	msg, err := NewEventMessage(event)
	if err != nil {
		return err
	}
	if err := p.pub.PublishJSON(ctx, p.queue, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", msg.Type, err)
	}

	p.logger.Debug("published event",
		"event_id", msg.ID,
		"type", msg.Type,
		"session_id", msg.SessionID,
	)
	return nil
}
