package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// EventHandler processes one event message. Returning an error drops the
// message without requeueing it.
type EventHandler func(ctx context.Context, msg *EventMessage) error

// Consumer reads event messages from the queue.
type Consumer struct {
	conn       *Connection
	handler    EventHandler
	prefetch   int
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewConsumer creates a consumer on conn's declared queue.
func NewConsumer(conn *Connection, handler EventHandler, prefetch int) *Consumer {
	if prefetch <= 0 {
		prefetch = 10
	}
	return &Consumer{
		conn:     conn,
		handler:  handler,
		prefetch: prefetch,
		logger:   conn.logger,
	}
}

// Start begins consuming messages
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancelFunc = context.WithCancel(ctx)

	ch := c.conn.Channel()
	if ch == nil {
		return ErrClosed
	}
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		c.conn.Queue(),
		"",    // consumer tag (auto-generated)
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("consuming events", "queue", c.conn.Queue())

	c.wg.Add(1)
	go c.consume(ctx, msgs)
	return nil
}

func (c *Consumer) consume(ctx context.Context, msgs <-chan amqp.Delivery) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-msgs:
			if !ok {
				c.logger.Info("delivery channel closed")
				return
			}
			c.process(ctx, d)
		}
	}
}

// acknowledger is the subset of amqp.Delivery used to settle a message.
type acknowledger interface {
	Ack(multiple bool) error
	Reject(requeue bool) error
}

func (c *Consumer) process(ctx context.Context, d amqp.Delivery) {
	c.handle(ctx, d.Body, d)
}

func (c *Consumer) handle(ctx context.Context, body []byte, ack acknowledger) {
	msg, err := DecodeEventMessage(body)
	if err != nil {
		c.logger.Error("failed to decode event", "error", err)
		_ = ack.Reject(false)
		return
	}

	if err := c.handler(ctx, msg); err != nil {
		c.logger.Error("event handler failed", "event_id", msg.ID, "type", msg.Type, "error", err)
		_ = ack.Reject(false)
		return
	}

	if err := ack.Ack(false); err != nil {
		c.logger.Error("failed to ack event", "event_id", msg.ID, "error", err)
	}
}

// DecodeEventMessage parses a delivery body.
func DecodeEventMessage(body []byte) (*EventMessage, error) {
	var msg EventMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("unmarshal event: missing type")
	}
	return &msg, nil
}

// Stop cancels consumption and waits for the in-flight message.
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.wg.Wait()
}
