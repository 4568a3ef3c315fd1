// Package queue publishes quiz domain events to RabbitMQ and tails them back.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/felixgeelhaar/parlance/internal/domain"
)

// DefaultQueueName is the durable queue that receives domain events.
const DefaultQueueName = "parlance.events"

// ErrClosed is returned when publishing on a closed connection.
var ErrClosed = errors.New("queue connection closed")

// EventMessage is the wire form of a domain event.
type EventMessage struct {
	ID         uuid.UUID       `json:"id"`
	Type       string          `json:"type"`
	SessionID  uuid.UUID       `json:"session_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEventMessage wraps a domain event for publishing.
func NewEventMessage(event domain.Event) (*EventMessage, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", event.EventType(), err)
	}
	return &EventMessage{
		ID:         event.EventID(),
		Type:       event.EventType(),
		SessionID:  event.SessionID(),
		OccurredAt: event.OccurredAt(),
		Payload:    payload,
	}, nil
}

// ConnectionConfig configures the queue declared on connect.
type ConnectionConfig struct {
	Queue      string
	MessageTTL time.Duration
	Logger     *slog.Logger
}

// Connection manages the RabbitMQ connection with automatic reconnection
type Connection struct {
	url    string
	cfg    ConnectionConfig
	logger *slog.Logger

	mu         sync.RWMutex
	conn       *amqp.Connection
	channel    *amqp.Channel
	closed     bool
	reconnects int
	done       chan struct{}
}

// NewConnection dials url and declares the event queue.
func NewConnection(rawURL string, cfg ConnectionConfig) (*Connection, error) {
	if cfg.Queue == "" {
		cfg.Queue = DefaultQueueName
	}
	if cfg.MessageTTL <= 0 {
		cfg.MessageTTL = 24 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	c := &Connection{
		url:    rawURL,
		cfg:    cfg,
		logger: cfg.Logger.With("component", "queue"),
		done:   make(chan struct{}),
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

// Queue returns the declared queue name.
func (c *Connection) Queue() string {
	return c.cfg.Queue
}

func (c *Connection) connect() error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		c.cfg.Queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{
			"x-message-ttl": int32(c.cfg.MessageTTL / time.Millisecond),
		},
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare queue %s: %w", c.cfg.Queue, err)
	}

	c.mu.Lock()
	c.conn, c.channel = conn, ch
	c.mu.Unlock()

	go c.handleReconnect(conn.NotifyClose(make(chan *amqp.Error, 1)))

	c.logger.Info("connected to RabbitMQ", "url", sanitizeURL(c.url), "queue", c.cfg.Queue)
	return nil
}

// handleReconnect redials with exponential backoff after an unexpected close.
func (c *Connection) handleReconnect(notifyClose <-chan *amqp.Error) {
	var amqpErr *amqp.Error
	select {
	case amqpErr = <-notifyClose:
	case <-c.done:
		return
	}
	if amqpErr == nil {
		return
	}

	c.logger.Warn("RabbitMQ connection closed, attempting to reconnect", "error", amqpErr)

	for i := 0; i < 10; i++ {
		backoff := min(time.Duration(1<<i)*time.Second, 30*time.Second)
		select {
		case <-time.After(backoff):
		case <-c.done:
			return
		}

		c.mu.Lock()
		c.reconnects++
		c.mu.Unlock()

		if err := c.connect(); err != nil {
			c.logger.Error("reconnection failed", "error", err, "attempt", i+1)
			continue
		}
		c.logger.Info("reconnected to RabbitMQ", "attempts", i+1)
		return
	}
	c.logger.Error("failed to reconnect to RabbitMQ after 10 attempts")
}

// Channel returns the current channel (thread-safe)
func (c *Connection) Channel() *amqp.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

// Close closes the connection and stops reconnecting.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)

	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected checks if the connection is active
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed && c.conn != nil && !c.conn.IsClosed()
}

// PublishJSON publishes a persistent JSON message to a queue.
func (c *Connection) PublishJSON(ctx context.Context, queue string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	c.mu.RLock()
	ch, closed := c.channel, c.closed
	c.mu.RUnlock()
	if closed || ch == nil {
		return ErrClosed
	}

	return ch.PublishWithContext(
		ctx,
		"",    // exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// sanitizeURL drops credentials from an AMQP URL for logging.
func sanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "[redacted]"
	}
	u.User = nil
	return u.String()
}
