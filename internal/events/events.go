// Package events publishes application lifecycle notifications to AMQP.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"resumeforge/internal/config"
	"resumeforge/internal/errors"
)

// Event types.
const (
	TypeUploaded   = "uploaded"
	TypeAnalyzed   = "analyzed"
	TypeOptimized  = "optimized"
	TypeArchived   = "archived"
	defaultRouting = "application"
)

// Event is the JSON body of a published message.
type Event struct {
	Type          string    `json:"type"`
	ApplicationID string    `json:"applicationId"`
	CompanyName   string    `json:"companyName,omitempty"`
	RoleTitle     string    `json:"roleTitle,omitempty"`
	Score         *int      `json:"score,omitempty"`
	Keys          []string  `json:"keys,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Noop drops events.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error { return nil }

type amqpChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher sends events to a topic exchange with routing key
// "<prefix>.<type>".
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       amqpChannel
	exchange string
	prefix   string
	logger   *errors.Logger
}

// New returns Noop when events are disabled.
func New(cfg config.EventsConfig, logger *errors.Logger) (Publisher, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		cfg.Exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}

	logger.Info("Event publisher connected", "exchange", cfg.Exchange)
	p := newAMQPPublisher(ch, cfg, logger)
	p.conn = conn
	return p, nil
}

func newAMQPPublisher(ch amqpChannel, cfg config.EventsConfig, logger *errors.Logger) *AMQPPublisher {
	prefix := cfg.RoutingKey
	if prefix == "" {
		prefix = defaultRouting
	}
	return &AMQPPublisher{ch: ch, exchange: cfg.Exchange, prefix: prefix, logger: logger}
}

// RoutingKey returns the routing key used for an event type.
func (p *AMQPPublisher) RoutingKey(eventType string) string {
	return p.prefix + "." + eventType
}

func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	// amqp channels are not safe for concurrent publishing
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Publish(p.exchange, p.RoutingKey(event.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Type:         event.Type,
		Body:         body,
	}); err != nil {
		return fmt.Errorf("publish %s event: %w", event.Type, err)
	}
	p.logger.Debug("Event published", "type", event.Type, "application_id", event.ApplicationID)
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
