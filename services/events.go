package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"lead_flow_app_go/config"
	"lead_flow_app_go/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// EventStatusChanged is the routing key of verification status changes
	EventStatusChanged = "verification.status_changed"
	publishTimeout     = 5 * time.Second
)

// StatusChangedEvent is published after a verification status transition commits
type StatusChangedEvent struct {
	RecordID      string    `json:"record_id"`
	LeadID        string    `json:"lead_id"`
	InsuranceType string    `json:"insurance_type"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	ChangedBy     string    `json:"changed_by"`
	ChangedByRole string    `json:"changed_by_role"`
	ChangedAt     time.Time `json:"changed_at"`
}

// EventPublisher delivers domain events to downstream consumers
type EventPublisher interface {
	PublishStatusChanged(ctx context.Context, event StatusChangedEvent) error
	Close() error
}

// Events is the global event publisher
var Events EventPublisher = NoopPublisher{}

// InitializeEvents connects to RabbitMQ when configured
func InitializeEvents(cfg *config.Config) {
	if cfg.RabbitMQURL == "" {
		Events = NoopPublisher{}
		logger.L.Info("status events disabled", "reason", "RABBITMQ_URL not set")
		return
	}

	p, err := NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.EventsExchange)
	if err != nil {
		logger.L.Warn("rabbitmq unavailable, status events disabled", "error", err)
		Events = NoopPublisher{}
		return
	}
	Events = p
	logger.L.Info("status events enabled", "exchange", cfg.EventsExchange)
}

// RabbitMQPublisher publishes JSON events to a durable topic exchange
type RabbitMQPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// NewRabbitMQPublisher dials the broker and declares the exchange
func NewRabbitMQPublisher(url, exchange string) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &RabbitMQPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *RabbitMQPublisher) PublishStatusChanged(ctx context.Context, event StatusChangedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.ch.PublishWithContext(ctx,
		p.exchange,
		EventStatusChanged,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.ChangedAt,
			Type:         EventStatusChanged,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Close closes the channel and connection
func (p *RabbitMQPublisher) Close() error {
	if err := p.ch.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}

// NoopPublisher drops events when no broker is configured
type NoopPublisher struct{}

func (NoopPublisher) PublishStatusChanged(context.Context, StatusChangedEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }
