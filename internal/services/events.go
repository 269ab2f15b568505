package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
)

const (
	EventResumeUploaded = "resume.uploaded"
	EventResumeIndexed  = "resume.indexed"
	EventResumeFailed   = "resume.failed"
	EventResumeDeleted  = "resume.deleted"
)

type ResumeEvent struct {
	Type       string    `json:"type"`
	ResumeID   uuid.UUID `json:"resume_id"`
	Filename   string    `json:"filename,omitempty"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewResumeEvent(eventType string, resumeID uuid.UUID) ResumeEvent {
	return ResumeEvent{Type: eventType, ResumeID: resumeID, OccurredAt: time.Now().UTC()}
}

type EventPublisher interface {
	Publish(ctx context.Context, event ResumeEvent) error
	Close() error
}

type rabbitPublisher struct {
	conn     *amqp.Connection
	exchange string
}

// NewRabbitPublisher declares a durable topic exchange; events are routed by type.
func NewRabbitPublisher(url, exchange string) (EventPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("error dialling rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("error opening rabbitmq channel: %w", err)
	}
	defer ch.Close()

	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // auto-delete
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	log.Printf("✅ Publishing resume events to exchange '%s'\n", exchange)
	return &rabbitPublisher{conn: conn, exchange: exchange}, nil
}

func (p *rabbitPublisher) Publish(ctx context.Context, event ResumeEvent) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("error opening rabbitmq channel: %w", err)
	}
	defer ch.Close()

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	err = ch.Publish(
		p.exchange,
		event.Type,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	return nil
}

func (p *rabbitPublisher) Close() error {
	return p.conn.Close()
}

type logPublisher struct{}

// NewLogPublisher only logs events; used when RABBITMQ_URL is unset.
func NewLogPublisher() EventPublisher {
	return logPublisher{}
}

func (logPublisher) Publish(ctx context.Context, event ResumeEvent) error {
	log.Printf("📣 %s %s\n", event.Type, event.ResumeID)
	return nil
}

func (logPublisher) Close() error { return nil }

// publishEvent logs instead of failing the caller when delivery fails.
func publishEvent(ctx context.Context, publisher EventPublisher, event ResumeEvent) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		log.Printf("⚠️ Failed to publish %s for %s: %v\n", event.Type, event.ResumeID, err)
	}
}
