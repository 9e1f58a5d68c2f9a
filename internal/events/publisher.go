package events

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/casaflow/booking-service/internal/utils"
)

// Routing keys for the booking lifecycle exchange.
const (
	KeyBookingCreated       = "booking.created"
	KeyBookingStatusChanged = "booking.status_changed"
	KeyBookingUpdated       = "booking.updated"
	KeyBookingDeleted       = "booking.deleted"
	KeyRequestCreated       = "request.created"
	KeyRequestResolved      = "request.resolved"
	KeyInvoiceIssued        = "invoice.issued"
	KeyInvoiceOverdue       = "invoice.overdue"
)

const exchangeName = "booking.events"

// Publisher emits domain events after the owning transaction commits.
// Publishing is best effort and must never fail the business operation.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any)
	Close() error
}

type amqpPublisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPPublisher dials the broker and declares the topic exchange.
func NewAMQPPublisher(url string) (Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(
		exchangeName,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &amqpPublisher{conn: conn, ch: ch}, nil
}

func (p *amqpPublisher) Publish(ctx context.Context, routingKey string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		utils.Logger.WithError(err).WithField("routing_key", routingKey).Error("event marshal failed")
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.ch.PublishWithContext(pubCtx,
		exchangeName,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		utils.Logger.WithError(err).WithField("routing_key", routingKey).Error("event publish failed")
	}
}

func (p *amqpPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	return p.conn.Close()
}

// NopPublisher is used when no broker is configured and in tests.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) {}
func (NopPublisher) Close() error                         { return nil }
