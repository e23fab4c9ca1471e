package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	q "github.com/eyengage/engage-api/internal/queue"
)

// Notifier is the outbox boundary. Implementations must be fire-and-forget
// safe: callers log a returned error and move on, they never roll back the
// workflow mutation that triggered the notification.
type Notifier interface {
	Publish(ctx context.Context, n q.Notification) error
}

// AMQPNotifier publishes notifications to the durable engage.notifications
// queue. It dials per publish, which keeps it free of shared connection
// state; publish volume here is human-scale.
type AMQPNotifier struct {
	URL string
}

func NewAMQPNotifier(url string) *AMQPNotifier { return &AMQPNotifier{URL: url} }

// Publish marshals the notification and sends it as a persistent message.
// Any error is logged and returned so the caller can choose to ignore it.
func (p *AMQPNotifier) Publish(ctx context.Context, n q.Notification) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		log.Printf("notify: rabbitmq dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("notify: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(q.NotificationQueue, true, false, false, false, nil); err != nil {
		log.Printf("notify: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(n)
	if err != nil {
		log.Printf("notify: marshal failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", q.NotificationQueue, false, false, pub); err != nil {
		log.Printf("notify: publish failed: %v", err)
		return err
	}
	return nil
}

// LogNotifier is the fallback when no broker is configured: notifications
// are written to the log and dropped.
type LogNotifier struct{}

func (LogNotifier) Publish(_ context.Context, n q.Notification) error {
	log.Printf("notify: (no broker) %s -> %s", n.Kind, n.RecipientEmail)
	return nil
}
