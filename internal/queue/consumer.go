package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/eyengage/engage-api/internal/notify"
)

// Consumer drains engage.notifications and delivers each message: an HTML
// mail to the recipient and, for event-feed kinds, a webhook to the social
// service. Delivery failures are logged and the message is rejected
// without requeue so a dead collaborator cannot spin the loop.
type Consumer struct {
	URL     string
	Mailer  *notify.Mailer
	Webhook *notify.Webhook
}

func NewConsumer(url string, mailer *notify.Mailer, webhook *notify.Webhook) *Consumer {
	return &Consumer{URL: url, Mailer: mailer, Webhook: webhook}
}

// Start runs the consume loop with reconnect and exponential backoff. It
// only returns when the broker URL is empty; otherwise it keeps retrying
// and logs every failure.
func (c *Consumer) Start() error {
	if c.URL == "" {
		return errors.New("no broker configured")
	}
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			log.Printf("consumer: dial failed: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := c.consumeLoop(conn); err != nil {
			log.Printf("consumer: loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func (c *Consumer) consumeLoop(conn *amqp.Connection) error {
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(20, 0, false); err != nil {
		log.Printf("consumer: set QoS failed: %v", err)
	}
	if _, err := ch.QueueDeclare(NotificationQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(NotificationQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := c.handle(d.Body); err != nil {
			log.Printf("consumer: handle message failed: %v", err)
			_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func (c *Consumer) handle(body []byte) error {
	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if n.RecipientEmail != "" {
		subject, html := renderMail(n)
		if err := c.Mailer.Send(ctx, n.RecipientEmail, subject, html); err != nil {
			// Mail is best-effort; log and keep going so the webhook
			// still fires.
			log.Printf("consumer: mail to %s failed: %v", n.RecipientEmail, err)
		}
	}

	switch n.Kind {
	case KindEventCreated, KindEventApproved, KindEventRejected,
		KindParticipationApproved, KindParticipationRejected:
		if err := c.Webhook.Post(ctx, "/api/webhooks/engage", n); err != nil {
			log.Printf("consumer: webhook for %s failed: %v", n.Kind, err)
		}
	}
	return nil
}

// renderMail picks the per-kind subject and French HTML body the platform
// has always sent.
func renderMail(n Notification) (subject, html string) {
	name := n.RecipientName
	if name == "" {
		name = "collaborateur·rice"
	}
	signature := "Cordialement,<br/>L'équipe EY Engage"

	switch n.Kind {
	case KindParticipationApproved:
		subject = fmt.Sprintf("Participation confirmée : %s", n.EventTitle)
		html = fmt.Sprintf(
			"Bonjour %s,<br/>Vous êtes accepté·e à l'événement <b>%s</b> du %s à %s.<br/>%s",
			name, n.EventTitle, n.EventDate, n.EventLocation, signature)
	case KindParticipationRejected:
		subject = fmt.Sprintf("Participation refusée : %s", n.EventTitle)
		html = fmt.Sprintf(
			"Bonjour %s,<br/>Votre demande de participation à l'événement <b>%s</b> a été <span style='color:red;'>refusée</span>.<br/>%s",
			name, n.EventTitle, signature)
	case KindEventApproved:
		subject = fmt.Sprintf("Événement approuvé : %s", n.EventTitle)
		html = fmt.Sprintf(
			"Bonjour %s,<br/>Votre événement <b>%s</b> du %s a été approuvé.<br/>%s",
			name, n.EventTitle, n.EventDate, signature)
	case KindEventRejected:
		subject = fmt.Sprintf("Événement rejeté : %s", n.EventTitle)
		html = fmt.Sprintf(
			"Bonjour %s,<br/>Votre événement <b>%s</b> a été rejeté.<br/>%s",
			name, n.EventTitle, signature)
	case KindUserInvited:
		subject = "Bienvenue sur EY Engage"
		html = fmt.Sprintf(
			"Bonjour %s,<br/>Votre compte EY Engage a été créé. Mot de passe temporaire : <b>%s</b><br/>Vous devrez le changer à votre première connexion.<br/>%s",
			name, n.Secret, signature)
	case KindPasswordReset:
		subject = "Réinitialisation de votre mot de passe"
		html = fmt.Sprintf(
			"Bonjour %s,<br/>Votre code de réinitialisation : <b>%s</b><br/>Il expire dans 30 minutes.<br/>%s",
			name, n.Secret, signature)
	default:
		subject = "Notification EY Engage"
		html = fmt.Sprintf("Bonjour %s,<br/>%s", name, signature)
	}
	return subject, html
}
