// Package notify holds the outbound collaborators: SMTP mail and the
// social-service webhook. Both accept a context deadline and report
// failures as errors the consumer logs; neither ever reaches back into
// the workflow that produced the message.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
)

// Mailer sends HTML mail. An empty Host means mail is not configured;
// Send then fails with a DeliveryError the consumer logs.
type Mailer struct {
	Host string
	Port string
	User string
	Pass string
}

func NewMailer(host, port, user, pass string) *Mailer {
	return &Mailer{Host: host, Port: port, User: user, Pass: pass}
}

// DeliveryError wraps any transport failure from a collaborator.
type DeliveryError struct {
	Collaborator string
	Err          error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s delivery failed: %v", e.Collaborator, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Send delivers one HTML message. The context bounds the SMTP exchange;
// net/smtp has no native context support, so the deadline is applied by
// running the send in a goroutine and abandoning it on expiry.
func (m *Mailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if m.Host == "" || m.User == "" {
		return &DeliveryError{Collaborator: "smtp", Err: fmt.Errorf("smtp not configured")}
	}

	msg := "From: " + m.User + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=\"utf-8\"\r\n\r\n" +
		htmlBody + "\r\n"

	done := make(chan error, 1)
	go func() {
		auth := smtp.PlainAuth("", m.User, m.Pass, m.Host)
		done <- smtp.SendMail(m.Host+":"+m.Port, auth, m.User, []string{to}, []byte(msg))
	}()

	select {
	case err := <-done:
		if err != nil {
			return &DeliveryError{Collaborator: "smtp", Err: err}
		}
		return nil
	case <-ctx.Done():
		return &DeliveryError{Collaborator: "smtp", Err: ctx.Err()}
	}
}
