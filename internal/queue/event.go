// Package queue defines message payloads exchanged over the message broker
// and the background consumer that delivers them.
package queue

import "time"

// NotificationQueue is the durable queue all engagement notifications go
// through. Workflow commits happen first; publishing is best-effort and a
// failed publish never unwinds a committed state change.
const NotificationQueue = "engage.notifications"

// Notification kinds. The consumer picks the mail template and whether to
// forward a social-feed webhook based on this value.
const (
	KindParticipationApproved = "participation.approved"
	KindParticipationRejected = "participation.rejected"
	KindEventCreated          = "event.created"
	KindEventApproved         = "event.approved"
	KindEventRejected         = "event.rejected"
	KindUserInvited           = "user.invited"
	KindPasswordReset         = "password.reset"
)

// Notification is the single payload type published to the notification
// queue. Fields are populated per kind; consumers tolerate absent ones.
type Notification struct {
	Kind           string    `json:"kind"`
	RecipientEmail string    `json:"recipient_email,omitempty"`
	RecipientName  string    `json:"recipient_name,omitempty"`
	EventID        string    `json:"event_id,omitempty"`
	EventTitle     string    `json:"event_title,omitempty"`
	EventDate      string    `json:"event_date,omitempty"`
	EventLocation  string    `json:"event_location,omitempty"`
	Secret         string    `json:"secret,omitempty"` // temp password or reset token
	OccurredAt     time.Time `json:"occurred_at"`
}
