package model

import "time"

// ParticipationStatus values as stored in event_participations.status.
type ParticipationStatus string

const (
	ParticipationPending  ParticipationStatus = "Pending"
	ParticipationApproved ParticipationStatus = "Approved"
	ParticipationRejected ParticipationStatus = "Rejected"
)

// EventParticipation is a user's approval-gated commitment to attend an
// event. At most one row exists per (event, user); a repeated request
// overwrites the row back to Pending whatever its prior state.
// ApprovedByID is stamped on approval only; rejections record the
// decision time without an approver, and an earlier approver stamp
// survives a later reject. Only a fresh request clears it.
type EventParticipation struct {
	ID           string              `json:"id"`
	EventID      string              `json:"event_id"`
	UserID       string              `json:"user_id"`
	Status       ParticipationStatus `json:"status"`
	RequestedAt  time.Time           `json:"requested_at"`
	DecidedAt    *time.Time          `json:"decided_at,omitempty"`
	ApprovedByID *string             `json:"approved_by_id,omitempty"`
}

// EventInterest marks a user as interested in an event. Presence is the
// whole signal; there is no status field and no approval gate.
type EventInterest struct {
	EventID      string    `json:"event_id"`
	UserID       string    `json:"user_id"`
	InterestedAt time.Time `json:"interested_at"`
}
