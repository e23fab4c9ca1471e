package model

import "time"

// EventStatus values as stored in the events.status enum.
type EventStatus string

const (
	EventDraft    EventStatus = "Draft"
	EventPending  EventStatus = "Pending"
	EventApproved EventStatus = "Approved"
	EventRejected EventStatus = "Rejected"
)

// Event mirrors the events table. Events are created Pending and only
// leave that state through the workflow engine (approve or reject); there
// is no un-approve or re-submit transition.
type Event struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	Date         time.Time   `json:"date"`
	Location     string      `json:"location"`
	Status       EventStatus `json:"status"`
	ImagePath    *string     `json:"image_path,omitempty"`
	OrganizerID  *string     `json:"organizer_id,omitempty"`
	ApprovedByID *string     `json:"approved_by_id,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}
