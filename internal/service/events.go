package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/eyengage/engage-api/internal/model"
	q "github.com/eyengage/engage-api/internal/queue"
	"github.com/eyengage/engage-api/internal/repository"
)

// EventStore is the slice of the event repository the workflow engine
// drives.
type EventStore interface {
	Create(ctx context.Context, ev *model.Event) error
	GetByID(ctx context.Context, id string) (model.Event, error)
	ListByStatus(ctx context.Context, status model.EventStatus, department string) ([]model.Event, error)
	UpdateStatus(ctx context.Context, eventID string, status model.EventStatus, approverID string) error
	DeleteCascade(ctx context.Context, eventID string) error
}

// ParticipationStore persists participation rows.
type ParticipationStore interface {
	Upsert(ctx context.Context, eventID, userID string) (model.EventParticipation, error)
	GetByID(ctx context.Context, id string) (model.EventParticipation, error)
	Decide(ctx context.Context, id string, status model.ParticipationStatus, approverID *string) error
	ListByEventAndStatus(ctx context.Context, eventID string, status model.ParticipationStatus) ([]model.EventParticipation, error)
}

// InterestStore persists the interest toggle set.
type InterestStore interface {
	Toggle(ctx context.Context, eventID, userID string) (bool, error)
	Exists(ctx context.Context, eventID, userID string) (bool, error)
	ListUserIDs(ctx context.Context, eventID string) ([]string, error)
}

// CommentStore persists comments, replies and reactions.
type CommentStore interface {
	Create(ctx context.Context, c *model.Comment) error
	ListByEvent(ctx context.Context, eventID string) ([]model.Comment, error)
	CreateReply(ctx context.Context, reply *model.CommentReply) error
	ReactToComment(ctx context.Context, commentID, userID, emoji string) error
	ReactToReply(ctx context.Context, replyID, userID, emoji string) error
	DeleteOwned(ctx context.Context, commentID, authorID string) error
}

// EventService enforces the event and participation lifecycles. Role
// checks (who may approve) belong to the route middleware; this engine
// assumes its callers are authorized and concentrates on state
// transitions, their invariants and notification emission.
type EventService struct {
	events   EventStore
	parts    ParticipationStore
	interest InterestStore
	comments CommentStore
	users    UserStore
	notifier Notifier
}

func NewEventService(events EventStore, parts ParticipationStore, interest InterestStore, comments CommentStore, users UserStore, notifier Notifier) *EventService {
	return &EventService{events: events, parts: parts, interest: interest, comments: comments, users: users, notifier: notifier}
}

// notify publishes after the mutation has committed. Failures are logged
// and dropped: a lost notification never un-commits a workflow change.
func (s *EventService) notify(ctx context.Context, n q.Notification) {
	n.OccurredAt = time.Now().UTC()
	if err := s.notifier.Publish(ctx, n); err != nil {
		log.Printf("events: notification %s dropped: %v", n.Kind, err)
	}
}

// Create persists a new event in Pending state with the caller as
// organizer.
func (s *EventService) Create(ctx context.Context, organizerID string, ev *model.Event) error {
	ev.Status = model.EventPending
	ev.OrganizerID = &organizerID
	ev.ApprovedByID = nil
	if err := s.events.Create(ctx, ev); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	s.notify(ctx, q.Notification{
		Kind:          q.KindEventCreated,
		EventID:       ev.ID,
		EventTitle:    ev.Title,
		EventDate:     ev.Date.Format("02/01/2006"),
		EventLocation: ev.Location,
	})
	return nil
}

// Get returns a single event.
func (s *EventService) Get(ctx context.Context, eventID string) (model.Event, error) {
	ev, err := s.events.GetByID(ctx, eventID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Event{}, ErrNotFound
	}
	return ev, err
}

// ListByStatus returns events in one workflow state, optionally filtered
// by the organizer's department.
func (s *EventService) ListByStatus(ctx context.Context, status model.EventStatus, department string) ([]model.Event, error) {
	switch status {
	case model.EventDraft, model.EventPending, model.EventApproved, model.EventRejected:
	default:
		return nil, fmt.Errorf("%w: unknown event status %q", ErrValidation, status)
	}
	return s.events.ListByStatus(ctx, status, department)
}

// UpdateStatus runs the only two transitions the event machine has:
// Pending->Approved and Pending->Rejected. approved_by_id is stamped on
// both outcomes. A decided event cannot transition again; the organizer
// creates a new event to retry.
func (s *EventService) UpdateStatus(ctx context.Context, eventID string, status model.EventStatus, approverID string) error {
	if status != model.EventApproved && status != model.EventRejected {
		return fmt.Errorf("%w: target status must be Approved or Rejected", ErrValidation)
	}
	if err := s.events.UpdateStatus(ctx, eventID, status, approverID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("update event status: %w", err)
	}

	ev, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		log.Printf("events: reload after status change failed: %v", err)
		return nil
	}
	kind := q.KindEventApproved
	if status == model.EventRejected {
		kind = q.KindEventRejected
	}
	n := q.Notification{
		Kind:          kind,
		EventID:       ev.ID,
		EventTitle:    ev.Title,
		EventDate:     ev.Date.Format("02/01/2006"),
		EventLocation: ev.Location,
	}
	if ev.OrganizerID != nil {
		if organizer, err := s.users.GetByID(ctx, *ev.OrganizerID); err == nil {
			n.RecipientEmail = organizer.Email
			n.RecipientName = organizer.FullName
		}
	}
	s.notify(ctx, n)
	return nil
}

// RequestParticipation records (or re-records) a user's request to attend.
// The upsert keeps a single row per (event, user); any prior state,
// including Rejected, resets to Pending.
func (s *EventService) RequestParticipation(ctx context.Context, eventID, userID string) (model.EventParticipation, error) {
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.EventParticipation{}, ErrNotFound
		}
		return model.EventParticipation{}, fmt.Errorf("load event: %w", err)
	}
	p, err := s.parts.Upsert(ctx, eventID, userID)
	if err != nil {
		return model.EventParticipation{}, fmt.Errorf("upsert participation: %w", err)
	}
	return p, nil
}

// decideParticipation is the shared approve/reject path: stamp the
// outcome, commit, then emit exactly one participant notification.
func (s *EventService) decideParticipation(ctx context.Context, participationID string, approverID *string, status model.ParticipationStatus, kind string) error {
	p, err := s.parts.GetByID(ctx, participationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("load participation: %w", err)
	}
	if err := s.parts.Decide(ctx, participationID, status, approverID); err != nil {
		return fmt.Errorf("decide participation: %w", err)
	}

	n := q.Notification{Kind: kind, EventID: p.EventID}
	if ev, err := s.events.GetByID(ctx, p.EventID); err == nil {
		n.EventTitle = ev.Title
		n.EventDate = ev.Date.Format("02/01/2006")
		n.EventLocation = ev.Location
	}
	if participant, err := s.users.GetByID(ctx, p.UserID); err == nil {
		n.RecipientEmail = participant.Email
		n.RecipientName = participant.FullName
	}
	s.notify(ctx, n)
	return nil
}

// ApproveParticipation moves a request to Approved, stamping DecidedAt and
// ApprovedById. Calling it twice re-stamps the same terminal fields (last
// writer wins; no optimistic lock by design).
func (s *EventService) ApproveParticipation(ctx context.Context, participationID, approverID string) error {
	return s.decideParticipation(ctx, participationID, &approverID, model.ParticipationApproved, q.KindParticipationApproved)
}

// RejectParticipation moves a request to Rejected and stamps DecidedAt.
// No approver id is recorded on rejection; only approvals carry one.
func (s *EventService) RejectParticipation(ctx context.Context, participationID string) error {
	return s.decideParticipation(ctx, participationID, nil, model.ParticipationRejected, q.KindParticipationRejected)
}

// ListParticipationRequests returns an event's rows in one state.
func (s *EventService) ListParticipationRequests(ctx context.Context, eventID string, status model.ParticipationStatus) ([]model.EventParticipation, error) {
	return s.parts.ListByEventAndStatus(ctx, eventID, status)
}

// ToggleInterest flips the lightweight interest marker and returns the
// new state. Interest has no approval gate and no status.
func (s *EventService) ToggleInterest(ctx context.Context, eventID, userID string) (bool, error) {
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("load event: %w", err)
	}
	return s.interest.Toggle(ctx, eventID, userID)
}

// InterestedUserIDs lists who toggled interest on an event.
func (s *EventService) InterestedUserIDs(ctx context.Context, eventID string) ([]string, error) {
	return s.interest.ListUserIDs(ctx, eventID)
}

// Comment adds a top-level comment to an event.
func (s *EventService) Comment(ctx context.Context, eventID, authorID, content string) (model.Comment, error) {
	if content == "" {
		return model.Comment{}, fmt.Errorf("%w: comment content required", ErrValidation)
	}
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Comment{}, ErrNotFound
		}
		return model.Comment{}, fmt.Errorf("load event: %w", err)
	}
	c := model.Comment{EventID: eventID, AuthorID: &authorID, Content: content}
	if err := s.comments.Create(ctx, &c); err != nil {
		return model.Comment{}, fmt.Errorf("create comment: %w", err)
	}
	return c, nil
}

// Comments lists an event's comments, oldest first.
func (s *EventService) Comments(ctx context.Context, eventID string) ([]model.Comment, error) {
	return s.comments.ListByEvent(ctx, eventID)
}

// Reply adds a threaded reply under a comment.
func (s *EventService) Reply(ctx context.Context, commentID, authorID, content string) (model.CommentReply, error) {
	if content == "" {
		return model.CommentReply{}, fmt.Errorf("%w: reply content required", ErrValidation)
	}
	r := model.CommentReply{CommentID: commentID, AuthorID: &authorID, Content: content}
	if err := s.comments.CreateReply(ctx, &r); err != nil {
		return model.CommentReply{}, fmt.Errorf("create reply: %w", err)
	}
	return r, nil
}

// ReactToComment upserts the caller's emoji on a comment.
func (s *EventService) ReactToComment(ctx context.Context, commentID, userID, emoji string) error {
	if emoji == "" {
		return fmt.Errorf("%w: emoji required", ErrValidation)
	}
	return s.comments.ReactToComment(ctx, commentID, userID, emoji)
}

// ReactToReply upserts the caller's emoji on a reply.
func (s *EventService) ReactToReply(ctx context.Context, replyID, userID, emoji string) error {
	if emoji == "" {
		return fmt.Errorf("%w: emoji required", ErrValidation)
	}
	return s.comments.ReactToReply(ctx, replyID, userID, emoji)
}

// DeleteComment removes the caller's own comment with its replies and
// reactions.
func (s *EventService) DeleteComment(ctx context.Context, commentID, authorID string) error {
	err := s.comments.DeleteOwned(ctx, commentID, authorID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrForbidden):
		return ErrUnauthorized
	}
	return err
}

// Delete removes an event and all dependent rows. Cleanup runs in the
// repository as one transaction in strict dependency order because the
// user-side foreign keys restrict rather than cascade.
func (s *EventService) Delete(ctx context.Context, eventID string) error {
	err := s.events.DeleteCascade(ctx, eventID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
