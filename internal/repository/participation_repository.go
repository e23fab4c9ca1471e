package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/eyengage/engage-api/internal/model"
)

type ParticipationRepo struct{ DB *sql.DB }

func NewParticipationRepo(db *sql.DB) *ParticipationRepo { return &ParticipationRepo{DB: db} }

// Upsert records a participation request. The UNIQUE(event_id, user_id)
// index guarantees a single row per pair; a re-request in any state (even
// Rejected) resets the row to Pending with a fresh requested_at and
// cleared decision fields. ON DUPLICATE KEY keeps the write atomic under
// concurrent requests.
func (r *ParticipationRepo) Upsert(ctx context.Context, eventID, userID string) (model.EventParticipation, error) {
	id := uuid.NewString()
	now := time.Now().UTC()
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO event_participations (id, event_id, user_id, status, requested_at)
		 VALUES (?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE
		   status=VALUES(status), requested_at=VALUES(requested_at),
		   decided_at=NULL, approved_by_id=NULL`,
		id, eventID, userID, model.ParticipationPending, now)
	if err != nil {
		return model.EventParticipation{}, err
	}
	return r.GetByEventAndUser(ctx, eventID, userID)
}

const participationColumns = "id,event_id,user_id,status,requested_at,decided_at,approved_by_id"

func scanParticipation(scan func(...any) error) (model.EventParticipation, error) {
	var (
		p        model.EventParticipation
		decided  sql.NullTime
		approver sql.NullString
	)
	err := scan(&p.ID, &p.EventID, &p.UserID, &p.Status, &p.RequestedAt, &decided, &approver)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	if decided.Valid {
		t := decided.Time
		p.DecidedAt = &t
	}
	if approver.Valid {
		p.ApprovedByID = &approver.String
	}
	return p, nil
}

// GetByID fetches a participation row.
func (r *ParticipationRepo) GetByID(ctx context.Context, id string) (model.EventParticipation, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+participationColumns+" FROM event_participations WHERE id=? LIMIT 1", id)
	return scanParticipation(row.Scan)
}

// GetByEventAndUser fetches the single row for an (event, user) pair.
func (r *ParticipationRepo) GetByEventAndUser(ctx context.Context, eventID, userID string) (model.EventParticipation, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+participationColumns+" FROM event_participations WHERE event_id=? AND user_id=? LIMIT 1",
		eventID, userID)
	return scanParticipation(row.Scan)
}

// Decide stamps the outcome of a pending request. approverID is recorded
// on approval and nil on rejection; IFNULL keeps a previously stamped
// approver in place when an approve is later overturned by a reject, so
// the audit trace survives. Only a fresh request (Upsert) clears the
// column. The write is unconditional on current status: repeated
// decisions simply re-stamp decided_at, which is the documented
// last-writer-wins behavior under racing approvers.
func (r *ParticipationRepo) Decide(ctx context.Context, id string, status model.ParticipationStatus, approverID *string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE event_participations SET status=?, decided_at=?, approved_by_id=IFNULL(?, approved_by_id) WHERE id=?",
		status, time.Now().UTC(), approverID, id)
	return err
}

// ListByEventAndStatus returns participations for an event in a given
// state, oldest request first.
func (r *ParticipationRepo) ListByEventAndStatus(ctx context.Context, eventID string, status model.ParticipationStatus) ([]model.EventParticipation, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+participationColumns+" FROM event_participations WHERE event_id=? AND status=? ORDER BY requested_at",
		eventID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.EventParticipation
	for rows.Next() {
		p, err := scanParticipation(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
