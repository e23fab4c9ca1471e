package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/eyengage/engage-api/internal/model"
)

type EventRepo struct{ DB *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{DB: db} }

// Create inserts an event. The workflow engine always creates events in
// Pending state; Draft exists in the enum for historical data only.
func (r *EventRepo) Create(ctx context.Context, ev *model.Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO events (id, title, description, date, location, status, image_path, organizer_id)
		 VALUES (?,?,?,?,?,?,?,?)`,
		ev.ID, ev.Title, ev.Description, ev.Date, ev.Location, ev.Status, ev.ImagePath, ev.OrganizerID)
	return err
}

const eventColumns = "id,title,description,date,location,status,image_path,organizer_id,approved_by_id,created_at"

func scanEvent(scan func(...any) error) (model.Event, error) {
	var (
		ev        model.Event
		imagePath sql.NullString
		organizer sql.NullString
		approver  sql.NullString
	)
	err := scan(&ev.ID, &ev.Title, &ev.Description, &ev.Date, &ev.Location, &ev.Status,
		&imagePath, &organizer, &approver, &ev.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ev, ErrNotFound
	}
	if err != nil {
		return ev, err
	}
	if imagePath.Valid {
		ev.ImagePath = &imagePath.String
	}
	if organizer.Valid {
		ev.OrganizerID = &organizer.String
	}
	if approver.Valid {
		ev.ApprovedByID = &approver.String
	}
	return ev, nil
}

// GetByID fetches a single event.
func (r *EventRepo) GetByID(ctx context.Context, id string) (model.Event, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events WHERE id=? LIMIT 1", id)
	return scanEvent(row.Scan)
}

// ListByStatus returns events in a given workflow state, ordered by date.
// When department is non-empty only events whose organizer belongs to that
// department are returned.
func (r *EventRepo) ListByStatus(ctx context.Context, status model.EventStatus, department string) ([]model.Event, error) {
	q := "SELECT " + prefixColumns("e", eventColumns) + " FROM events e WHERE e.status=?"
	args := []any{status}
	if department != "" {
		q = `SELECT ` + prefixColumns("e", eventColumns) + `
		     FROM events e JOIN users u ON u.id = e.organizer_id
		     WHERE e.status=? AND u.department=?`
		args = append(args, department)
	}
	q += " ORDER BY e.date"
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []model.Event
	for rows.Next() {
		ev, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// UpdateStatus moves a Pending event to Approved or Rejected and stamps
// approved_by_id on both outcomes (the column name is historical). The
// WHERE clause enforces that only Pending events transition; a row already
// decided reports ErrNotFound to the caller.
func (r *EventRepo) UpdateStatus(ctx context.Context, eventID string, status model.EventStatus, approverID string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE events SET status=?, approved_by_id=? WHERE id=? AND status=?",
		status, approverID, eventID, model.EventPending)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCascade removes an event and every dependent row in one
// transaction. Several user-side foreign keys are RESTRICT on purpose, so
// the delete order below must not change:
// reply reactions -> replies -> comment reactions -> comments ->
// participations -> interests -> event.
func (r *EventRepo) DeleteCascade(ctx context.Context, eventID string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM events WHERE id=?", eventID).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return ErrNotFound
	}

	steps := []string{
		`DELETE rr FROM reply_reactions rr
		 JOIN comment_replies cr ON cr.id = rr.reply_id
		 JOIN comments c ON c.id = cr.comment_id
		 WHERE c.event_id = ?`,
		`DELETE cr FROM comment_replies cr
		 JOIN comments c ON c.id = cr.comment_id
		 WHERE c.event_id = ?`,
		`DELETE cre FROM comment_reactions cre
		 JOIN comments c ON c.id = cre.comment_id
		 WHERE c.event_id = ?`,
		`DELETE FROM comments WHERE event_id = ?`,
		`DELETE FROM event_participations WHERE event_id = ?`,
		`DELETE FROM event_interests WHERE event_id = ?`,
		`DELETE FROM events WHERE id = ?`,
	}
	for _, q := range steps {
		if _, err := tx.ExecContext(ctx, q, eventID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// prefixColumns rewrites "a,b,c" into "e.a, e.b, e.c" for joined queries.
func prefixColumns(alias, cols string) string {
	out := ""
	start := 0
	for i := 0; i <= len(cols); i++ {
		if i == len(cols) || cols[i] == ',' {
			if out != "" {
				out += ", "
			}
			out += alias + "." + cols[start:i]
			start = i + 1
		}
	}
	return out
}
