package repository

import (
	"context"
	"database/sql"
	"time"
)

type InterestRepo struct{ DB *sql.DB }

func NewInterestRepo(db *sql.DB) *InterestRepo { return &InterestRepo{DB: db} }

// Toggle flips the interest marker for (event, user) and reports the new
// state: true when the user is now interested.
func (r *InterestRepo) Toggle(ctx context.Context, eventID, userID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM event_interests WHERE event_id=? AND user_id=?", eventID, userID)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return false, nil
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO event_interests (event_id, user_id, interested_at) VALUES (?,?,?)",
		eventID, userID, time.Now().UTC())
	if err != nil {
		// Lost a race with a concurrent toggle that inserted first; the
		// marker is present, which is what this call wanted.
		if isDuplicate(err) {
			return true, nil
		}
		return false, err
	}
	return true, nil
}

// Exists reports whether the user is currently interested in the event.
func (r *InterestRepo) Exists(ctx context.Context, eventID, userID string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM event_interests WHERE event_id=? AND user_id=?",
		eventID, userID).Scan(&n)
	return n > 0, err
}

// ListUserIDs returns the ids of users interested in an event, oldest
// first.
func (r *InterestRepo) ListUserIDs(ctx context.Context, eventID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT user_id FROM event_interests WHERE event_id=? ORDER BY interested_at", eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
