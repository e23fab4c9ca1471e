package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/eyengage/engage-api/internal/model"
)

// SessionRepo persists login sessions. A session row carries both the
// session identifier embedded in access tokens and the hash of the refresh
// token bound to it. Rotation is revoke-all-then-insert, which is what
// gives the platform its single-active-session semantics: any token
// holding a revoked session id is dead on arrival.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Create inserts a session row.
func (r *SessionRepo) Create(ctx context.Context, s *model.Session) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO sessions (id, user_id, refresh_hash, refresh_expires_at) VALUES (?,?,?,?)",
		s.ID, s.UserID, s.RefreshHash, s.RefreshExpiresAt)
	return err
}

const sessionColumns = "id,user_id,refresh_hash,refresh_expires_at,created_at,revoked_at"

func scanSession(row *sql.Row) (model.Session, error) {
	var (
		s       model.Session
		revoked sql.NullTime
	)
	err := row.Scan(&s.ID, &s.UserID, &s.RefreshHash, &s.RefreshExpiresAt, &s.CreatedAt, &revoked)
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrNotFound
	}
	if revoked.Valid {
		t := revoked.Time
		s.RevokedAt = &t
	}
	return s, err
}

// GetByID fetches a session regardless of revocation state; callers decide
// how to treat a revoked row.
func (r *SessionRepo) GetByID(ctx context.Context, id string) (model.Session, error) {
	return scanSession(r.DB.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE id=? LIMIT 1", id))
}

// GetActiveByRefreshHash returns the non-revoked, non-expired session
// holding the given refresh hash. Revoked or expired rows surface as
// ErrNotFound so the caller cannot distinguish them from absent ones.
func (r *SessionRepo) GetActiveByRefreshHash(ctx context.Context, hash string) (model.Session, error) {
	s, err := scanSession(r.DB.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE refresh_hash=? LIMIT 1", hash))
	if err != nil {
		return model.Session{}, err
	}
	if s.RevokedAt != nil || s.Expired(time.Now().UTC()) {
		return model.Session{}, ErrNotFound
	}
	return s, nil
}

// IsActive reports whether the given session id is the user's current
// non-revoked session.
func (r *SessionRepo) IsActive(ctx context.Context, sessionID, userID string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sessions WHERE id=? AND user_id=? AND revoked_at IS NULL",
		sessionID, userID).Scan(&n)
	return n > 0, err
}

// RevokeAllForUser revokes every active session a user holds. Called on
// login, refresh, password change and logout before (except logout) a
// fresh session is inserted.
func (r *SessionRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET revoked_at=NOW() WHERE user_id=? AND revoked_at IS NULL", userID)
	return err
}
