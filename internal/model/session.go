package model

import "time"

// Session is one login session. The session id is embedded in every access
// token issued for it; a token whose sid does not match the user's single
// non-revoked session row has been superseded and must be rejected. The
// refresh token is stored only as a SHA-256 hash.
type Session struct {
	ID               string
	UserID           string
	RefreshHash      string
	RefreshExpiresAt time.Time
	CreatedAt        time.Time
	RevokedAt        *time.Time
}

// Expired reports whether the refresh credential has passed its expiry.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.RefreshExpiresAt)
}
