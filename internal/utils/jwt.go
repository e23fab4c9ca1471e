package utils // package utils provides helpers for token creation and hashing

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/eyengage/engage-api/internal/model"
)

// LegacyRoleClaim is the well-known role claim URI the platform's existing
// authorization middleware matches on. Roles are emitted twice: once under
// "roles" and once under this URI. The duplication lives only here at the
// wire boundary; the domain model carries a single roles slice.
const LegacyRoleClaim = "http://schemas.microsoft.com/ws/2008/06/identity/claims/role"

// TokenOptions carries the signing configuration shared by issuing and
// validation.
type TokenOptions struct {
	Secret   string
	Issuer   string
	Audience string
}

// AccessToken is a signed JWT plus its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// RefreshToken is a long-lived opaque secret used only to mint new access
// tokens. The Raw value goes back to the client; the database stores only
// its SHA-256 hash.
type RefreshToken struct {
	Raw string
	Exp time.Time
}

// Claims is the decoded view of an access token that the middleware hands
// to handlers.
type Claims struct {
	UserID       string
	Email        string
	SessionID    string
	FullName     string
	Department   string
	IsActive     bool
	IsFirstLogin bool
	Roles        []string
}

// NewAccessToken builds and signs an HS256 JWT for a user session. The
// claim layout is a wire contract other platform services depend on:
// sub, email, jti, sid, isActive, isFirstLogin, fullName, department,
// roles, and the roles again under the legacy claim URI.
func NewAccessToken(opts TokenOptions, u *model.User, sessionID string, ttlMin int) (AccessToken, error) {
	exp := time.Now().UTC().Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":          u.ID,
		"email":        u.Email,
		"jti":          uuid.NewString(),
		"sid":          sessionID,
		"isActive":     u.IsActive,
		"isFirstLogin": u.IsFirstLogin,
		"fullName":     u.FullName,
		"department":   u.Department,
		"roles":        u.Roles,
		LegacyRoleClaim: u.Roles,
		"iss":          opts.Issuer,
		"aud":          opts.Audience,
		"exp":          exp.Unix(),
		"iat":          time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(opts.Secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ErrInvalidToken is returned when a token fails signature, expiry,
// issuer/audience or structural checks.
var ErrInvalidToken = errors.New("invalid token")

// ParseAccessToken validates signature, expiry, issuer and audience and
// returns the decoded claims. The session check against the store is the
// caller's responsibility; it is deliberately not baked in here.
func ParseAccessToken(opts TokenOptions, raw string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(opts.Secret), nil
	}, jwt.WithIssuer(opts.Issuer), jwt.WithAudience(opts.Audience))
	if err != nil || !tok.Valid {
		return Claims{}, ErrInvalidToken
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}

	c := Claims{
		UserID:       asString(mc["sub"]),
		Email:        asString(mc["email"]),
		SessionID:    asString(mc["sid"]),
		FullName:     asString(mc["fullName"]),
		Department:   asString(mc["department"]),
		IsActive:     asBool(mc["isActive"]),
		IsFirstLogin: asBool(mc["isFirstLogin"]),
		Roles:        asStrings(mc["roles"]),
	}
	if c.UserID == "" || c.SessionID == "" {
		return Claims{}, ErrInvalidToken
	}
	return c, nil
}

// NewRefreshToken returns a cryptographically random refresh secret (48
// bytes, 96 hex chars) and its expiry.
func NewRefreshToken(ttlDays int) (RefreshToken, error) {
	raw, err := RandomHex(48)
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{
		Raw: raw,
		Exp: time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour),
	}, nil
}

// HashRefreshRaw returns the SHA-256 hash of a raw refresh token as hex.
// Only the hash is persisted so stolen database rows cannot refresh a
// session.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// RandomHex returns a hex string generated from n bytes of
// cryptographically secure random data.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asStrings(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
