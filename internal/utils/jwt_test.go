package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/eyengage/engage-api/internal/model"
)

var testOpts = TokenOptions{Secret: "unit-test-secret", Issuer: "ey-engage", Audience: "ey-engage"}

func testUser() *model.User {
	return &model.User{
		ID:           "u1",
		Email:        "jane@ey.com",
		FullName:     "Jane Doe",
		Department:   "Consulting",
		IsActive:     true,
		IsFirstLogin: false,
		Roles:        []string{model.RoleEmployee, model.RoleAgent},
	}
}

func TestAccessToken_RoundTrip(t *testing.T) {
	tok, err := NewAccessToken(testOpts, testUser(), "session-1", 15)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if until := time.Until(tok.Exp); until < 14*time.Minute || until > 16*time.Minute {
		t.Fatalf("expiry %v from now, want ~15m", until)
	}

	claims, err := ParseAccessToken(testOpts, tok.Token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "u1" || claims.SessionID != "session-1" {
		t.Fatalf("sub=%q sid=%q", claims.UserID, claims.SessionID)
	}
	if claims.Email != "jane@ey.com" || claims.FullName != "Jane Doe" || claims.Department != "Consulting" {
		t.Fatalf("profile claims mismatch: %+v", claims)
	}
	if !claims.IsActive || claims.IsFirstLogin {
		t.Fatalf("flag claims mismatch: %+v", claims)
	}
	if len(claims.Roles) != 2 || claims.Roles[0] != model.RoleEmployee {
		t.Fatalf("roles %v", claims.Roles)
	}
}

// Roles must be duplicated under the legacy claim URI; other platform
// services match on it.
func TestAccessToken_CarriesLegacyRoleClaim(t *testing.T) {
	tok, err := NewAccessToken(testOpts, testUser(), "session-1", 15)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	parsed, err := jwt.Parse(tok.Token, func(*jwt.Token) (interface{}, error) {
		return []byte(testOpts.Secret), nil
	})
	if err != nil {
		t.Fatalf("raw parse: %v", err)
	}
	mc := parsed.Claims.(jwt.MapClaims)
	legacy, ok := mc[LegacyRoleClaim].([]interface{})
	if !ok {
		t.Fatalf("legacy role claim missing or wrong type: %T", mc[LegacyRoleClaim])
	}
	if len(legacy) != 2 || legacy[0] != model.RoleEmployee {
		t.Fatalf("legacy roles %v", legacy)
	}
	if _, ok := mc["jti"].(string); !ok {
		t.Fatal("jti claim missing")
	}
}

func TestParseAccessToken_RejectsWrongSecret(t *testing.T) {
	tok, _ := NewAccessToken(testOpts, testUser(), "session-1", 15)

	other := testOpts
	other.Secret = "different"
	if _, err := ParseAccessToken(other, tok.Token); err == nil {
		t.Fatal("token signed with another secret must not parse")
	}
}

func TestParseAccessToken_RejectsWrongIssuerOrAudience(t *testing.T) {
	tok, _ := NewAccessToken(testOpts, testUser(), "session-1", 15)

	badIss := testOpts
	badIss.Issuer = "someone-else"
	if _, err := ParseAccessToken(badIss, tok.Token); err == nil {
		t.Fatal("wrong issuer must not parse")
	}

	badAud := testOpts
	badAud.Audience = "someone-else"
	if _, err := ParseAccessToken(badAud, tok.Token); err == nil {
		t.Fatal("wrong audience must not parse")
	}
}

func TestParseAccessToken_RejectsExpired(t *testing.T) {
	claims := jwt.MapClaims{
		"sub": "u1",
		"sid": "session-1",
		"iss": testOpts.Issuer,
		"aud": testOpts.Audience,
		"exp": time.Now().Add(-time.Minute).Unix(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testOpts.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseAccessToken(testOpts, raw); err == nil {
		t.Fatal("expired token must not parse")
	}
}

func TestParseAccessToken_RequiresSessionID(t *testing.T) {
	claims := jwt.MapClaims{
		"sub": "u1",
		"iss": testOpts.Issuer,
		"aud": testOpts.Audience,
		"exp": time.Now().Add(time.Minute).Unix(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testOpts.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseAccessToken(testOpts, raw); err == nil {
		t.Fatal("token without sid must not parse")
	}
}

func TestRefreshToken_HashStability(t *testing.T) {
	rt, err := NewRefreshToken(7)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(rt.Raw) != 96 {
		t.Fatalf("raw length %d, want 96 hex chars", len(rt.Raw))
	}
	h1, h2 := HashRefreshRaw(rt.Raw), HashRefreshRaw(rt.Raw)
	if h1 != h2 {
		t.Fatal("hash must be deterministic")
	}
	if len(h1) != 64 {
		t.Fatalf("hash length %d, want 64", len(h1))
	}
	if HashRefreshRaw(rt.Raw+"x") == h1 {
		t.Fatal("different inputs must not collide trivially")
	}
}
