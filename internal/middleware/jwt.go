// Package middleware provides shared request processing: bearer/cookie
// token parsing, per-request session validation, role gates and rate
// limiting.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eyengage/engage-api/internal/utils"
)

// Context keys set by JWTAuth for downstream middleware and handlers.
const (
	CtxUserID    = "user_id"
	CtxSessionID = "session_id"
	CtxEmail     = "email"
	CtxRoles     = "roles"
	CtxFullName  = "full_name"
)

// JWTAuth validates the access token from the Authorization header or,
// failing that, the ey-session cookie, and injects the decoded claims
// into the request context. Signature, expiry, issuer and audience are
// checked here; the session-id-against-store check belongs to
// SessionGuard.
func JWTAuth(opts utils.TokenOptions) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := ""
			if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				raw = strings.TrimPrefix(auth, "Bearer ")
			} else if cookie, err := c.Cookie("ey-session"); err == nil {
				raw = cookie.Value
			}
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing access token"})
			}

			claims, err := utils.ParseAccessToken(opts, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			c.Set(CtxUserID, claims.UserID)
			c.Set(CtxSessionID, claims.SessionID)
			c.Set(CtxEmail, claims.Email)
			c.Set(CtxRoles, claims.Roles)
			c.Set(CtxFullName, claims.FullName)
			return next(c)
		}
	}
}

// UserID extracts the authenticated user id from the context.
func UserID(c echo.Context) string {
	s, _ := c.Get(CtxUserID).(string)
	return s
}

// SessionID extracts the token's session id from the context.
func SessionID(c echo.Context) string {
	s, _ := c.Get(CtxSessionID).(string)
	return s
}

// Roles extracts the role claims from the context.
func Roles(c echo.Context) []string {
	r, _ := c.Get(CtxRoles).([]string)
	return r
}
