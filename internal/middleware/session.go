package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eyengage/engage-api/internal/service"
)

// SessionGuard checks the token's session id against the store on every
// request, so a login on another device (which rotates the session)
// immediately invalidates tokens minted for the old one. Runs after
// JWTAuth.
func SessionGuard(auth *service.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, sessionID := UserID(c), SessionID(c)
			if userID == "" || sessionID == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing session"})
			}
			_, err := auth.Validate(c.Request().Context(), userID, sessionID)
			switch {
			case errors.Is(err, service.ErrSessionInvalidated):
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "session invalidated",
					"code":  "SESSION_INVALIDATED",
				})
			case errors.Is(err, service.ErrUnauthorized):
				return c.JSON(http.StatusForbidden, echo.Map{"error": "account inactive"})
			case err != nil:
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session check failed"})
			}
			return next(c)
		}
	}
}
