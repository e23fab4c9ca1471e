// Package handler maps HTTP requests onto the services and translates
// service errors into status codes. Handlers hold no business rules.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eyengage/engage-api/internal/middleware"
	"github.com/eyengage/engage-api/internal/service"
	"github.com/eyengage/engage-api/internal/utils"
)

// Cookie names shared with the frontend.
const (
	SessionCookie = "ey-session"
	RefreshCookie = "ey-refresh"
	CSRFCookie    = "csrf-token"
)

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Auth   *service.AuthService
	Secure bool // Secure cookie flag, off in local dev
}

func NewAuthHandler(auth *service.AuthService, secure bool) *AuthHandler {
	return &AuthHandler{Auth: auth, Secure: secure}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordReq struct {
	Email           string `json:"email"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

type forgotReq struct {
	Email string `json:"email"`
}

type resetReq struct {
	Email       string `json:"email"`
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type userPart struct {
	ID           string   `json:"id"`
	Email        string   `json:"email"`
	FullName     string   `json:"fullName"`
	Department   string   `json:"department"`
	Fonction     string   `json:"fonction"`
	IsActive     bool     `json:"isActive"`
	IsFirstLogin bool     `json:"isFirstLogin"`
	Roles        []string `json:"roles"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type loginResp struct {
	User                userPart   `json:"user"`
	NeedsPasswordChange bool       `json:"needsPasswordChange"`
	Access              *tokenPart `json:"access,omitempty"`
	Refresh             *tokenPart `json:"refresh,omitempty"`
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// setAuthCookies installs the access and refresh cookies after a
// successful credential exchange.
func (h *AuthHandler) setAuthCookies(c echo.Context, pair *service.TokenPair) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    pair.Access.Token,
		Path:     "/",
		Expires:  pair.Access.Exp,
		HttpOnly: true,
		Secure:   h.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookie,
		Value:    pair.Refresh.Raw,
		Path:     "/api/auth",
		Expires:  pair.Refresh.Exp,
		HttpOnly: true,
		Secure:   h.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearAuthCookies expires the session, refresh and CSRF cookies on
// logout or reset.
func (h *AuthHandler) clearAuthCookies(c echo.Context) {
	expired := time.Unix(0, 0)
	c.SetCookie(&http.Cookie{
		Name: SessionCookie, Value: "", Path: "/", Expires: expired,
		HttpOnly: true, Secure: h.Secure, SameSite: http.SameSiteLaxMode,
	})
	c.SetCookie(&http.Cookie{
		Name: RefreshCookie, Value: "", Path: "/api/auth", Expires: expired,
		HttpOnly: true, Secure: h.Secure, SameSite: http.SameSiteLaxMode,
	})
	c.SetCookie(&http.Cookie{
		Name: CSRFCookie, Value: "", Path: "/", Expires: expired,
		Secure: h.Secure, SameSite: http.SameSiteLaxMode,
	})
}

func loginRespFrom(res service.LoginResult) loginResp {
	resp := loginResp{
		User: userPart{
			ID:           res.User.ID,
			Email:        res.User.Email,
			FullName:     res.User.FullName,
			Department:   res.User.Department,
			Fonction:     res.User.Fonction,
			IsActive:     res.User.IsActive,
			IsFirstLogin: res.User.IsFirstLogin,
			Roles:        res.User.Roles,
		},
		NeedsPasswordChange: res.NeedsPasswordChange,
	}
	if res.Tokens != nil {
		resp.Access = &tokenPart{Token: res.Tokens.Access.Token, Expires: res.Tokens.Access.Exp}
		resp.Refresh = &tokenPart{Token: res.Tokens.Refresh.Raw, Expires: res.Tokens.Refresh.Exp}
	}
	return resp
}

// Login authenticates and, unless the account must first change its
// password, installs the session cookies.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}
	if res.Tokens != nil {
		h.setAuthCookies(c, res.Tokens)
	}
	return c.JSON(http.StatusOK, loginRespFrom(res))
}

// ChangePassword completes the first-login flow (or any voluntary
// password change) and hands back a fresh pair.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Auth.ChangePassword(ctx, req.Email, req.CurrentPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "change password failed"})
	}
	if res.Tokens != nil {
		h.setAuthCookies(c, res.Tokens)
	}
	return c.JSON(http.StatusOK, loginRespFrom(res))
}

// Refresh exchanges the refresh token (cookie first, body as fallback)
// for a new pair on a rotated session.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw := ""
	if cookie, err := c.Cookie(RefreshCookie); err == nil {
		raw = cookie.Value
	}
	if raw == "" {
		var req refreshReq
		if err := c.Bind(&req); err == nil {
			raw = req.RefreshToken
		}
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Auth.Refresh(ctx, raw)
	switch {
	case errors.Is(err, service.ErrSecurityToken):
		h.clearAuthCookies(c)
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	case errors.Is(err, service.ErrUnauthorized):
		h.clearAuthCookies(c)
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account requires password change"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}
	h.setAuthCookies(c, res.Tokens)
	return c.JSON(http.StatusOK, loginRespFrom(res))
}

// ForgotPassword always answers 200 so the endpoint cannot be used to
// probe for registered emails.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	h.Auth.ForgotPassword(ctx, req.Email)
	return c.JSON(http.StatusOK, echo.Map{"message": "if the account exists, a reset code has been sent"})
}

// ResetPassword redeems a reset code. All sessions die; the user logs in
// again with the new password.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.ResetPassword(ctx, req.Email, req.Token, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrValidation) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reset failed"})
	}
	h.clearAuthCookies(c)
	return c.JSON(http.StatusOK, echo.Map{"message": "password reset"})
}

// Logout revokes every session of the caller and clears the cookies.
// Always 204.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	h.Auth.Logout(ctx, middleware.UserID(c))
	h.clearAuthCookies(c)
	return c.NoContent(http.StatusNoContent)
}

// Validate reports whether the presented token still maps to the user's
// current session, and returns the fresh profile when it does.
func (h *AuthHandler) Validate(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Auth.Validate(ctx, middleware.UserID(c), middleware.SessionID(c))
	switch {
	case errors.Is(err, service.ErrSessionInvalidated):
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"valid": false,
			"code":  "SESSION_INVALIDATED",
		})
	case errors.Is(err, service.ErrUnauthorized):
		return c.JSON(http.StatusForbidden, echo.Map{"valid": false, "error": "account inactive"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "validate failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"valid": true,
		"user": userPart{
			ID:           u.ID,
			Email:        u.Email,
			FullName:     u.FullName,
			Department:   u.Department,
			Fonction:     u.Fonction,
			IsActive:     u.IsActive,
			IsFirstLogin: u.IsFirstLogin,
			Roles:        u.Roles,
		},
	})
}

// CSRFToken issues a double-submit token: the value goes out both in the
// body and in a cookie the frontend echoes back in a header.
func (h *AuthHandler) CSRFToken(c echo.Context) error {
	token, err := utils.RandomHex(16)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token generation failed"})
	}
	c.SetCookie(&http.Cookie{
		Name:     CSRFCookie,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(2 * time.Hour),
		Secure:   h.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return c.JSON(http.StatusOK, echo.Map{"csrfToken": token})
}
