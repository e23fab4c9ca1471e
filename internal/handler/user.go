package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eyengage/engage-api/internal/middleware"
	"github.com/eyengage/engage-api/internal/service"
)

// UserHandler exposes the profile endpoint and the SuperAdmin-only
// administration surface.
type UserHandler struct {
	Users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{Users: users}
}

type inviteReq struct {
	FullName   string `json:"fullName"`
	Email      string `json:"email"`
	Department string `json:"department"`
	Fonction   string `json:"fonction"`
}

type grantRoleReq struct {
	Role string `json:"role"`
}

// Me returns the caller's profile.
func (h *UserHandler) Me(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.Get(ctx, middleware.UserID(c))
	if err != nil {
		return svcError(c, err, "load profile failed")
	}
	return c.JSON(http.StatusOK, userPart{
		ID:           u.ID,
		Email:        u.Email,
		FullName:     u.FullName,
		Department:   u.Department,
		Fonction:     u.Fonction,
		IsActive:     u.IsActive,
		IsFirstLogin: u.IsFirstLogin,
		Roles:        u.Roles,
	})
}

// Invite creates an inactive employee account. The temporary password
// travels only in the welcome mail, never in the response.
func (h *UserHandler) Invite(c echo.Context) error {
	var req inviteReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.Invite(ctx, req.FullName, req.Email, req.Department, req.Fonction)
	if err != nil {
		return svcError(c, err, "invite failed")
	}
	return c.JSON(http.StatusCreated, userPart{
		ID:           u.ID,
		Email:        u.Email,
		FullName:     u.FullName,
		Department:   u.Department,
		Fonction:     u.Fonction,
		IsActive:     u.IsActive,
		IsFirstLogin: u.IsFirstLogin,
		Roles:        u.Roles,
	})
}

// GrantRole adds a role to an existing user.
func (h *UserHandler) GrantRole(c echo.Context) error {
	var req grantRoleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.GrantRole(ctx, c.Param("id"), req.Role); err != nil {
		return svcError(c, err, "grant role failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"granted": req.Role})
}
