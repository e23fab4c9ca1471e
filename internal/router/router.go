// Package router wires handlers, middleware and route groups.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/eyengage/engage-api/internal/config"
	"github.com/eyengage/engage-api/internal/handler"
	"github.com/eyengage/engage-api/internal/middleware"
	"github.com/eyengage/engage-api/internal/model"
	"github.com/eyengage/engage-api/internal/service"
	"github.com/eyengage/engage-api/internal/utils"
)

// Deps collects everything route registration needs.
type Deps struct {
	Auth      *handler.AuthHandler
	Events    *handler.EventHandler
	Users     *handler.UserHandler
	AuthSvc   *service.AuthService
	Tokens    utils.TokenOptions
	RateLimit config.RateLimitConfig
	Redis     *redis.Client
}

// Register mounts every route. Three tiers: public (health, credential
// endpoints), authenticated (JWT + live session check), and role-gated
// (approval workflow for agents, administration for SuperAdmin).
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)

	limited := middleware.NewTokenBucket(d.RateLimit, d.Redis)

	// Credential endpoints: no token required, brute-force limited.
	pub := e.Group("/api/auth")
	pub.POST("/login", d.Auth.Login, limited)
	pub.POST("/change-password", d.Auth.ChangePassword, limited)
	pub.POST("/refresh", d.Auth.Refresh)
	pub.POST("/forgot-password", d.Auth.ForgotPassword, limited)
	pub.POST("/reset-password", d.Auth.ResetPassword, limited)
	pub.GET("/csrf-token", d.Auth.CSRFToken)

	// Everything below requires a valid token whose session id is still
	// the user's current one.
	auth := e.Group("/api")
	auth.Use(middleware.JWTAuth(d.Tokens))
	auth.Use(middleware.SessionGuard(d.AuthSvc))

	auth.POST("/auth/logout", d.Auth.Logout)
	auth.GET("/auth/validate", d.Auth.Validate)
	auth.GET("/users/me", d.Users.Me)

	auth.GET("/events", d.Events.List)
	auth.GET("/events/:id", d.Events.Get)
	auth.POST("/events", d.Events.Create)
	auth.POST("/events/:id/participate", d.Events.Participate)
	auth.POST("/events/:id/interest", d.Events.ToggleInterest)
	auth.GET("/events/:id/interested", d.Events.InterestedUsers)
	auth.GET("/events/:id/comments", d.Events.Comments)
	auth.POST("/events/:id/comments", d.Events.Comment)
	auth.POST("/comments/:commentId/replies", d.Events.Reply)
	auth.POST("/comments/:commentId/reactions", d.Events.ReactToComment)
	auth.POST("/replies/:replyId/reactions", d.Events.ReactToReply)
	auth.DELETE("/comments/:commentId", d.Events.DeleteComment)

	// Approval workflow: agents and SuperAdmin.
	approver := auth.Group("", middleware.RequireRole(model.RoleAgent, model.RoleSuperAdmin))
	approver.PATCH("/events/:id/status", d.Events.Decide)
	approver.DELETE("/events/:id", d.Events.Delete)
	approver.GET("/events/:id/participations", d.Events.ListParticipations)
	approver.POST("/participations/:participationId/approve", d.Events.ApproveParticipation)
	approver.POST("/participations/:participationId/reject", d.Events.RejectParticipation)

	// Administration: SuperAdmin only.
	admin := auth.Group("/admin", middleware.RequireRole(model.RoleSuperAdmin))
	admin.POST("/users/invite", d.Users.Invite)
	admin.POST("/users/:id/roles", d.Users.GrantRole)
}
