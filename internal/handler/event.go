package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eyengage/engage-api/internal/middleware"
	"github.com/eyengage/engage-api/internal/model"
	"github.com/eyengage/engage-api/internal/service"
)

// EventHandler exposes the event lifecycle, participation workflow,
// interest toggle and comment thread endpoints.
type EventHandler struct {
	Events *service.EventService
}

func NewEventHandler(events *service.EventService) *EventHandler {
	return &EventHandler{Events: events}
}

// ----- DTOs -----

type createEventReq struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"` // RFC 3339
	Location    string `json:"location"`
	ImagePath   string `json:"imagePath"`
}

type decideEventReq struct {
	Status string `json:"status"` // Approved | Rejected
}

type commentReq struct {
	Content string `json:"content"`
}

type reactReq struct {
	Emoji string `json:"emoji"`
}

// svcError maps the shared service error taxonomy onto status codes.
// Handlers call it after their endpoint-specific cases.
func svcError(c echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, service.ErrUnauthorized):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": fallback})
	}
}

// Create registers a new event in Pending state with the caller as
// organizer.
func (h *EventHandler) Create(c echo.Context) error {
	var req createEventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Title == "" || req.Date == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and date required"})
	}
	date, err := time.Parse(time.RFC3339, req.Date)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be RFC 3339"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	ev := model.Event{
		Title:       req.Title,
		Description: req.Description,
		Date:        date,
		Location:    req.Location,
	}
	if req.ImagePath != "" {
		ev.ImagePath = &req.ImagePath
	}
	if err := h.Events.Create(ctx, middleware.UserID(c), &ev); err != nil {
		return svcError(c, err, "create event failed")
	}
	return c.JSON(http.StatusCreated, ev)
}

// Get returns one event.
func (h *EventHandler) Get(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	ev, err := h.Events.Get(ctx, c.Param("id"))
	if err != nil {
		return svcError(c, err, "load event failed")
	}
	return c.JSON(http.StatusOK, ev)
}

// List returns events in one workflow state (?status=, default Approved),
// optionally filtered by department (?department=).
func (h *EventHandler) List(c echo.Context) error {
	status := model.EventStatus(c.QueryParam("status"))
	if status == "" {
		status = model.EventApproved
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	events, err := h.Events.ListByStatus(ctx, status, c.QueryParam("department"))
	if err != nil {
		return svcError(c, err, "list events failed")
	}
	if events == nil {
		events = []model.Event{}
	}
	return c.JSON(http.StatusOK, events)
}

// Decide approves or rejects a pending event. Agent/SuperAdmin only
// (enforced by route middleware).
func (h *EventHandler) Decide(c echo.Context) error {
	var req decideEventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	err := h.Events.UpdateStatus(ctx, c.Param("id"), model.EventStatus(req.Status), middleware.UserID(c))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			// Either the event does not exist or it already left Pending.
			return c.JSON(http.StatusConflict, echo.Map{"error": "event is not pending"})
		}
		return svcError(c, err, "decide event failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"status": req.Status})
}

// Delete removes an event with all its dependent rows.
func (h *EventHandler) Delete(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Events.Delete(ctx, c.Param("id")); err != nil {
		return svcError(c, err, "delete event failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- participation -----

// Participate records (or re-records) the caller's request to attend.
func (h *EventHandler) Participate(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Events.RequestParticipation(ctx, c.Param("id"), middleware.UserID(c))
	if err != nil {
		return svcError(c, err, "participation request failed")
	}
	return c.JSON(http.StatusCreated, p)
}

// ListParticipations lists an event's requests in one state
// (?status=, default Pending). Approver roles only.
func (h *EventHandler) ListParticipations(c echo.Context) error {
	status := model.ParticipationStatus(c.QueryParam("status"))
	if status == "" {
		status = model.ParticipationPending
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	rows, err := h.Events.ListParticipationRequests(ctx, c.Param("id"), status)
	if err != nil {
		return svcError(c, err, "list participations failed")
	}
	if rows == nil {
		rows = []model.EventParticipation{}
	}
	return c.JSON(http.StatusOK, rows)
}

// ApproveParticipation stamps the caller as approver.
func (h *EventHandler) ApproveParticipation(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Events.ApproveParticipation(ctx, c.Param("participationId"), middleware.UserID(c)); err != nil {
		return svcError(c, err, "approve participation failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"status": model.ParticipationApproved})
}

// RejectParticipation records the refusal without an approver id.
func (h *EventHandler) RejectParticipation(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Events.RejectParticipation(ctx, c.Param("participationId")); err != nil {
		return svcError(c, err, "reject participation failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"status": model.ParticipationRejected})
}

// ----- interest -----

// ToggleInterest flips the caller's interest marker and returns the new
// state.
func (h *EventHandler) ToggleInterest(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	interested, err := h.Events.ToggleInterest(ctx, c.Param("id"), middleware.UserID(c))
	if err != nil {
		return svcError(c, err, "toggle interest failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"interested": interested})
}

// InterestedUsers lists who toggled interest on an event.
func (h *EventHandler) InterestedUsers(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	ids, err := h.Events.InterestedUserIDs(ctx, c.Param("id"))
	if err != nil {
		return svcError(c, err, "list interested users failed")
	}
	if ids == nil {
		ids = []string{}
	}
	return c.JSON(http.StatusOK, echo.Map{"userIds": ids})
}

// ----- comments -----

// Comment adds a top-level comment to an event.
func (h *EventHandler) Comment(c echo.Context) error {
	var req commentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	cm, err := h.Events.Comment(ctx, c.Param("id"), middleware.UserID(c), req.Content)
	if err != nil {
		return svcError(c, err, "create comment failed")
	}
	return c.JSON(http.StatusCreated, cm)
}

// Comments lists an event's comments, oldest first.
func (h *EventHandler) Comments(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	rows, err := h.Events.Comments(ctx, c.Param("id"))
	if err != nil {
		return svcError(c, err, "list comments failed")
	}
	if rows == nil {
		rows = []model.Comment{}
	}
	return c.JSON(http.StatusOK, rows)
}

// Reply adds a threaded reply under a comment.
func (h *EventHandler) Reply(c echo.Context) error {
	var req commentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	r, err := h.Events.Reply(ctx, c.Param("commentId"), middleware.UserID(c), req.Content)
	if err != nil {
		return svcError(c, err, "create reply failed")
	}
	return c.JSON(http.StatusCreated, r)
}

// ReactToComment upserts the caller's emoji on a comment.
func (h *EventHandler) ReactToComment(c echo.Context) error {
	var req reactReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Events.ReactToComment(ctx, c.Param("commentId"), middleware.UserID(c), req.Emoji); err != nil {
		return svcError(c, err, "react failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// ReactToReply upserts the caller's emoji on a reply.
func (h *EventHandler) ReactToReply(c echo.Context) error {
	var req reactReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Events.ReactToReply(ctx, c.Param("replyId"), middleware.UserID(c), req.Emoji); err != nil {
		return svcError(c, err, "react failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteComment removes the caller's own comment with its thread.
func (h *EventHandler) DeleteComment(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Events.DeleteComment(ctx, c.Param("commentId"), middleware.UserID(c)); err != nil {
		return svcError(c, err, "delete comment failed")
	}
	return c.NoContent(http.StatusNoContent)
}
