package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-platform/internal/model"
)

type NotificationAPI interface {
	List(ctx context.Context, userID uint64, unreadOnly bool) ([]*model.Notification, error)
	UnreadCount(ctx context.Context, userID uint64) (int, error)
	SetRead(ctx context.Context, userID, id uint64, isRead bool) (*model.Notification, error)
	MarkAllRead(ctx context.Context, userID uint64) (int64, error)
	Delete(ctx context.Context, userID, id uint64) error
}

// NotificationHandler serves the caller's inbox.
type NotificationHandler struct {
	Notifications NotificationAPI
}

func NewNotificationHandler(n NotificationAPI) *NotificationHandler {
	return &NotificationHandler{Notifications: n}
}

type setReadReq struct {
	IsRead *bool `json:"is_read"`
}

// List returns the inbox, newest first; ?unread=true filters.
func (h *NotificationHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	items, err := h.Notifications.List(ctx, currentUser(c), c.QueryParam("unread") == "true")
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

func (h *NotificationHandler) UnreadCount(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	n, err := h.Notifications.UnreadCount(ctx, currentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"unread_count": n})
}

func (h *NotificationHandler) SetRead(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req setReadReq
	if err := c.Bind(&req); err != nil || req.IsRead == nil {
		return badRequest(c, "is_read required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	n, err := h.Notifications.SetRead(ctx, currentUser(c), id, *req.IsRead)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, n)
}

func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	n, err := h.Notifications.MarkAllRead(ctx, currentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": n})
}

func (h *NotificationHandler) Delete(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Notifications.Delete(ctx, currentUser(c), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
