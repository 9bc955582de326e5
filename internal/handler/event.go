package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-platform/internal/middleware"
	"github.com/iliyamo/event-platform/internal/model"
	"github.com/iliyamo/event-platform/internal/repository"
	"github.com/iliyamo/event-platform/internal/service"
)

// EventAPI is the part of service.EventService used over HTTP.
type EventAPI interface {
	Create(ctx context.Context, plannerID uint64, in service.EventInput) (*model.Event, error)
	Update(ctx context.Context, plannerID, id uint64, in service.EventInput) (*model.Event, error)
	Delete(ctx context.Context, plannerID, id uint64) error
	Get(ctx context.Context, viewerID, id uint64) (*model.Event, error)
	Published(ctx context.Context, q repository.DirectoryQuery) (*service.Page[*model.Event], error)
	ByPlanner(ctx context.Context, plannerID uint64) ([]*model.Event, error)
	Reserve(ctx context.Context, userID, eventID uint64, quantity int) (*model.Ticket, error)
	MyTickets(ctx context.Context, userID uint64) ([]*model.Ticket, error)
	CancelTicket(ctx context.Context, userID, id uint64) error
	EventTickets(ctx context.Context, plannerID, eventID uint64) ([]*model.Ticket, error)
}

// EventHandler serves events and ticket reservations.
type EventHandler struct {
	Events EventAPI
}

func NewEventHandler(e EventAPI) *EventHandler {
	return &EventHandler{Events: e}
}

type reserveReq struct {
	Quantity int `json:"quantity"`
}

func (h *EventHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	page, err := h.Events.Published(ctx, directoryQuery(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

// Get shows an event.  Drafts are visible to their planner only, so the
// route runs with optional authentication.
func (h *EventHandler) Get(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	viewer, _ := middleware.UserID(c)
	ctx, cancel := reqCtx(c)
	defer cancel()

	e, err := h.Events.Get(ctx, viewer, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *EventHandler) Mine(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	items, err := h.Events.ByPlanner(ctx, currentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

func (h *EventHandler) Create(c echo.Context) error {
	var in service.EventInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	e, err := h.Events.Create(ctx, currentUser(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *EventHandler) Update(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var in service.EventInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	e, err := h.Events.Update(ctx, currentUser(c), id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *EventHandler) Delete(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Events.Delete(ctx, currentUser(c), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Reserve books quantity tickets; 409 with "remaining" when sold out.
func (h *EventHandler) Reserve(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req reserveReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Events.Reserve(ctx, currentUser(c), id, req.Quantity)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *EventHandler) MyTickets(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	items, err := h.Events.MyTickets(ctx, currentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

func (h *EventHandler) CancelTicket(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Events.CancelTicket(ctx, currentUser(c), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *EventHandler) EventTickets(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	items, err := h.Events.EventTickets(ctx, currentUser(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
