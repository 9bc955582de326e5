package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-platform/internal/calendar"
	"github.com/iliyamo/event-platform/internal/model"
	"github.com/iliyamo/event-platform/internal/service"
)

type CalendarAPI interface {
	Range(from, to time.Time) (time.Time, time.Time, error)
	Entries(ctx context.Context, kind model.ResourceKind, id uint64, from, to time.Time) ([]calendar.Entry, error)
	ICS(ctx context.Context, kind model.ResourceKind, id uint64, from, to time.Time) (string, error)
	CreateBlock(ctx context.Context, ownerID uint64, kind model.ResourceKind, id uint64, in service.BlockInput) (*model.AvailabilityBlock, error)
	Blocks(ctx context.Context, ownerID uint64, kind model.ResourceKind, id uint64) ([]*model.AvailabilityBlock, error)
	DeleteBlock(ctx context.Context, ownerID, blockID uint64) error
}

// CalendarHandler serves availability calendars and blocks.
type CalendarHandler struct {
	Calendar CalendarAPI
}

func NewCalendarHandler(cal CalendarAPI) *CalendarHandler {
	return &CalendarHandler{Calendar: cal}
}

// Show answers /calendar/:kind/:id as JSON and /calendar/:kind/:id.ics
// as iCalendar.  Both share one route since the router cannot split a
// parameter on its suffix.
func (h *CalendarHandler) Show(c echo.Context) error {
	kind, ok := kindParam(c)
	if !ok {
		return badRequest(c, "invalid kind")
	}
	raw, asICS := strings.CutSuffix(c.Param("id"), ".ics")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return badRequest(c, "invalid id")
	}
	from, err := queryTime(c, "from")
	if err != nil {
		return badRequest(c, "from must be RFC3339")
	}
	to, err := queryTime(c, "to")
	if err != nil {
		return badRequest(c, "to must be RFC3339")
	}
	from, to, err = h.Calendar.Range(from, to)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if asICS {
		body, err := h.Calendar.ICS(ctx, kind, id, from, to)
		if err != nil {
			return respondError(c, err)
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s-%d.ics"`, kind, id))
		return c.Blob(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
	}
	entries, err := h.Calendar.Entries(ctx, kind, id, from, to)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"from": from, "to": to, "entries": entries})
}

func (h *CalendarHandler) CreateBlock(c echo.Context) error {
	kind, id, ok := kindAndID(c)
	if !ok {
		return badRequest(c, "invalid resource")
	}
	var in service.BlockInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Calendar.CreateBlock(ctx, currentUser(c), kind, id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *CalendarHandler) Blocks(c echo.Context) error {
	kind, id, ok := kindAndID(c)
	if !ok {
		return badRequest(c, "invalid resource")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Calendar.Blocks(ctx, currentUser(c), kind, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

func (h *CalendarHandler) DeleteBlock(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Calendar.DeleteBlock(ctx, currentUser(c), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
