package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-platform/internal/model"
	"github.com/iliyamo/event-platform/internal/service"
)

// BookingAPI is the part of service.BookingService used over HTTP.
type BookingAPI interface {
	Create(ctx context.Context, userID uint64, in service.BookingInput) (*model.Booking, error)
	Get(ctx context.Context, userID uint64, kind model.ResourceKind, id uint64) (*model.Booking, error)
	Mine(ctx context.Context, userID uint64, kind model.ResourceKind) ([]*model.Booking, error)
	ForResource(ctx context.Context, ownerID uint64, kind model.ResourceKind, resourceID uint64) ([]*model.Booking, error)
	Decide(ctx context.Context, ownerID uint64, kind model.ResourceKind, id uint64, status string) (*model.Booking, error)
	Cancel(ctx context.Context, userID uint64, kind model.ResourceKind, id uint64) (*model.Booking, error)
}

type BookingHandler struct {
	Bookings BookingAPI
}

func NewBookingHandler(b BookingAPI) *BookingHandler {
	return &BookingHandler{Bookings: b}
}

// bookingReq names the resource by venue_id or supplier_id; exactly one
// must be set.
type bookingReq struct {
	VenueID    uint64    `json:"venue_id"`
	SupplierID uint64    `json:"supplier_id"`
	EventID    *uint64   `json:"event_id"`
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
	Notes      string    `json:"notes"`
}

func (r bookingReq) input() (service.BookingInput, error) {
	in := service.BookingInput{EventID: r.EventID, StartsAt: r.StartsAt, EndsAt: r.EndsAt, Notes: r.Notes}
	switch {
	case r.VenueID > 0 && r.SupplierID > 0:
		return in, validation.Errors{"venue_id": errors.New("set either venue_id or supplier_id")}
	case r.VenueID > 0:
		in.Kind, in.ResourceID = model.KindVenue, r.VenueID
	case r.SupplierID > 0:
		in.Kind, in.ResourceID = model.KindSupplier, r.SupplierID
	default:
		return in, validation.Errors{"venue_id": errors.New("venue_id or supplier_id is required")}
	}
	return in, nil
}

// Create books a venue or supplier.  Overlaps answer 409 with the
// conflicting entries.
func (h *BookingHandler) Create(c echo.Context) error {
	var req bookingReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	in, err := req.input()
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Bookings.Create(ctx, currentUser(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// Mine lists the caller's bookings of ?kind= (venue by default).
func (h *BookingHandler) Mine(c echo.Context) error {
	kind := model.KindVenue
	if k := c.QueryParam("kind"); k != "" {
		var ok bool
		if kind, ok = model.ParseResourceKind(k); !ok {
			return badRequest(c, "invalid kind")
		}
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Bookings.Mine(ctx, currentUser(c), kind)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

func (h *BookingHandler) Get(c echo.Context) error {
	kind, id, ok := kindAndID(c)
	if !ok {
		return badRequest(c, "invalid booking reference")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Bookings.Get(ctx, currentUser(c), kind, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// ForResource lists the bookings of one of the caller's venues or
// suppliers.
func (h *BookingHandler) ForResource(kind model.ResourceKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := idParam(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		ctx, cancel := reqCtx(c)
		defer cancel()

		items, err := h.Bookings.ForResource(ctx, currentUser(c), kind, id)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"items": items})
	}
}

func (h *BookingHandler) Confirm(c echo.Context) error {
	return h.decide(c, model.BookingConfirmed)
}

func (h *BookingHandler) Decline(c echo.Context) error {
	return h.decide(c, model.BookingDeclined)
}

func (h *BookingHandler) decide(c echo.Context, status string) error {
	kind, id, ok := kindAndID(c)
	if !ok {
		return badRequest(c, "invalid booking reference")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Bookings.Decide(ctx, currentUser(c), kind, id, status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) Cancel(c echo.Context) error {
	kind, id, ok := kindAndID(c)
	if !ok {
		return badRequest(c, "invalid booking reference")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	b, err := h.Bookings.Cancel(ctx, currentUser(c), kind, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

func kindAndID(c echo.Context) (model.ResourceKind, uint64, bool) {
	kind, ok := kindParam(c)
	if !ok {
		return "", 0, false
	}
	id, ok := idParam(c, "id")
	return kind, id, ok
}
