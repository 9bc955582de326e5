package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-platform/internal/calendar"
	"github.com/iliyamo/event-platform/internal/middleware"
	"github.com/iliyamo/event-platform/internal/model"
	"github.com/iliyamo/event-platform/internal/repository"
	"github.com/iliyamo/event-platform/internal/service"
	"github.com/iliyamo/event-platform/internal/storage"
)

const requestTimeout = 5 * time.Second

// reqCtx bounds the work done for one request.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// respondError maps service and repository errors to a status code and a
// JSON body of the form {"error": "..."} plus optional detail fields.
func respondError(c echo.Context, err error) error {
	var (
		verr     validation.Errors
		conflict *service.ConflictError
		capacity *service.CapacityError
	)
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "validation failed", "fields": verr})
	case errors.As(err, &conflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking conflict", "conflicts": conflict.Conflicts})
	case errors.As(err, &capacity):
		return c.JSON(http.StatusConflict, echo.Map{"error": "not enough tickets left", "remaining": capacity.Remaining})
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	case errors.Is(err, repository.ErrConflict),
		errors.Is(err, repository.ErrNoChange),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrEventNotOnSale),
		errors.Is(err, service.ErrBookingConflict),
		errors.Is(err, service.ErrCapacityExceeded):
		return c.JSON(http.StatusConflict, echo.Map{"error": rootMessage(err)})
	case errors.Is(err, service.ErrIncomplete), errors.Is(err, calendar.ErrExpansionLimit):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": rootMessage(err)})
	case errors.Is(err, service.ErrInvalidRange),
		errors.Is(err, service.ErrRangeTooLarge),
		errors.Is(err, service.ErrTooFarAhead),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, storage.ErrInvalidPath):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": rootMessage(err)})
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	case errors.Is(err, service.ErrUnsupportedMedia):
		return c.JSON(http.StatusUnsupportedMediaType, echo.Map{"error": "unsupported media type"})
	case errors.Is(err, service.ErrFileTooLarge):
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": "file too large"})
	case errors.Is(err, context.DeadlineExceeded):
		return c.JSON(http.StatusGatewayTimeout, echo.Map{"error": "timeout"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// rootMessage returns the text of the innermost wrapped error so that
// operation prefixes added by the services stay out of responses.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// idParam parses a positive numeric path parameter.
func idParam(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func kindParam(c echo.Context) (model.ResourceKind, bool) {
	return model.ParseResourceKind(c.Param("kind"))
}

// currentUser returns the id set by JWTAuth.  Routes using it are always
// behind JWTAuth, so a missing id is a routing mistake.
func currentUser(c echo.Context) uint64 {
	id, _ := middleware.UserID(c)
	return id
}

func queryInt(c echo.Context, name string) int {
	n, _ := strconv.Atoi(c.QueryParam(name))
	return n
}

func queryTime(c echo.Context, name string) (time.Time, error) {
	v := c.QueryParam(name)
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, v)
}

func directoryQuery(c echo.Context) repository.DirectoryQuery {
	q := repository.DirectoryQuery{
		Query:    c.QueryParam("q"),
		Category: c.QueryParam("category"),
		City:     c.QueryParam("city"),
		Page:     queryInt(c, "page"),
		PageSize: queryInt(c, "page_size"),
	}
	if n := queryInt(c, "min_capacity"); n > 0 {
		q.MinCapacity = uint32(n)
	}
	return q
}

// upload opens the multipart field "file".  The caller closes the body.
func upload(c echo.Context) (service.Upload, func(), error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return service.Upload{}, nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return service.Upload{}, nil, err
	}
	return service.Upload{Name: fh.Filename, Body: f}, func() { _ = f.Close() }, nil
}
