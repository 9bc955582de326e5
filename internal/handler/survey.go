package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-platform/internal/model"
	"github.com/iliyamo/event-platform/internal/service"
)

type SurveyAPI interface {
	Submit(ctx context.Context, userID, eventID uint64, in service.SurveyInput) (*model.SurveyResponse, error)
	Responses(ctx context.Context, plannerID, eventID uint64) ([]*model.SurveyResponse, error)
	Summary(ctx context.Context, plannerID, eventID uint64) (*model.SurveySummary, error)
	ExportCSV(ctx context.Context, plannerID, eventID uint64, w io.Writer) error
}

type SurveyHandler struct {
	Surveys SurveyAPI
}

func NewSurveyHandler(s SurveyAPI) *SurveyHandler {
	return &SurveyHandler{Surveys: s}
}

func (h *SurveyHandler) Submit(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var in service.SurveyInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	r, err := h.Surveys.Submit(ctx, currentUser(c), id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *SurveyHandler) Responses(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Surveys.Responses(ctx, currentUser(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

func (h *SurveyHandler) Summary(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Surveys.Summary(ctx, currentUser(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

// Export writes the responses as a CSV attachment.  The file is built in
// memory first so that a failure can still be answered with JSON.
func (h *SurveyHandler) Export(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	var buf bytes.Buffer
	if err := h.Surveys.ExportCSV(ctx, currentUser(c), id, &buf); err != nil {
		return respondError(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="event-%d-survey.csv"`, id))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
