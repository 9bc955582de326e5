package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-platform/internal/model"
	"github.com/iliyamo/event-platform/internal/service"
)

type ProfileAPI interface {
	Get(ctx context.Context, userID uint64) (*model.Profile, error)
	Update(ctx context.Context, userID uint64, in service.ProfileInput) (*model.Profile, error)
	UploadAvatar(ctx context.Context, userID uint64, u service.Upload) (*model.Profile, error)
}

type ProfileHandler struct {
	Profiles ProfileAPI
}

func NewProfileHandler(p ProfileAPI) *ProfileHandler {
	return &ProfileHandler{Profiles: p}
}

func (h *ProfileHandler) Get(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Profiles.Get(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProfileHandler) Update(c echo.Context) error {
	var in service.ProfileInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Profiles.Update(ctx, currentUser(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// UploadAvatar takes a multipart "file" field.
func (h *ProfileHandler) UploadAvatar(c echo.Context) error {
	u, done, err := upload(c)
	if err != nil {
		return badRequest(c, "file is required")
	}
	defer done()
	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Profiles.UploadAvatar(ctx, currentUser(c), u)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}
