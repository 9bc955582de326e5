package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-platform/internal/model"
	"github.com/iliyamo/event-platform/internal/repository"
	"github.com/iliyamo/event-platform/internal/service"
)

// DirectoryAPI is the part of service.DirectoryService used over HTTP.
type DirectoryAPI interface {
	ListSuppliers(ctx context.Context, q repository.DirectoryQuery) (*service.Page[*model.Supplier], error)
	ListVenues(ctx context.Context, q repository.DirectoryQuery) (*service.Page[*model.Venue], error)
	ListPlanners(ctx context.Context, q repository.DirectoryQuery) (*service.Page[model.Planner], error)
	Supplier(ctx context.Context, id uint64) (*model.Supplier, error)
	Venue(ctx context.Context, id uint64) (*model.Venue, error)
	MySuppliers(ctx context.Context, ownerID uint64) ([]*model.Supplier, error)
	MyVenues(ctx context.Context, ownerID uint64) ([]*model.Venue, error)
	CreateSupplier(ctx context.Context, ownerID uint64, in service.SupplierInput) (*model.Supplier, error)
	UpdateSupplier(ctx context.Context, ownerID, id uint64, in service.SupplierInput) (*model.Supplier, error)
	DeleteSupplier(ctx context.Context, ownerID, id uint64) error
	CreateVenue(ctx context.Context, ownerID uint64, in service.VenueInput) (*model.Venue, error)
	UpdateVenue(ctx context.Context, ownerID, id uint64, in service.VenueInput) (*model.Venue, error)
	DeleteVenue(ctx context.Context, ownerID, id uint64) error
	AddGalleryImage(ctx context.Context, ownerID uint64, kind model.ResourceKind, id uint64, u service.Upload) (*model.GalleryImage, error)
	DeleteGalleryImage(ctx context.Context, ownerID, imageID uint64) error
}

// DirectoryHandler serves the supplier, venue and planner directory.
type DirectoryHandler struct {
	Dir DirectoryAPI
}

func NewDirectoryHandler(d DirectoryAPI) *DirectoryHandler {
	return &DirectoryHandler{Dir: d}
}

func (h *DirectoryHandler) ListSuppliers(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	page, err := h.Dir.ListSuppliers(ctx, directoryQuery(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *DirectoryHandler) ListVenues(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	page, err := h.Dir.ListVenues(ctx, directoryQuery(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *DirectoryHandler) ListPlanners(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	page, err := h.Dir.ListPlanners(ctx, directoryQuery(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *DirectoryHandler) GetSupplier(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.Dir.Supplier(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *DirectoryHandler) GetVenue(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	v, err := h.Dir.Venue(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *DirectoryHandler) MySuppliers(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	items, err := h.Dir.MySuppliers(ctx, currentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

func (h *DirectoryHandler) MyVenues(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	items, err := h.Dir.MyVenues(ctx, currentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

func (h *DirectoryHandler) CreateSupplier(c echo.Context) error {
	var in service.SupplierInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.Dir.CreateSupplier(ctx, currentUser(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, s)
}

func (h *DirectoryHandler) UpdateSupplier(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var in service.SupplierInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	s, err := h.Dir.UpdateSupplier(ctx, currentUser(c), id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *DirectoryHandler) DeleteSupplier(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Dir.DeleteSupplier(ctx, currentUser(c), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *DirectoryHandler) CreateVenue(c echo.Context) error {
	var in service.VenueInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	v, err := h.Dir.CreateVenue(ctx, currentUser(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, v)
}

func (h *DirectoryHandler) UpdateVenue(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var in service.VenueInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	v, err := h.Dir.UpdateVenue(ctx, currentUser(c), id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *DirectoryHandler) DeleteVenue(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Dir.DeleteVenue(ctx, currentUser(c), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AddGalleryImage returns the upload handler for one resource kind.
func (h *DirectoryHandler) AddGalleryImage(kind model.ResourceKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := idParam(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}
		u, done, err := upload(c)
		if err != nil {
			return badRequest(c, "file is required")
		}
		defer done()
		ctx, cancel := reqCtx(c)
		defer cancel()

		img, err := h.Dir.AddGalleryImage(ctx, currentUser(c), kind, id, u)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(http.StatusCreated, img)
	}
}

func (h *DirectoryHandler) DeleteGalleryImage(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Dir.DeleteGalleryImage(ctx, currentUser(c), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
