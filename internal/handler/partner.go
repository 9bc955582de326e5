package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-platform/internal/middleware"
	"github.com/iliyamo/event-platform/internal/model"
	"github.com/iliyamo/event-platform/internal/service"
)

// PartnerAPI is the part of service.PartnerService used over HTTP.
type PartnerAPI interface {
	Application(ctx context.Context, userID uint64) (*model.Partner, error)
	SaveBusiness(ctx context.Context, userID uint64, in service.BusinessInput) (*model.Partner, error)
	SaveContact(ctx context.Context, userID uint64, in service.ContactInput) (*model.Partner, error)
	AddDocument(ctx context.Context, userID uint64, kind string, u service.Upload) (*model.PartnerDocument, error)
	DeleteDocument(ctx context.Context, userID, docID uint64) error
	OpenDocument(ctx context.Context, userID uint64, isAdmin bool, docID uint64) (*model.PartnerDocument, io.ReadCloser, error)
	Submit(ctx context.Context, userID uint64) (*model.Partner, error)
	List(ctx context.Context, status string) ([]*model.Partner, error)
	Review(ctx context.Context, id uint64, approve bool, note string) (*model.Partner, error)
}

// PartnerHandler serves the onboarding wizard and its admin review.
type PartnerHandler struct {
	Partners PartnerAPI
}

func NewPartnerHandler(p PartnerAPI) *PartnerHandler {
	return &PartnerHandler{Partners: p}
}

type reviewReq struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note"`
}

func (h *PartnerHandler) Application(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Partners.Application(ctx, currentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *PartnerHandler) SaveBusiness(c echo.Context) error {
	var in service.BusinessInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Partners.SaveBusiness(ctx, currentUser(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *PartnerHandler) SaveContact(c echo.Context) error {
	var in service.ContactInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Partners.SaveContact(ctx, currentUser(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// AddDocument takes multipart "file" and "kind".
func (h *PartnerHandler) AddDocument(c echo.Context) error {
	u, done, err := upload(c)
	if err != nil {
		return badRequest(c, "file is required")
	}
	defer done()
	ctx, cancel := reqCtx(c)
	defer cancel()

	d, err := h.Partners.AddDocument(ctx, currentUser(c), c.FormValue("kind"), u)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *PartnerHandler) DeleteDocument(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Partners.DeleteDocument(ctx, currentUser(c), id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Document streams a private document to its applicant or an admin.
func (h *PartnerHandler) Document(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	d, body, err := h.Partners.OpenDocument(ctx, currentUser(c), middleware.Role(c) == model.RoleAdmin, id)
	if err != nil {
		return respondError(c, err)
	}
	defer body.Close()
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", d.FileName))
	return c.Stream(http.StatusOK, d.ContentType, body)
}

func (h *PartnerHandler) Submit(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Partners.Submit(ctx, currentUser(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// List is the admin queue, ?status= defaults to SUBMITTED.
func (h *PartnerHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	items, err := h.Partners.List(ctx, c.QueryParam("status"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

func (h *PartnerHandler) Review(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	p, err := h.Partners.Review(ctx, id, req.Approve, req.Note)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}
