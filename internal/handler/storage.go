package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-platform/internal/storage"
)

// ObjectOpener reads stored objects.
type ObjectOpener interface {
	Open(ctx context.Context, bucket, path string) (io.ReadCloser, error)
}

// StorageHandler serves objects of the public buckets under /storage/*.
// Partner documents never match and answer 404.
type StorageHandler struct {
	Store ObjectOpener
}

func NewStorageHandler(s ObjectOpener) *StorageHandler {
	return &StorageHandler{Store: s}
}

func (h *StorageHandler) Serve(c echo.Context) error {
	bucket, path, ok := storage.SplitPublic(c.Param("*"))
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	rc, err := h.Store.Open(ctx, bucket, path)
	if err != nil {
		return respondError(c, err)
	}
	defer rc.Close()
	sn, err := storage.Sniff(rc)
	if err != nil {
		return respondError(c, err)
	}
	c.Response().Header().Set("Cache-Control", "public, max-age=86400")
	return c.Stream(http.StatusOK, sn.MIME, sn.Body)
}
