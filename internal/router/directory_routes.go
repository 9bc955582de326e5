package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-platform/internal/handler"
	"github.com/iliyamo/event-platform/internal/middleware"
	"github.com/iliyamo/event-platform/internal/model"
)

// RegisterDirectory registers the supplier, venue and planner listings and
// the owner endpoints that edit them.
func RegisterDirectory(e *echo.Echo, h *handler.DirectoryHandler, b *handler.BookingHandler, gd Guards) {
	cache := gd.cache()
	e.GET("/v1/suppliers", h.ListSuppliers, cache)
	e.GET("/v1/suppliers/:id", h.GetSupplier, cache)
	e.GET("/v1/venues", h.ListVenues, cache)
	e.GET("/v1/venues/:id", h.GetVenue, cache)
	e.GET("/v1/planners", h.ListPlanners, cache)

	supplier := []echo.MiddlewareFunc{gd.auth(), middleware.RequireRole(model.RoleSupplier)}
	e.POST("/v1/suppliers", h.CreateSupplier, supplier...)
	e.PUT("/v1/suppliers/:id", h.UpdateSupplier, supplier...)
	e.DELETE("/v1/suppliers/:id", h.DeleteSupplier, supplier...)
	e.POST("/v1/suppliers/:id/gallery", h.AddGalleryImage(model.KindSupplier), supplier...)
	e.GET("/v1/suppliers/:id/bookings", b.ForResource(model.KindSupplier), supplier...)

	venue := []echo.MiddlewareFunc{gd.auth(), middleware.RequireRole(model.RoleVenueOwner)}
	e.POST("/v1/venues", h.CreateVenue, venue...)
	e.PUT("/v1/venues/:id", h.UpdateVenue, venue...)
	e.DELETE("/v1/venues/:id", h.DeleteVenue, venue...)
	e.POST("/v1/venues/:id/gallery", h.AddGalleryImage(model.KindVenue), venue...)
	e.GET("/v1/venues/:id/bookings", b.ForResource(model.KindVenue), venue...)

	// ownership is checked per image by the service
	e.DELETE("/v1/gallery/:id", h.DeleteGalleryImage, gd.auth(), middleware.RequireRole(model.RoleSupplier, model.RoleVenueOwner))

	my := e.Group("/v1/my", gd.auth())
	my.GET("/suppliers", h.MySuppliers, middleware.RequireRole(model.RoleSupplier))
	my.GET("/venues", h.MyVenues, middleware.RequireRole(model.RoleVenueOwner))
}
