package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-platform/internal/handler"
	"github.com/iliyamo/event-platform/internal/middleware"
	"github.com/iliyamo/event-platform/internal/model"
)

// RegisterBookings registers bookings and availability calendars.  Any
// signed-in user may book; the owner endpoints check ownership in the
// service.
func RegisterBookings(e *echo.Echo, b *handler.BookingHandler, cal *handler.CalendarHandler, gd Guards) {
	auth := gd.auth()
	e.POST("/v1/bookings", b.Create, auth)
	e.GET("/v1/bookings", b.Mine, auth)
	e.GET("/v1/bookings/:kind/:id", b.Get, auth)
	e.POST("/v1/bookings/:kind/:id/confirm", b.Confirm, auth)
	e.POST("/v1/bookings/:kind/:id/decline", b.Decline, auth)
	e.POST("/v1/bookings/:kind/:id/cancel", b.Cancel, auth)

	// :id may carry a ".ics" suffix
	e.GET("/v1/calendar/:kind/:id", cal.Show)

	owner := []echo.MiddlewareFunc{auth, middleware.RequireRole(model.RoleVenueOwner, model.RoleSupplier)}
	e.GET("/v1/calendar/:kind/:id/blocks", cal.Blocks, owner...)
	e.POST("/v1/calendar/:kind/:id/blocks", cal.CreateBlock, owner...)
	e.DELETE("/v1/blocks/:id", cal.DeleteBlock, owner...)
}
