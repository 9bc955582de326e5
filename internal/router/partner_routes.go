package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-platform/internal/handler"
	"github.com/iliyamo/event-platform/internal/middleware"
	"github.com/iliyamo/event-platform/internal/model"
)

// RegisterPartners registers the onboarding wizard for applicants and the
// review queue for admins.
func RegisterPartners(e *echo.Echo, h *handler.PartnerHandler, gd Guards) {
	g := e.Group("/v1/partner", gd.auth())
	g.GET("/application", h.Application)
	g.PUT("/application/business", h.SaveBusiness)
	g.PUT("/application/contact", h.SaveContact)
	g.POST("/application/documents", h.AddDocument)
	g.DELETE("/application/documents/:id", h.DeleteDocument)
	g.POST("/application/submit", h.Submit)
	// applicant or admin, decided by the service
	g.GET("/documents/:id", h.Document)

	admin := e.Group("/v1/admin", gd.auth(), middleware.RequireRole(model.RoleAdmin))
	admin.GET("/partners", h.List)
	admin.POST("/partners/:id/review", h.Review)
}
