package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-platform/internal/handler"
	"github.com/iliyamo/event-platform/internal/middleware"
	"github.com/iliyamo/event-platform/internal/model"
)

// RegisterEvents registers events, tickets and post-event surveys.
func RegisterEvents(e *echo.Echo, ev *handler.EventHandler, s *handler.SurveyHandler, gd Guards) {
	auth := gd.auth()
	planner := []echo.MiddlewareFunc{auth, middleware.RequireRole(model.RolePlanner)}

	e.GET("/v1/events", ev.List, gd.cache())
	e.GET("/v1/events/:id", ev.Get, gd.optional())
	e.POST("/v1/events", ev.Create, planner...)
	e.PUT("/v1/events/:id", ev.Update, planner...)
	e.DELETE("/v1/events/:id", ev.Delete, planner...)
	e.GET("/v1/my/events", ev.Mine, planner...)

	e.POST("/v1/events/:id/tickets", ev.Reserve, auth)
	e.GET("/v1/events/:id/tickets", ev.EventTickets, planner...)
	e.GET("/v1/my/tickets", ev.MyTickets, auth)
	e.DELETE("/v1/tickets/:id", ev.CancelTicket, auth)

	e.POST("/v1/events/:id/survey", s.Submit, auth)
	e.GET("/v1/events/:id/survey", s.Responses, planner...)
	e.GET("/v1/events/:id/survey/summary", s.Summary, planner...)
	e.GET("/v1/events/:id/survey/export.csv", s.Export, planner...)
}
