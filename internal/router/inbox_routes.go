package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-platform/internal/handler"
	"github.com/iliyamo/event-platform/internal/middleware"
)

// RegisterInbox registers notifications and the realtime stream.
func RegisterInbox(e *echo.Echo, n *handler.NotificationHandler, rt *handler.RealtimeHandler, gd Guards) {
	g := e.Group("/v1/notifications", gd.auth())
	g.GET("", n.List)
	g.GET("/unread-count", n.UnreadCount)
	g.POST("/read-all", n.MarkAllRead)
	g.PATCH("/:id", n.SetRead)
	g.DELETE("/:id", n.Delete)

	e.GET("/v1/realtime", rt.Connect, middleware.QueryTokenAuth(gd.JWTSecret))
}
