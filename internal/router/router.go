// Package router wires handlers to paths.  Each Register* function owns
// one area of the API; main calls all of them.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-platform/internal/handler"
	"github.com/iliyamo/event-platform/internal/metrics"
	"github.com/iliyamo/event-platform/internal/middleware"
)

// Guards bundles the middleware shared by the route groups.
type Guards struct {
	JWTSecret string
	// Cache wraps public directory reads.
	Cache echo.MiddlewareFunc
	// AuthLimit is the tighter rate limit of the credential endpoints.
	AuthLimit echo.MiddlewareFunc
}

func (g Guards) auth() echo.MiddlewareFunc     { return middleware.JWTAuth(g.JWTSecret) }
func (g Guards) optional() echo.MiddlewareFunc { return middleware.OptionalAuth(g.JWTSecret) }

func (g Guards) cache() echo.MiddlewareFunc {
	if g.Cache == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return g.Cache
}

func (g Guards) authLimit() echo.MiddlewareFunc {
	if g.AuthLimit == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return g.AuthLimit
}

// RegisterRoutes registers the probes, metrics and public file serving.
func RegisterRoutes(e *echo.Echo, db handler.Pinger, files *handler.StorageHandler, withMetrics bool) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
	if withMetrics {
		e.GET("/metrics", metrics.Handler())
	}
	e.GET("/storage/*", files.Serve)
}

// RegisterAuth registers sign-up, sign-in and the session endpoints.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, p *handler.ProfileHandler, gd Guards) {
	g := e.Group("/v1/auth", gd.authLimit())
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// Bearer is optional: without a refresh token logout ends every session.
	g.POST("/logout", a.Logout, gd.optional())
	g.POST("/password/reset", a.RequestPasswordReset)
	g.POST("/password/update", a.UpdatePassword, gd.optional())

	e.GET("/v1/me", a.Me, gd.auth())
	e.GET("/v1/profiles/:id", p.Get)
	e.PUT("/v1/profile", p.Update, gd.auth())
	e.POST("/v1/profile/avatar", p.UploadAvatar, gd.auth())
}
