package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-platform/internal/utils"
)

// JWTAuth validates a Bearer access token and stores the subject and role
// in the context under "user_id" (uint64) and "role" (string).
func JWTAuth(secret string) echo.MiddlewareFunc {
	return authMiddleware(secret, false, true)
}

// QueryTokenAuth is JWTAuth that also accepts ?access_token=.  Browsers
// cannot set headers on a websocket upgrade, so only the realtime route
// uses it.
func QueryTokenAuth(secret string) echo.MiddlewareFunc {
	return authMiddleware(secret, true, true)
}

// OptionalAuth sets the identity when a valid token is present and lets
// anonymous requests through.  An invalid token is still rejected.
func OptionalAuth(secret string) echo.MiddlewareFunc {
	return authMiddleware(secret, false, false)
}

func authMiddleware(secret string, allowQuery, required bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearer(c.Request())
			if raw == "" && allowQuery {
				raw = c.QueryParam("access_token")
			}
			if raw == "" {
				if !required {
					return next(c)
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			uid, role, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(ctxUserID, uid)
			c.Set(ctxRole, role)
			return next(c)
		}
	}
}

func bearer(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}
