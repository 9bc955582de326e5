package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Streamer upgrades a request to a per-user event stream.
type Streamer interface {
	Serve(w http.ResponseWriter, r *http.Request, userID uint64) error
}

type RealtimeHandler struct {
	Hub Streamer
	Log zerolog.Logger
}

func NewRealtimeHandler(hub Streamer, log zerolog.Logger) *RealtimeHandler {
	return &RealtimeHandler{Hub: hub, Log: log}
}

// Connect blocks for the lifetime of the websocket.  The upgrader has
// already answered the client when Serve fails, so the error is only
// logged.
func (h *RealtimeHandler) Connect(c echo.Context) error {
	uid := currentUser(c)
	if err := h.Hub.Serve(c.Response(), c.Request(), uid); err != nil {
		h.Log.Debug().Err(err).Uint64("user_id", uid).Msg("websocket upgrade failed")
	}
	return nil
}
