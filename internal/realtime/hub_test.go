package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-platform/internal/queue"
)

func dial(t *testing.T, hub *Hub, userID uint64) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, userID)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return hub.Connections(userID) > 0 }, time.Second, 10*time.Millisecond)
	return conn
}

func TestHub_DeliversNotificationEvents(t *testing.T) {
	hub := NewHub(zerolog.Nop(), nil)
	defer hub.Close()
	conn := dial(t, hub, 7)

	body, _ := json.Marshal(queue.NotificationChangedEvent{Type: "notification.changed", UserID: 7, NotificationID: 3, Action: queue.ActionCreated, UnreadCount: 1})
	require.NoError(t, hub.NotificationHandler()(context.Background(), body))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var got queue.NotificationChangedEvent
	require.NoError(t, json.Unmarshal(msg, &got))
	assert.Equal(t, uint64(3), got.NotificationID)
	assert.Equal(t, 1, got.UnreadCount)
}

func TestHub_OtherUsersGetNothing(t *testing.T) {
	hub := NewHub(zerolog.Nop(), nil)
	defer hub.Close()
	dial(t, hub, 1)

	assert.Equal(t, 0, hub.Send(2, []byte(`{}`)))
	assert.Equal(t, 1, hub.Send(1, []byte(`{}`)))
}

func TestHub_UnregistersOnClientClose(t *testing.T) {
	hub := NewHub(zerolog.Nop(), nil)
	conn := dial(t, hub, 5)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return hub.Connections(5) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_RejectsBadEvents(t *testing.T) {
	hub := NewHub(zerolog.Nop(), nil)
	h := hub.NotificationHandler()
	assert.Error(t, h(context.Background(), []byte("{")))
	assert.Error(t, h(context.Background(), []byte(`{"user_id":0}`)))
}

func TestHub_CheckOrigin(t *testing.T) {
	hub := NewHub(zerolog.Nop(), []string{"https://app.example"})
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Origin", "https://evil.example")
	assert.False(t, hub.upgrader.CheckOrigin(r))
	r.Header.Set("Origin", "https://app.example")
	assert.True(t, hub.upgrader.CheckOrigin(r))
}
