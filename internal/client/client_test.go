package client

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-platform/internal/model"
)

// fakeServer keeps an inbox in memory and fails PATCH when failPatch is
// set.
type fakeServer struct {
	mu        sync.Mutex
	items     []*model.Notification
	failPatch bool
	authSeen  string
	onPatch   func()
}

func (s *fakeServer) start(t *testing.T) *httptest.Server {
	e := echo.New()
	e.POST("/v1/auth/login", func(c echo.Context) error {
		var req struct{ Email, Password string }
		_ = c.Bind(&req)
		if req.Password != "secret123" {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusOK, echo.Map{
			"user":    echo.Map{"id": 1, "email": req.Email, "role": "PLANNER"},
			"access":  echo.Map{"token": "tok-1", "expires": "2026-05-04T10:15:00Z"},
			"refresh": echo.Map{"token": "ref-1", "expires": "2026-06-04T10:00:00Z"},
		})
	})
	e.GET("/v1/notifications", func(c echo.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.authSeen = c.Request().Header.Get("Authorization")
		return c.JSON(http.StatusOK, echo.Map{"items": s.items})
	})
	e.PATCH("/v1/notifications/:id", func(c echo.Context) error {
		if s.onPatch != nil {
			s.onPatch()
		}
		if s.failPatch {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
		}
		id, _ := strconv.ParseUint(c.Param("id"), 10, 64)
		var req struct {
			IsRead bool `json:"is_read"`
		}
		_ = c.Bind(&req)
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, n := range s.items {
			if n.ID == id {
				n.IsRead = req.IsRead
				return c.JSON(http.StatusOK, n)
			}
		}
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	})
	e.GET("/v1/notifications/unread-count", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"unread_count": 3})
	})
	e.GET("/v1/events/:id/survey/export.csv", func(c echo.Context) error {
		if c.Param("id") != "7" {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		return c.Blob(http.StatusOK, "text/csv", []byte("id,event_id\n1,7\n"))
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func seeded() *fakeServer {
	return &fakeServer{items: []*model.Notification{
		{ID: 1, UserID: 1, Title: "a"},
		{ID: 2, UserID: 1, Title: "b", IsRead: true},
	}}
}

func TestLoginKeepsToken(t *testing.T) {
	fs := seeded()
	c := New(fs.start(t).URL + "/")
	ctx := context.Background()

	_, err := c.Login(ctx, "p@x.io", "wrong")
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.Contains(t, err.Error(), "invalid credentials")

	s, err := c.Login(ctx, "p@x.io", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", s.Access.Token)
	assert.Equal(t, "PLANNER", s.User.Role)

	_, err = c.Notifications(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", fs.authSeen)
}

func TestUnreadCountAndExport(t *testing.T) {
	c := New(seeded().start(t).URL)
	ctx := context.Background()

	n, err := c.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	var buf bytes.Buffer
	require.NoError(t, c.ExportSurveyCSV(ctx, 7, &buf))
	assert.Equal(t, "id,event_id\n1,7\n", buf.String())

	err = c.ExportSurveyCSV(ctx, 8, &buf)
	assert.True(t, IsStatus(err, http.StatusForbidden))
}

func TestInboxToggleIsOptimistic(t *testing.T) {
	fs := seeded()
	inbox := NewInbox(New(fs.start(t).URL))
	ctx := context.Background()
	require.NoError(t, inbox.Refresh(ctx))
	assert.Equal(t, 1, inbox.Unread())

	var seenDuringCall bool
	fs.onPatch = func() { seenDuringCall = inbox.Items()[0].IsRead }

	require.NoError(t, inbox.Toggle(ctx, 1))
	assert.True(t, seenDuringCall, "local state flips before the server answers")
	assert.True(t, inbox.Items()[0].IsRead)
	assert.Equal(t, 0, inbox.Unread())
}

func TestInboxToggleRevertsOnFailure(t *testing.T) {
	fs := seeded()
	fs.failPatch = true
	inbox := NewInbox(New(fs.start(t).URL))
	ctx := context.Background()
	require.NoError(t, inbox.Refresh(ctx))

	var seenDuringCall bool
	fs.onPatch = func() { seenDuringCall = inbox.Items()[1].IsRead }

	err := inbox.Toggle(ctx, 2)
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusInternalServerError))
	assert.False(t, seenDuringCall)
	assert.True(t, inbox.Items()[1].IsRead, "refetch restores the server state")
}

func TestInboxToggleUnknown(t *testing.T) {
	inbox := NewInbox(New(seeded().start(t).URL))
	assert.ErrorIs(t, inbox.Toggle(context.Background(), 42), ErrUnknownNotification)
}

// offlineAPI serves one listing and then loses the connection.
type offlineAPI struct {
	listed bool
}

var errOffline = errors.New("connection refused")

func (a *offlineAPI) Notifications(context.Context, bool) ([]*model.Notification, error) {
	if a.listed {
		return nil, errOffline
	}
	a.listed = true
	return []*model.Notification{{ID: 1, Title: "a"}, {ID: 2, Title: "b", IsRead: true}}, nil
}

func (a *offlineAPI) SetRead(context.Context, uint64, bool) (*model.Notification, error) {
	return nil, errOffline
}

func TestInboxToggleUndoneWhenRefetchFails(t *testing.T) {
	inbox := NewInbox(&offlineAPI{})
	ctx := context.Background()
	require.NoError(t, inbox.Refresh(ctx))

	err := inbox.Toggle(ctx, 2)
	require.ErrorIs(t, err, errOffline)
	assert.True(t, inbox.Items()[1].IsRead)

	require.Error(t, inbox.Toggle(ctx, 1))
	assert.False(t, inbox.Items()[0].IsRead)
	assert.Equal(t, 1, inbox.Unread())
}
