package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func apiServer(t *testing.T) *httptest.Server {
	e := echo.New()
	e.POST("/v1/auth/login", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"user":   echo.Map{"id": 5, "email": "p@x.io", "role": "PLANNER"},
			"access": echo.Map{"token": "tok-5", "expires": "2026-05-04T10:15:00Z"},
		})
	})
	e.GET("/v1/notifications", func(c echo.Context) error {
		if c.Request().Header.Get("Authorization") != "Bearer tok-5" {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
		}
		return c.JSON(http.StatusOK, echo.Map{"items": []echo.Map{
			{"id": 9, "type": "ticket_reserved", "title": "Tickets reserved", "is_read": false, "created_at": "2026-05-01T09:00:00Z"},
		}})
	})
	e.PATCH("/v1/notifications/9", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"id": 9, "type": "ticket_reserved", "title": "Tickets reserved", "is_read": true})
	})
	e.GET("/v1/events/3/survey/export.csv", func(c echo.Context) error {
		return c.Blob(http.StatusOK, "text/csv", []byte("id,rating\n1,5\n"))
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLoginThenList(t *testing.T) {
	srv := apiServer(t)
	tokenFile := filepath.Join(t.TempDir(), "nested", "token")
	common := []string{"--server", srv.URL, "--token-file", tokenFile}

	out, err := run(t, append([]string{"login", "--email", "p@x.io", "--password", "pw"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "logged in as p@x.io (PLANNER)")
	saved, err := os.ReadFile(tokenFile)
	require.NoError(t, err)
	assert.Equal(t, "tok-5\n", string(saved))

	out, err = run(t, append([]string{"notifications", "list"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Tickets reserved")
	assert.Contains(t, out, "ticket_reserved")
}

func TestToggle(t *testing.T) {
	srv := apiServer(t)
	out, err := run(t, "notifications", "toggle", "9", "--server", srv.URL, "--token", "tok-5")
	require.NoError(t, err)
	assert.Contains(t, out, "notification 9 marked read (0 unread)")
}

func TestNotLoggedIn(t *testing.T) {
	srv := apiServer(t)
	_, err := run(t, "notifications", "list", "--server", srv.URL, "--token-file", filepath.Join(t.TempDir(), "none"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")
}

func TestSurveyExportToFile(t *testing.T) {
	srv := apiServer(t)
	dst := filepath.Join(t.TempDir(), "s.csv")
	_, err := run(t, "surveys", "export", "3", "-o", dst, "--server", srv.URL, "--token", "tok-5")
	require.NoError(t, err)
	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "id,rating\n1,5\n", string(b))
}
