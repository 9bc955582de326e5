package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-platform/internal/config"
	"github.com/iliyamo/event-platform/internal/utils"
)

const secret = "test-secret"

func whoami(c echo.Context) error {
	id, ok := UserID(c)
	return c.JSON(http.StatusOK, echo.Map{"id": id, "ok": ok, "role": Role(c)})
}

func token(t *testing.T, id uint64, role string) string {
	t.Helper()
	at, err := utils.NewAccessToken(secret, id, role, 15)
	require.NoError(t, err)
	return at.Token
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoami, JWTAuth(secret))

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, 7, "PLANNER"))
	rec = serve(e, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":7,"ok":true,"role":"PLANNER"}`, rec.Body.String())

	// query tokens are only honoured by QueryTokenAuth
	rec = serve(e, httptest.NewRequest(http.MethodGet, "/me?access_token="+token(t, 7, "PLANNER"), nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestQueryTokenAuth(t *testing.T) {
	e := echo.New()
	e.GET("/ws", whoami, QueryTokenAuth(secret))

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/ws?access_token="+token(t, 3, "ATTENDEE"), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":3,"ok":true,"role":"ATTENDEE"}`, rec.Body.String())
}

func TestOptionalAuth(t *testing.T) {
	e := echo.New()
	e.GET("/events/:id", whoami, OptionalAuth(secret))

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/events/1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":0,"ok":false,"role":""}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/events/1", nil)
	req.Header.Set("Authorization", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, serve(e, req).Code)
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	e.GET("/admin", whoami, JWTAuth(secret), RequireRole("ADMIN"))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, 1, "PLANNER"))
	assert.Equal(t, http.StatusForbidden, serve(e, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, 1, "ADMIN"))
	assert.Equal(t, http.StatusOK, serve(e, req).Code)
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/bookings", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/bookings")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_user"}
	assert.Equal(t, "rl:ip:192.0.2.1:user:guest", buildRateKey(cfg, c))

	c.Set(ctxUserID, uint64(9))
	cfg.KeyStrategy = "user_route"
	assert.Equal(t, "rl:user:9:route:POST /v1/bookings", buildRateKey(cfg, c))
	cfg.KeyStrategy = ""
	assert.Equal(t, "rl:ip:192.0.2.1:user:9:route:POST /v1/bookings", buildRateKey(cfg, c))
}

func rateCfg() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       5,
		RefillTokens:   1,
		RefillInterval: time.Second,
		TTL:            time.Minute,
		KeyStrategy:    "ip",
		Prefix:         "rl",
	}
}

func withClock(t *testing.T, at time.Time) {
	t.Helper()
	prev := clock
	clock = func() time.Time { return at }
	t.Cleanup(func() { clock = prev })
}

func expectLimiter(mock redismock.ClientMock, cfg config.RateLimitConfig, at time.Time) *redismock.ExpectedCmd {
	return mock.ExpectEvalSha(limiterScript.Hash(), []string{"rl:ip:192.0.2.1"},
		at.UnixMilli(), cfg.Capacity, cfg.RefillTokens, cfg.RefillInterval.Milliseconds(), int64(cfg.TTL/time.Second))
}

func TestTokenBucketAllows(t *testing.T) {
	at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	withClock(t, at)
	rdb, mock := redismock.NewClientMock()
	cfg := rateCfg()
	expectLimiter(mock, cfg, at).SetVal([]interface{}{int64(1), int64(4), int64(0)})

	e := echo.New()
	e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, rdb, zerolog.Nop()))
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	rec := serve(e, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenBucketBlocks(t *testing.T) {
	at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	withClock(t, at)
	rdb, mock := redismock.NewClientMock()
	cfg := rateCfg()
	expectLimiter(mock, cfg, at).SetVal([]interface{}{int64(0), int64(0), int64(1500)})

	called := false
	e := echo.New()
	e.GET("/ping", func(c echo.Context) error { called = true; return nil }, NewTokenBucket(cfg, rdb, zerolog.Nop()))
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	rec := serve(e, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"too_many_requests","message":"rate limit exceeded","retry_after":2}`, rec.Body.String())
}

func TestTokenBucketFailsOpen(t *testing.T) {
	at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	withClock(t, at)
	rdb, mock := redismock.NewClientMock()
	cfg := rateCfg()
	expectLimiter(mock, cfg, at).SetErr(errors.New("connection refused"))

	e := echo.New()
	e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, rdb, zerolog.Nop()))
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, http.StatusNoContent, serve(e, req).Code)
}

func TestTokenBucketDisabled(t *testing.T) {
	cfg := rateCfg()
	cfg.Enabled = false
	e := echo.New()
	e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, NewTokenBucket(cfg, nil, zerolog.Nop()))
	rec := serve(e, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func cacheCfg() config.CacheConfig {
	return config.CacheConfig{
		Enabled:     true,
		Methods:     map[string]bool{http.MethodGet: true},
		TTL:         30 * time.Second,
		KeyStrategy: "route_query",
		Prefix:      "cache",
	}
}

func venuesKey(cfg config.CacheConfig, target string) string {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
	c.SetPath("/v1/venues")
	return cacheKeyFrom(cfg, c)
}

func TestCacheKeyVariesByQuery(t *testing.T) {
	cfg := cacheCfg()
	a := venuesKey(cfg, "/v1/venues?city=Oslo")
	b := venuesKey(cfg, "/v1/venues?city=Bergen")
	assert.NotEqual(t, a, b)
	assert.Regexp(t, `^cache:[0-9a-f]{40}$`, a)

	cfg.KeyStrategy = "route"
	assert.Equal(t, venuesKey(cfg, "/v1/venues?city=Oslo"), venuesKey(cfg, "/v1/venues?city=Bergen"))
}

func TestRedisCacheMissThenStore(t *testing.T) {
	cfg := cacheCfg()
	key := venuesKey(cfg, "/v1/venues?city=Oslo")
	body := []byte(`{"items":[]}`)
	payload, err := encodePayload(http.StatusOK, http.Header{
		"Content-Type": {"application/json"},
		"X-Cache":      {"MISS"},
	}, body)
	require.NoError(t, err)

	rdb, mock := redismock.NewClientMock()
	mock.ExpectGet(key).RedisNil()
	mock.ExpectSetEx(key, payload, cfg.TTL).SetVal("OK")

	e := echo.New()
	e.GET("/v1/venues", func(c echo.Context) error {
		return c.Blob(http.StatusOK, "application/json", body)
	}, NewRedisCache(cfg, rdb, zerolog.Nop()))

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/v1/venues?city=Oslo", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, string(body), rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheHit(t *testing.T) {
	cfg := cacheCfg()
	key := venuesKey(cfg, "/v1/venues?city=Oslo")
	payload, err := encodePayload(http.StatusOK, http.Header{"Content-Type": {"application/json"}}, []byte(`{"items":[1]}`))
	require.NoError(t, err)

	rdb, mock := redismock.NewClientMock()
	mock.ExpectGet(key).SetVal(string(payload))

	calls := 0
	e := echo.New()
	e.GET("/v1/venues", func(c echo.Context) error {
		calls++
		return c.NoContent(http.StatusOK)
	}, NewRedisCache(cfg, rdb, zerolog.Nop()))

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/v1/venues?city=Oslo", nil))
	assert.Equal(t, 0, calls)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, `{"items":[1]}`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheSkipsAuthenticated(t *testing.T) {
	rdb, mock := redismock.NewClientMock()

	e := echo.New()
	e.GET("/v1/venues", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewRedisCache(cacheCfg(), rdb, zerolog.Nop()))
	req := httptest.NewRequest(http.MethodGet, "/v1/venues", nil)
	req.Header.Set("Authorization", "Bearer x")
	rec := serve(e, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPayloadRejectsTruncated(t *testing.T) {
	_, _, _, ok := decodePayload([]byte{0, 0, 0, 200})
	assert.False(t, ok)
	_, _, _, ok = decodePayload([]byte{0, 0, 0, 200, 0, 0, 0, 50, '{'})
	assert.False(t, ok)
}
