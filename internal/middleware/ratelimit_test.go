package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/studio-booking/internal/config"
)

func limitedServer(mw echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.POST("/api/auth/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, mw)
	return e
}

func hit(e *echo.Echo) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func rlConfig() config.RateLimitConfig {
	return config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            2 * time.Hour,
		KeyStrategy:    "ip_route",
		Prefix:         "test:rl",
	}
}

func TestTokenBucket_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	e := limitedServer(NewTokenBucket(rlConfig(), rdb))
	assert.Equal(t, http.StatusOK, hit(e).Code)
	assert.Equal(t, http.StatusOK, hit(e).Code)

	rec := hit(e)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), `"success":false`)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Contains(t, keys[0], "test:rl:ip:10.0.0.1")
}

func TestTokenBucket_RedisErrorFailsOpen(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	mr.Close()

	e := limitedServer(NewTokenBucket(rlConfig(), rdb))
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, hit(e).Code)
	}
}

func TestTokenBucket_LocalFallback(t *testing.T) {
	e := limitedServer(NewTokenBucket(rlConfig(), nil))
	assert.Equal(t, http.StatusOK, hit(e).Code)
	assert.Equal(t, http.StatusOK, hit(e).Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(e).Code)
}

func TestTokenBucket_Disabled(t *testing.T) {
	cfg := rlConfig()
	cfg.Enabled = false
	e := limitedServer(NewTokenBucket(cfg, nil))
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, hit(e).Code)
	}
}
