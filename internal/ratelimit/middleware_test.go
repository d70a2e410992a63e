package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareThrottlesWithEnvelope(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	handler := Handler{
		Limiter: Limiter{Client: client, Prefix: "rl:checkout:"},
		Config: Config{
			Key:    func(*http.Request) string { return "shop-1:10.0.0.1" },
			Window: time.Second,
			Max:    1,
		},
	}
	throttled := handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
	first := httptest.NewRecorder()
	throttled.ServeHTTP(first, req.Clone(req.Context()))
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	throttled.ServeHTTP(second, req.Clone(req.Context()))
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	require.Equal(t, "1", second.Header().Get("X-RateLimit-Limit"))
	require.NotEmpty(t, second.Header().Get("Retry-After"))
	require.Contains(t, second.Body.String(), "RATE_LIMITED")
}

func TestMiddlewareFailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })

	var got error
	handler := Handler{
		Limiter: Limiter{Client: client, Prefix: "rl:checkout:"},
		Config: Config{
			Key:    func(*http.Request) string { return "shop-1:10.0.0.1" },
			Window: time.Second,
			Max:    1,
		},
		OnError: func(err error) { got = err },
	}
	throttled := handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	throttled.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/checkout", nil))
	require.Equal(t, http.StatusOK, rr.Code, "redis outage must not block checkout")
	require.Error(t, got)
}
