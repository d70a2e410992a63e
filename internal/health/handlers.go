// Package health serves the liveness and readiness probes. Liveness is a
// constant; readiness pings Postgres and Redis with their own timeouts and
// reports per-dependency detail.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

// Checker probes the service's hard dependencies.
type Checker interface {
	PingDB(ctx context.Context, timeout time.Duration) error
	PingRedis(ctx context.Context, timeout time.Duration) error
}

// Readiness is the /health/ready response body.
type Readiness struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Handler exposes the probe endpoints.
type Handler struct {
	Checker      Checker
	DBTimeout    time.Duration
	RedisTimeout time.Duration
}

// Live answers as long as the process can serve HTTP at all.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready probes every dependency and answers 503 as soon as one is down, so
// the orchestrator stops routing traffic here.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.Checker == nil {
		http.Error(w, "dependencies unavailable", http.StatusServiceUnavailable)
		return
	}
	ctx := r.Context()
	body := Readiness{
		Status: StatusOK,
		Checks: map[string]string{
			"db":    probe(func() error { return h.Checker.PingDB(ctx, orDefault(h.DBTimeout, 500*time.Millisecond)) }),
			"redis": probe(func() error { return h.Checker.PingRedis(ctx, orDefault(h.RedisTimeout, 300*time.Millisecond)) }),
		},
	}

	code := http.StatusOK
	for _, status := range body.Checks {
		if status != StatusOK {
			body.Status = StatusDegraded
			code = http.StatusServiceUnavailable
			break
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func probe(ping func() error) string {
	if err := ping(); err != nil {
		return err.Error()
	}
	return StatusOK
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
