package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// healthChecker probes one dependency.
type healthChecker func(ctx context.Context) error

type healthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// healthService answers the liveness and readiness probes. Liveness is
// unconditional; readiness runs the registered dependency checks.
type healthService struct {
	checks map[string]healthChecker
}

func newHealthService() *healthService {
	return &healthService{checks: make(map[string]healthChecker)}
}

func (h *healthService) register(name string, check healthChecker) {
	h.checks[name] = check
}

func (h *healthService) livenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthStatus{Status: "ok"})
}

func (h *healthService) readinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := healthStatus{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	code := http.StatusOK
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status.Status = "degraded"
			status.Checks[name] = err.Error()
			code = http.StatusServiceUnavailable
			continue
		}
		status.Checks[name] = "ok"
	}

	writeJSON(w, code, status)
}

func databaseChecker(pool *pgxpool.Pool) healthChecker {
	return func(ctx context.Context) error {
		return pool.Ping(ctx)
	}
}

func redisChecker(client *redis.Client) healthChecker {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
