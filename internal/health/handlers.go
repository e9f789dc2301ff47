// Package health exposes liveness and readiness probes.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Checker represents dependencies that can be probed for readiness.
type Checker interface {
	PingRedis(ctx context.Context, timeout time.Duration) error
	CatalogLoaded() bool
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checker      Checker
	RedisTimeout time.Duration

	// RedisOptional suppresses readiness failure when no Redis is
	// configured; the service degrades to uncached catalog loads.
	RedisOptional bool
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on dependency probes. The catalog does not
// gate readiness hard: it loads lazily on the first valuation, so its state
// is reported but only Redis (when required) fails the probe.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.Checker == nil {
		http.Error(w, "dependencies unavailable", http.StatusServiceUnavailable)
		return
	}
	ctx := r.Context()

	redisStatus := "ok"
	if err := h.Checker.PingRedis(ctx, h.redisTimeout()); err != nil {
		if h.RedisOptional {
			redisStatus = "disabled"
		} else {
			redisStatus = err.Error()
		}
	}
	catalogStatus := "loaded"
	if !h.Checker.CatalogLoaded() {
		catalogStatus = "pending"
	}

	status := map[string]string{
		"redis":   redisStatus,
		"catalog": catalogStatus,
	}
	w.Header().Set("Content-Type", "application/json")
	if redisStatus != "ok" && redisStatus != "disabled" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(status)
}

func (h Handler) redisTimeout() time.Duration {
	if h.RedisTimeout <= 0 {
		return 300 * time.Millisecond
	}
	return h.RedisTimeout
}
