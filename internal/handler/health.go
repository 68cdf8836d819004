package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler provides application health check endpoints
type HealthHandler struct {
	startTime time.Time
	version   string
	store     Pinger
	timeout   time.Duration
}

// NewHealthHandler creates a new health handler. store may be nil.
func NewHealthHandler(version string, store Pinger) *HealthHandler {
	return &HealthHandler{
		startTime: time.Now(),
		version:   version,
		store:     store,
		timeout:   time.Second,
	}
}

// ReadinessHandler checks that the configuration store is reachable. The router
// still routes with default weights when it is not, so this only gates rollout.
func (h *HealthHandler) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
		"version":   h.version,
		"uptime":    time.Since(h.startTime).String(),
	}

	code := http.StatusOK
	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()

		if err := h.store.Ping(ctx); err != nil {
			code = http.StatusServiceUnavailable
			response["status"] = "not_ready"
			response["store"] = err.Error()
		} else {
			response["store"] = "ok"
		}
	}

	writeJSON(w, code, response)
}

// LivenessHandler checks if the application is alive
func (h *HealthHandler) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now().UTC(),
		"version":   h.version,
		"uptime":    time.Since(h.startTime).String(),
	})
}
