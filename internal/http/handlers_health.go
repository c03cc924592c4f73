package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) error

// HealthHandlers serves liveness and readiness probes.
type HealthHandlers struct {
	// Checks run on readiness, keyed by dependency name.
	Checks  map[string]Check
	Timeout time.Duration
	Logger  *slog.Logger
}

// Live always answers ok while the process serves HTTP.
// GET /healthz.
func (h *HealthHandlers) Live(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready runs every dependency check and reports 503 if any fails.
// GET /readyz.
func (h *HealthHandlers) Ready(w http.ResponseWriter, r *http.Request) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		results = make(map[string]string, len(h.Checks))
		g       errgroup.Group
	)
	for name, check := range h.Checks {
		g.Go(func() error {
			err := check(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				results[name] = "unavailable"
				if h.Logger != nil {
					h.Logger.WarnContext(ctx, "readiness check failed", "dependency", name, "error", err)
				}
				return err
			}
			results[name] = "ok"
			return nil
		})
	}

	status := http.StatusOK
	if err := g.Wait(); err != nil {
		status = http.StatusServiceUnavailable
	}
	WriteJSON(w, status, map[string]any{"status": http.StatusText(status), "checks": results})
}
