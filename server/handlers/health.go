package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/SaShakib/CalendarAPIRrule/server/storage"
)

// handleHealth handles GET /health. With ?verbose=1 the store is pinged.
func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	body := map[string]string{"status": "ok"}
	if req.URL.Query().Get("verbose") == "" {
		writeJSON(w, http.StatusOK, body)
		return
	}

	checker, ok := r.service.Store().(storage.HealthChecker)
	if !ok {
		body["storage"] = "unknown"
		writeJSON(w, http.StatusOK, body)
		return
	}

	ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
	defer cancel()
	if err := checker.Ping(ctx); err != nil {
		r.logger.Error("storage health check failed", "error", err)
		body["status"] = "degraded"
		body["storage"] = "unreachable"
		writeJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	body["storage"] = "ok"
	writeJSON(w, http.StatusOK, body)
}
