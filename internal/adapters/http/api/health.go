package api

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/markscard/pkg/metrics"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	metricsHandler http.Handler
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{
		metricsHandler: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
	}
}

type healthResponse struct {
	Status string `json:"status"`
}

// HandleHealth handles GET /healthz requests.
// Clients asking for application/json get a liveness document; everyone else
// gets the Prometheus exposition from the service registry.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
		return
	}
	h.metricsHandler.ServeHTTP(w, r)
}
