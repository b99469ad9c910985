package http

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"beadcsv/internal/infrastructure"
)

// MetricsHandler exposes the Prometheus scrape endpoint
type MetricsHandler struct {
	exporter http.Handler
}

// NewMetricsHandler serves the registry behind providers. Without
// telemetry the process-wide default registry is served.
func NewMetricsHandler(providers *infrastructure.OTelProviders) *MetricsHandler {
	h := &MetricsHandler{exporter: promhttp.Handler()}
	if providers != nil && providers.PrometheusHTTP != nil {
		h.exporter = providers.PrometheusHTTP
	}
	return h
}

// ServeHTTP handles GET /metrics
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		render.Status(r, http.StatusMethodNotAllowed)
		render.PlainText(w, r, http.StatusText(http.StatusMethodNotAllowed))
		return
	}
	h.exporter.ServeHTTP(w, r)
}
