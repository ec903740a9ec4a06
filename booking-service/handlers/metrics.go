package handlers

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewMetricsHandler serves the default Prometheus registry, which the OpenTelemetry exporter feeds
func NewMetricsHandler() http.Handler {
	return promhttp.Handler()
}
