package main

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/proctor-live/internal/model"
	"github.com/rickgao/proctor-live/internal/router"
)

// healthSource is the connection state reported by /health.
type healthSource interface {
	Status() model.Status
	Stats() router.RouterStats
}

// newHTTPHandler serves /health and the Prometheus metrics endpoint.
func newHTTPHandler(src healthSource, gatherer prometheus.Gatherer, metricsPath string) http.Handler {
	mux := http.NewServeMux()

	mux.Handle(metricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := src.Status()
		stats := src.Stats()

		health := struct {
			Status     string                 `json:"status"`
			Components map[string]interface{} `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]interface{}),
		}

		health.Components["connection"] = status
		health.Components["router"] = map[string]int64{
			"frames_received": stats.FramesReceived,
			"parse_errors":    stats.ParseErrors,
			"handler_errors":  stats.HandlerErrors,
		}

		switch status.State {
		case model.StateConnected:
		case model.StateConnecting:
			health.Status = "degraded"
		default:
			health.Status = "unhealthy"
		}

		// Set response
		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	return mux
}
