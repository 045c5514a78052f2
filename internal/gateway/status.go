package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/flemzord/tgecho/internal/metrics"
	"github.com/flemzord/tgecho/internal/probe"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Uptime  time.Duration     `json:"uptime_seconds"`
	Prefix  string            `json:"prefix"`
	Metrics *metrics.Snapshot `json:"metrics,omitempty"`
	Bots    []probe.Status    `json:"bots"`
}

// handleStatus returns an http.HandlerFunc for GET /status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			Uptime: time.Since(g.startedAt).Truncate(time.Second),
			Prefix: g.config.Prefix,
			Bots:   []probe.Status{},
		}
		if g.metrics != nil {
			snap := g.metrics.Snapshot()
			resp.Metrics = &snap
		}
		if g.health != nil {
			resp.Bots = g.health.Results()
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
