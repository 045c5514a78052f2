package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/flemzord/tgecho/internal/probe"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status string         `json:"status"` // "ok" or "degraded"
	Bots   []probe.Status `json:"bots"`
}

// handleHealth returns 200 while every probed bot is up, 503 otherwise.
// Without a probe the gateway is healthy as long as it answers.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{Status: "ok", Bots: []probe.Status{}}

		if g.health != nil {
			resp.Bots = g.health.Results()
			if !g.health.Healthy() {
				resp.Status = "degraded"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if resp.Status == "degraded" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}
