package gateway

import (
	"net/http"
	"time"

	"github.com/flemzord/mnemo/internal/embedding"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status    string            `json:"status"` // "ok" or "degraded"
	Uptime    int64             `json:"uptime_seconds"`
	Embedding *embedding.Status `json:"embedding,omitempty"`
}

// handleHealth returns 200 while the embedding circuit is closed and 503
// while it is open.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{Status: "ok"}
		if !g.startedAt.IsZero() {
			resp.Uptime = int64(time.Since(g.startedAt) / time.Second)
		}

		if g.embedding != nil {
			st := g.embedding.Status()
			resp.Embedding = &st
			if st.CircuitOpen {
				resp.Status = "degraded"
			}
		}

		status := http.StatusOK
		if resp.Status == "degraded" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}
