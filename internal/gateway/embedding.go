package gateway

import "net/http"

func (g *Gateway) handleEmbeddingStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, g.embedding.Status())
	}
}

// handleEmbeddingReset closes the circuit so the next embed tries the
// remote provider again.
func (g *Gateway) handleEmbeddingReset() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		g.embedding.ResetCircuit()
		g.logger.Info("embedding circuit reset via gateway")
		writeJSON(w, http.StatusOK, g.embedding.Status())
	}
}
