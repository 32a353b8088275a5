package gateway

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/flemzord/mnemo/internal/memory"
	"github.com/flemzord/mnemo/internal/ranking"
)

type rememberRequest struct {
	Owner    string            `json:"owner"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

type recallRequest struct {
	Owner     string   `json:"owner"`
	Query     string   `json:"query"`
	TopK      int      `json:"top_k"`
	Threshold *float64 `json:"threshold"`
}

// RecallResponse carries ranked results and their prompt-ready rendering.
type RecallResponse struct {
	Results []ranking.Scored `json:"results"`
	Context string           `json:"context"`
}

func (g *Gateway) handleRemember() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rememberRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if strings.TrimSpace(req.Content) == "" {
			writeError(w, http.StatusBadRequest, "content is required")
			return
		}

		m, err := g.memories.Remember(r.Context(), g.ownerOf(req.Owner), req.Content, req.Metadata)
		if err != nil {
			g.internalError(w, "remember", err)
			return
		}
		writeJSON(w, http.StatusCreated, m)
	}
}

func (g *Gateway) handleListMemories() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := g.memories.List(r.Context(), g.ownerOf(r.URL.Query().Get("owner")))
		if err != nil {
			g.internalError(w, "list memories", err)
			return
		}
		if list == nil {
			list = []memory.Memory{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func (g *Gateway) handleRecall() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req recallRequest
		if err := decodeBody(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if strings.TrimSpace(req.Query) == "" {
			writeError(w, http.StatusBadRequest, "query is required")
			return
		}

		var opts []memory.RecallOption
		if req.TopK > 0 {
			opts = append(opts, memory.WithTopK(req.TopK))
		}
		if req.Threshold != nil {
			opts = append(opts, memory.WithThreshold(*req.Threshold))
		}

		results := g.memories.Recall(r.Context(), g.ownerOf(req.Owner), req.Query, opts...)
		if results == nil {
			results = []ranking.Scored{}
		}
		writeJSON(w, http.StatusOK, RecallResponse{
			Results: results,
			Context: memory.Format(results),
		})
	}
}

func (g *Gateway) handleForget() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		found, err := g.memories.Forget(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			g.internalError(w, "forget", err)
			return
		}
		if !found {
			writeError(w, http.StatusNotFound, "memory not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (g *Gateway) handleForgetAll() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := g.memories.ForgetAll(r.Context(), g.ownerOf(r.URL.Query().Get("owner")))
		if err != nil {
			g.internalError(w, "forget all", err)
			return
		}
		writeJSON(w, http.StatusOK, countResponse{Count: n})
	}
}
