package api

import (
	"net/http"

	"github.com/llegomark/neko/internal/channels"
	"github.com/llegomark/neko/internal/convo"
)

type healthHandler struct {
	sessions *convo.Store
	channels *channels.Store
	queue    QueueStats
}

func (h *healthHandler) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /api/stats", h.stats)
}

// health is a liveness probe. Returns 200 OK with {"status":"ok"}.
func (h *healthHandler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// stats reports runtime counters for operators.
func (h *healthHandler) stats(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"sessions":         h.sessions.Len(),
		"allowed_channels": h.channels.Len(),
	}
	if h.queue != nil {
		resp["queue_len"] = h.queue.QueueLen()
		resp["queue_cap"] = h.queue.QueueCap()
	}
	writeJSON(w, http.StatusOK, resp)
}
