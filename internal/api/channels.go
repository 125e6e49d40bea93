package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/llegomark/neko/internal/channels"
)

// maxChannelBody bounds the POST body size; channel IDs are tiny.
const maxChannelBody = 1 << 10

type channelHandler struct {
	store  *channels.Store
	logger *slog.Logger
}

func (h *channelHandler) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/channels", h.list)
	mux.HandleFunc("POST /api/channels", h.add)
	mux.HandleFunc("DELETE /api/channels/{id}", h.remove)
}

func (h *channelHandler) list(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"channels": h.store.List()})
}

type addChannelRequest struct {
	ChannelID string `json:"channel_id"`
}

func (h *channelHandler) add(w http.ResponseWriter, r *http.Request) {
	var req addChannelRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChannelBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "body must be JSON with a channel_id field")
		return
	}
	if req.ChannelID == "" {
		writeError(w, http.StatusBadRequest, "missing_channel_id", "channel_id is required")
		return
	}
	if !h.store.Add(req.ChannelID) {
		writeError(w, http.StatusConflict, "already_allowed", "channel is already on the allow list")
		return
	}
	h.logger.Info("channel allowed", "channel_id", req.ChannelID)
	writeJSON(w, http.StatusCreated, map[string]string{"channel_id": req.ChannelID})
}

func (h *channelHandler) remove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !h.store.Remove(id) {
		writeError(w, http.StatusNotFound, "not_allowed", "channel is not on the allow list")
		return
	}
	h.logger.Info("channel disallowed", "channel_id", id)
	w.WriteHeader(http.StatusNoContent)
}
