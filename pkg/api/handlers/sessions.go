package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jacobtread/rme3/pkg/adapter/blaze"
)

// SessionSource lists live Blaze sessions.
type SessionSource interface {
	Sessions() []blaze.SessionInfo
}

// SessionHandler serves /api/v1/sessions.
type SessionHandler struct {
	source SessionSource
}

func NewSessionHandler(source SessionSource) *SessionHandler {
	return &SessionHandler{source: source}
}

// List handles GET /api/v1/sessions.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions := h.source.Sessions()
	writeJSON(w, http.StatusOK, okResponse(map[string]any{
		"count":    len(sessions),
		"sessions": sessions,
	}))
}

// Get handles GET /api/v1/sessions/{id}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	for _, s := range h.source.Sessions() {
		if s.ID == id {
			writeJSON(w, http.StatusOK, okResponse(s))
			return
		}
	}
	writeJSON(w, http.StatusNotFound, errorResponse("session not found: "+id))
}
