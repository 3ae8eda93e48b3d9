package notify

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/nightjarhq/nightjar-backend/internal/actor"
)

// Handler exposes notification HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/notifications", func(r chi.Router) {
		r.Get("/", h.list)                // GET   /api/v1/notifications
		r.Patch("/{id}/read", h.markRead) // PATCH /api/v1/notifications/{id}/read
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	a, ok := actor.FromContext(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}
	notifications, err := h.service.ListForRecipient(r.Context(), a.ID)
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, notifications)
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	a, ok := actor.FromContext(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}
	n, err := h.service.MarkRead(r.Context(), chi.URLParam(r, "id"), a)
	if err != nil {
		code := http.StatusInternalServerError
		switch {
		case strings.Contains(err.Error(), "not found"):
			code = http.StatusNotFound
		case strings.Contains(err.Error(), "another member"):
			code = http.StatusForbidden
		}
		respond(w, code, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, n)
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
