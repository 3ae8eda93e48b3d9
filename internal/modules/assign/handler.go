package assign

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/nightjarhq/nightjar-backend/internal/actor"
)

// Handler exposes the assignment engine HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/assignments", func(r chi.Router) {
		r.Post("/run", h.run)       // POST /api/v1/assignments/run
		r.Get("/preview", h.preview) // GET  /api/v1/assignments/preview
	})
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request) {
	a, ok := actor.FromContext(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}
	result, err := h.service.Run(r.Context(), a)
	if err != nil {
		code := http.StatusInternalServerError
		if strings.Contains(err.Error(), "only owners") {
			code = http.StatusForbidden
		}
		respond(w, code, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, result)
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	a, ok := actor.FromContext(r.Context())
	if !ok || !a.IsOwner() {
		respond(w, http.StatusForbidden, map[string]string{"error": "owner access required"})
		return
	}
	proposals, err := h.service.Preview(r.Context())
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, proposals)
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
