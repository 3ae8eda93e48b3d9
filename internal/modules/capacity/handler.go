package capacity

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/nightjarhq/nightjar-backend/internal/actor"
)

// Handler exposes producer capacity HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/capacity", func(r chi.Router) {
		r.Get("/", h.listAll)                                    // GET    /api/v1/capacity
		r.Get("/{producer_id}", h.get)                           // GET    /api/v1/capacity/{producer_id}
		r.Put("/{producer_id}/items/{item_id}", h.declare)       // PUT    /api/v1/capacity/{producer_id}/items/{item_id}
		r.Delete("/{producer_id}/items/{item_id}", h.remove)     // DELETE /api/v1/capacity/{producer_id}/items/{item_id}
	})
}

// selfOnly enforces the ownership rule: capacity is mutated only by the
// producer it belongs to.
func selfOnly(r *http.Request, w http.ResponseWriter) (actor.Actor, bool) {
	a, ok := actor.FromContext(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return actor.Actor{}, false
	}
	if !a.IsEditor() {
		respond(w, http.StatusForbidden, map[string]string{"error": "only producers declare capacity"})
		return actor.Actor{}, false
	}
	if a.ID != chi.URLParam(r, "producer_id") {
		respond(w, http.StatusForbidden, map[string]string{"error": "cannot declare capacity for another producer"})
		return actor.Actor{}, false
	}
	return a, true
}

func (h *Handler) declare(w http.ResponseWriter, r *http.Request) {
	a, ok := selfOnly(r, w)
	if !ok {
		return
	}
	var req DeclareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	pc, err := h.service.Declare(r.Context(), a.ID, chi.URLParam(r, "item_id"), req)
	if err != nil {
		code := http.StatusInternalServerError
		if strings.Contains(err.Error(), "cannot be negative") || strings.Contains(err.Error(), "must have") {
			code = http.StatusBadRequest
		}
		respond(w, code, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, pc)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	a, ok := selfOnly(r, w)
	if !ok {
		return
	}
	pc, err := h.service.Remove(r.Context(), a.ID, chi.URLParam(r, "item_id"))
	if err != nil {
		code := http.StatusInternalServerError
		if strings.Contains(err.Error(), "not found") || strings.Contains(err.Error(), "no declaration") {
			code = http.StatusNotFound
		}
		respond(w, code, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, pc)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	pc, err := h.service.Get(r.Context(), chi.URLParam(r, "producer_id"))
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, pc)
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.ListAll(r.Context())
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, all)
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
