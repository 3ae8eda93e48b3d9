package catalog

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/nightjarhq/nightjar-backend/internal/actor"
)

// Handler exposes catalog HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/catalog", func(r chi.Router) {
		r.Get("/items", h.listItems)              // GET   /api/v1/catalog/items?category=&active=
		r.Post("/items", h.addItem)               // POST  /api/v1/catalog/items
		r.Get("/items/{id}", h.getItem)           // GET   /api/v1/catalog/items/{id}
		r.Put("/items/{id}", h.updateItem)        // PUT   /api/v1/catalog/items/{id}
		r.Patch("/items/{id}/active", h.setActive) // PATCH /api/v1/catalog/items/{id}/active
	})
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	activeOnly := r.URL.Query().Get("active") != "false"
	items, err := h.service.ListItems(r.Context(), category, activeOnly)
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, items)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	a, ok := actor.FromContext(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}
	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	item, err := h.service.AddItem(r.Context(), req, a)
	if err != nil {
		respond(w, errCode(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusCreated, item)
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, item)
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	a, ok := actor.FromContext(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}
	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	item, err := h.service.UpdateItem(r.Context(), chi.URLParam(r, "id"), req, a)
	if err != nil {
		respond(w, errCode(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, item)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request) {
	a, ok := actor.FromContext(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}
	var req SetActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	item, err := h.service.SetActive(r.Context(), chi.URLParam(r, "id"), req.Active, a)
	if err != nil {
		respond(w, errCode(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, item)
}

func errCode(err error) int {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "only owners"):
		return http.StatusForbidden
	case strings.Contains(msg, "not found"):
		return http.StatusNotFound
	case strings.Contains(msg, "required") || strings.Contains(msg, "must be"):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
