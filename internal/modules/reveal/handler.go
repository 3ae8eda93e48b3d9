package reveal

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/nightjarhq/nightjar-backend/internal/actor"
)

// Handler exposes the reveal handshake HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/reveals", func(r chi.Router) {
		r.Get("/relay-key", h.relayKey)                // GET  /api/v1/reveals/relay-key
		r.Post("/{request_id}/pending", h.submitPending) // POST /api/v1/reveals/{request_id}/pending
		r.Get("/{request_id}", h.getReveal)            // GET  /api/v1/reveals/{request_id}
	})
}

func (h *Handler) relayKey(w http.ResponseWriter, r *http.Request) {
	key, err := h.service.RelayPublicKey()
	if err != nil {
		respond(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, map[string]string{"relay_public_key": key})
}

func (h *Handler) submitPending(w http.ResponseWriter, r *http.Request) {
	a, ok := actor.FromContext(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}
	var req SubmitPendingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := h.service.SubmitPending(r.Context(), chi.URLParam(r, "request_id"), req.SealedAddress, a); err != nil {
		code := http.StatusInternalServerError
		if strings.Contains(err.Error(), "required") {
			code = http.StatusBadRequest
		}
		respond(w, code, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusCreated, map[string]string{"status": "pending address stored"})
}

func (h *Handler) getReveal(w http.ResponseWriter, r *http.Request) {
	a, ok := actor.FromContext(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}
	rv, err := h.service.GetReveal(r.Context(), chi.URLParam(r, "request_id"), a)
	if err != nil {
		code := http.StatusNotFound
		if strings.Contains(err.Error(), "another producer") {
			code = http.StatusForbidden
		}
		respond(w, code, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, rv)
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
