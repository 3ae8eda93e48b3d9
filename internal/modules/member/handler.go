package member

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/nightjarhq/nightjar-backend/internal/actor"
)

// Handler exposes member HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/members", func(r chi.Router) {
		r.Post("/register", h.register)    // POST  /api/v1/members/register
		r.Post("/login", h.login)          // POST  /api/v1/members/login
		r.Get("/", h.list)                 // GET   /api/v1/members
		r.Get("/{id}", h.get)              // GET   /api/v1/members/{id}
		r.Patch("/{id}/role", h.setRole)   // PATCH /api/v1/members/{id}/role
		r.Put("/{id}/public-key", h.setKey) // PUT  /api/v1/members/{id}/public-key
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	m, err := h.service.Register(r.Context(), req)
	if err != nil {
		code := http.StatusInternalServerError
		msg := err.Error()
		if strings.Contains(msg, "required") || strings.Contains(msg, "at least") || strings.Contains(msg, "already registered") {
			code = http.StatusBadRequest
		}
		respond(w, code, map[string]string{"error": msg})
		return
	}
	respond(w, http.StatusCreated, m)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	token, m, err := h.service.Login(r.Context(), req)
	if err != nil {
		respond(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{"token": token, "member": m})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.GetMember(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, m)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.ListMembers(r.Context())
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, members)
}

func (h *Handler) setRole(w http.ResponseWriter, r *http.Request) {
	a, ok := actor.FromContext(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}
	var req UpdateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	m, err := h.service.UpdateRole(r.Context(), chi.URLParam(r, "id"), actor.Role(strings.ToLower(req.Role)), a)
	if err != nil {
		code := http.StatusInternalServerError
		msg := err.Error()
		if strings.Contains(msg, "only owners") {
			code = http.StatusForbidden
		} else if strings.Contains(msg, "unknown role") {
			code = http.StatusBadRequest
		} else if strings.Contains(msg, "not found") {
			code = http.StatusNotFound
		}
		respond(w, code, map[string]string{"error": msg})
		return
	}
	respond(w, http.StatusOK, m)
}

func (h *Handler) setKey(w http.ResponseWriter, r *http.Request) {
	a, ok := actor.FromContext(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}
	id := chi.URLParam(r, "id")
	// Members publish their own keys.
	if a.ID != id && !a.IsOwner() {
		respond(w, http.StatusForbidden, map[string]string{"error": "cannot set another member's key"})
		return
	}
	var req SetKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	m, err := h.service.SetPublicKey(r.Context(), id, req.PublicKey)
	if err != nil {
		code := http.StatusInternalServerError
		msg := err.Error()
		if strings.Contains(msg, "public key") {
			code = http.StatusBadRequest
		} else if strings.Contains(msg, "not found") {
			code = http.StatusNotFound
		}
		respond(w, code, map[string]string{"error": msg})
		return
	}
	respond(w, http.StatusOK, m)
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
