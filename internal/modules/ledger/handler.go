package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nightjarhq/nightjar-backend/internal/actor"
	"github.com/nightjarhq/nightjar-backend/internal/store"
)

// Handler exposes the request ledger HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/requests", func(r chi.Router) {
		r.Post("/", h.submit)                   // POST  /api/v1/requests
		r.Get("/", h.list)                      // GET   /api/v1/requests?status=&assigned_to=&requested_by=
		r.Get("/export", h.export)              // GET   /api/v1/requests/export?format=csv|xlsx
		r.Get("/{id}", h.get)                   // GET   /api/v1/requests/{id}
		r.Post("/{id}/claim", h.claim)          // POST  /api/v1/requests/{id}/claim
		r.Post("/{id}/approve", h.approve)      // POST  /api/v1/requests/{id}/approve
		r.Post("/{id}/reject", h.reject)        // POST  /api/v1/requests/{id}/reject
		r.Post("/{id}/start", h.start)          // POST  /api/v1/requests/{id}/start
		r.Post("/{id}/ship", h.ship)            // POST  /api/v1/requests/{id}/ship
		r.Post("/{id}/deliver", h.deliver)      // POST  /api/v1/requests/{id}/deliver
		r.Post("/{id}/block", h.block)          // POST  /api/v1/requests/{id}/block
		r.Post("/{id}/unblock", h.unblock)      // POST  /api/v1/requests/{id}/unblock
		r.Post("/{id}/cancel", h.cancel)        // POST  /api/v1/requests/{id}/cancel
	})
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	a, ok := actor.FromContext(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	request, err := h.service.Submit(r.Context(), req, a)
	if err != nil {
		respond(w, errCode(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusCreated, request)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	f := ListFilter{
		Status:      Status(r.URL.Query().Get("status")),
		AssignedTo:  r.URL.Query().Get("assigned_to"),
		RequestedBy: r.URL.Query().Get("requested_by"),
	}
	requests, err := h.service.List(r.Context(), f)
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, requests)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	request, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, request)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	a, ok := actor.FromContext(r.Context())
	if !ok || !a.IsOwner() {
		respond(w, http.StatusForbidden, map[string]string{"error": "owner access required"})
		return
	}
	f := ListFilter{Status: Status(r.URL.Query().Get("status"))}
	stamp := time.Now().UTC().Format("2006-01-02")
	switch r.URL.Query().Get("format") {
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="requests-%s.xlsx"`, stamp))
		if err := h.service.ExportXLSX(r.Context(), w, f); err != nil {
			respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
	default:
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="requests-%s.csv"`, stamp))
		if err := h.service.ExportCSV(r.Context(), w, f); err != nil {
			respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
	}
}

func (h *Handler) claim(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(id string, a actor.Actor) (*Request, error) {
		return h.service.Claim(r.Context(), id, a)
	})
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(id string, a actor.Actor) (*Request, error) {
		return h.service.Approve(r.Context(), id, a)
	})
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	var req RejectRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	h.action(w, r, func(id string, a actor.Actor) (*Request, error) {
		return h.service.Reject(r.Context(), id, req, a)
	})
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(id string, a actor.Actor) (*Request, error) {
		return h.service.Start(r.Context(), id, a)
	})
}

func (h *Handler) ship(w http.ResponseWriter, r *http.Request) {
	var req ShipRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	h.action(w, r, func(id string, a actor.Actor) (*Request, error) {
		return h.service.Ship(r.Context(), id, req, a)
	})
}

func (h *Handler) deliver(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(id string, a actor.Actor) (*Request, error) {
		return h.service.Deliver(r.Context(), id, a)
	})
}

func (h *Handler) block(w http.ResponseWriter, r *http.Request) {
	var req BlockRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	h.action(w, r, func(id string, a actor.Actor) (*Request, error) {
		return h.service.Block(r.Context(), id, req, a)
	})
}

func (h *Handler) unblock(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(id string, a actor.Actor) (*Request, error) {
		return h.service.Unblock(r.Context(), id, a)
	})
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, func(id string, a actor.Actor) (*Request, error) {
		return h.service.Cancel(r.Context(), id, a)
	})
}

// action factors the shared load-actor / call / respond shape of every
// transition endpoint.
func (h *Handler) action(w http.ResponseWriter, r *http.Request, fn func(id string, a actor.Actor) (*Request, error)) {
	a, ok := actor.FromContext(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}
	request, err := fn(chi.URLParam(r, "id"), a)
	if err != nil {
		respond(w, errCode(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, request)
}

func errCode(err error) int {
	switch {
	case errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "only owners") || strings.Contains(msg, "only the"):
		return http.StatusForbidden
	case strings.Contains(msg, "not found"):
		return http.StatusNotFound
	case strings.Contains(msg, "required") || strings.Contains(msg, "must") || strings.Contains(msg, "invalid"):
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
