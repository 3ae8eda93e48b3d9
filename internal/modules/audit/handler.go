package audit

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/nightjarhq/nightjar-backend/internal/actor"
)

// Handler exposes the admin-facing audit viewer and exporter.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/audit", func(r chi.Router) {
		r.Get("/", h.list)          // GET /api/v1/audit?action=&target_type=&actor_id=&q=&page=&page_size=
		r.Get("/export", h.export) // GET /api/v1/audit/export?format=csv|xlsx
	})
}

func filterFromQuery(r *http.Request) Filter {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))
	return Filter{
		Action:     q.Get("action"),
		TargetType: q.Get("target_type"),
		TargetID:   q.Get("target_id"),
		ActorID:    q.Get("actor_id"),
		Search:     q.Get("q"),
		Page:       page,
		PageSize:   size,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	a, ok := actor.FromContext(r.Context())
	if !ok || !a.IsOwner() {
		respond(w, http.StatusForbidden, map[string]string{"error": "audit log is owner-only"})
		return
	}
	page, err := h.service.List(r.Context(), filterFromQuery(r))
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, page)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	a, ok := actor.FromContext(r.Context())
	if !ok || !a.IsOwner() {
		respond(w, http.StatusForbidden, map[string]string{"error": "audit log is owner-only"})
		return
	}

	f := filterFromQuery(r)
	switch r.URL.Query().Get("format") {
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="audit_log.xlsx"`)
		if err := h.service.ExportXLSX(r.Context(), w, f); err != nil {
			respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
	default:
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="audit_log.csv"`)
		if err := h.service.ExportCSV(r.Context(), w, f); err != nil {
			respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
	}
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
