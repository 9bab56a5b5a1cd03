package grouphandler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"kpireview/internal/domain/audit"
	"kpireview/internal/domain/auth"
	"kpireview/internal/domain/kpigroup"
	"kpireview/internal/domain/staff"
	"kpireview/internal/transport/http/api"
	"kpireview/internal/transport/http/middleware"
	"kpireview/internal/transport/http/shared"
)

// Handler manages the caller's KPI groups. Super-admins may pass
// ?directorId= to manage another director's groups.
type Handler struct {
	Service *kpigroup.Service
	Audit   shared.AuditRecorder
}

func NewHandler(service *kpigroup.Service, auditSvc shared.AuditRecorder) *Handler {
	return &Handler{Service: service, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/groups", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermGroupsManage))
		r.Get("/", h.handleListTitles)
		r.Get("/exists", h.handleExists)
		r.Post("/", h.handleCreate)
		r.Get("/{title}/kpis", h.handleListKPIs)
		r.Put("/{title}", h.handleUpdate)
		r.Delete("/{title}", h.handleDelete)
	})
}

func (h *Handler) owner(w http.ResponseWriter, r *http.Request, reqID string) (string, bool) {
	user, _ := middleware.GetUser(r.Context())
	if user.Role != staff.RoleSuperAdmin {
		return user.UserID, true
	}
	id := r.URL.Query().Get("directorId")
	if id == "" {
		return user.UserID, true
	}
	v := shared.NewValidator()
	v.ID("directorId", id)
	if v.Reject(w, reqID) {
		return "", false
	}
	return id, true
}

func titleParam(r *http.Request) string {
	raw := chi.URLParam(r, "title")
	if t, err := url.PathUnescape(raw); err == nil {
		return t
	}
	return raw
}

func (h *Handler) handleListTitles(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	directorID, ok := h.owner(w, r, reqID)
	if !ok {
		return
	}
	titles, err := h.Service.ListGroupTitles(r.Context(), directorID)
	if err != nil {
		h.fail(w, err, "group_list_failed", reqID)
		return
	}
	if titles == nil {
		titles = []string{}
	}
	api.Success(w, titles, reqID)
}

func (h *Handler) handleExists(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	directorID, ok := h.owner(w, r, reqID)
	if !ok {
		return
	}
	exists, err := h.Service.TitleExists(r.Context(), r.URL.Query().Get("title"), directorID)
	if err != nil {
		h.fail(w, err, "group_exists_failed", reqID)
		return
	}
	api.Success(w, map[string]bool{"exists": exists}, reqID)
}

func (h *Handler) handleListKPIs(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	directorID, ok := h.owner(w, r, reqID)
	if !ok {
		return
	}
	ids, err := h.Service.ListKPIsInGroup(r.Context(), directorID, titleParam(r))
	if err != nil {
		h.fail(w, err, "group_kpis_failed", reqID)
		return
	}
	if len(ids) == 0 {
		api.Fail(w, http.StatusNotFound, "not_found", "kpi group not found", reqID)
		return
	}
	api.Success(w, ids, reqID)
}

type groupPayload struct {
	Title  string   `json:"title"`
	KPIIDs []string `json:"kpiIds"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	directorID, ok := h.owner(w, r, reqID)
	if !ok {
		return
	}
	var payload groupPayload
	if !shared.DecodeJSON(w, r, &payload, reqID) || !validateIDs(w, payload.KPIIDs, reqID) {
		return
	}

	g, err := h.Service.CreateGroup(r.Context(), payload.Title, directorID, payload.KPIIDs)
	if err != nil {
		h.fail(w, err, "group_create_failed", reqID)
		return
	}
	shared.Audit(r, h.Audit, user.UserID, audit.ActionCreate, "kpi_group", g.Title, nil, g)
	api.Created(w, g, reqID)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	directorID, ok := h.owner(w, r, reqID)
	if !ok {
		return
	}
	var payload groupPayload
	if !shared.DecodeJSON(w, r, &payload, reqID) || !validateIDs(w, payload.KPIIDs, reqID) {
		return
	}

	g, err := h.Service.UpdateGroup(r.Context(), titleParam(r), directorID, payload.KPIIDs)
	if err != nil {
		h.fail(w, err, "group_update_failed", reqID)
		return
	}
	shared.Audit(r, h.Audit, user.UserID, audit.ActionUpdate, "kpi_group", g.Title, nil, g)
	api.Success(w, g, reqID)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	directorID, ok := h.owner(w, r, reqID)
	if !ok {
		return
	}
	title := titleParam(r)
	if err := h.Service.DeleteGroup(r.Context(), title, directorID); err != nil {
		h.fail(w, err, "group_delete_failed", reqID)
		return
	}
	shared.Audit(r, h.Audit, user.UserID, audit.ActionDelete, "kpi_group", title, nil, nil)
	api.Success(w, map[string]string{"title": title}, reqID)
}

func validateIDs(w http.ResponseWriter, ids []string, reqID string) bool {
	v := shared.NewValidator()
	for _, id := range ids {
		if id == "" {
			continue
		}
		v.ID("kpiIds", id)
	}
	return !v.Reject(w, reqID)
}

func (h *Handler) fail(w http.ResponseWriter, err error, code, reqID string) {
	switch {
	case errors.Is(err, kpigroup.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "kpi group not found", reqID)
	case errors.Is(err, kpigroup.ErrDuplicateTitle):
		api.Fail(w, http.StatusConflict, "duplicate_title", err.Error(), reqID)
	case errors.Is(err, kpigroup.ErrTitleRequired):
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "title", Reason: "is required"}})
	case errors.Is(err, kpigroup.ErrNoKPIs):
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "kpiIds", Reason: "must contain at least one kpi"}})
	case errors.Is(err, kpigroup.ErrUnknownKPI):
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "kpiIds", Reason: "contains an unknown or removed kpi"}})
	default:
		slog.Warn("kpi group request failed", "code", code, "err", err)
		api.Fail(w, http.StatusInternalServerError, code, "kpi group operation failed", reqID)
	}
}
