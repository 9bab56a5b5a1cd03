package kpihandler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kpireview/internal/domain/audit"
	"kpireview/internal/domain/auth"
	"kpireview/internal/domain/entitystore"
	"kpireview/internal/domain/kpi"
	"kpireview/internal/transport/http/api"
	"kpireview/internal/transport/http/middleware"
	"kpireview/internal/transport/http/shared"
)

type Handler struct {
	Service *kpi.Service
	Audit   shared.AuditRecorder
	Cache   shared.Cache
}

func NewHandler(service *kpi.Service, auditSvc shared.AuditRecorder, cache shared.Cache) *Handler {
	return &Handler{Service: service, Audit: auditSvc, Cache: cache}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/kpis", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermKPIRead)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermKPIRead)).Get("/{kpiID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermKPIWrite)).Post("/", h.handleCreate)
		r.With(middleware.RequirePermission(auth.PermKPIWrite)).Put("/{kpiID}", h.handleUpdate)
		r.With(middleware.RequirePermission(auth.PermKPIWrite)).Post("/{kpiID}/remove", h.handleRemove)
		r.With(middleware.RequirePermission(auth.PermKPIWrite)).Post("/{kpiID}/restore", h.handleRestore)
		r.With(middleware.RequirePermission(auth.PermKPIWrite)).Delete("/{kpiID}", h.handleDelete)
	})
}

type kpiPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Weight      int    `json:"weight"`
	Floor       string `json:"floor"`
}

func (p kpiPayload) validate(v *shared.Validator) {
	v.Required("title", p.Title, "is required")
	v.Positive("weight", p.Weight)
}

func (p kpiPayload) details() kpi.Details {
	return kpi.Details{Title: p.Title, Description: p.Description, Weight: p.Weight, Floor: p.Floor}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	kpis := h.Cache.Snapshot().KPIs()
	if r.URL.Query().Get("includeRemoved") != "true" {
		kpis = kpi.Active(kpis)
	}
	if kpis == nil {
		kpis = []kpi.KPI{}
	}
	api.Success(w, kpis, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	id, ok := shared.PathID(w, r, "kpiID", reqID)
	if !ok {
		return
	}
	k, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err, "kpi_get_failed", reqID)
		return
	}
	api.Success(w, k, reqID)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	var payload kpiPayload
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	payload.validate(v)
	if v.Reject(w, reqID) {
		return
	}

	created, err := h.Service.Create(r.Context(), payload.details())
	if err != nil {
		h.fail(w, err, "kpi_create_failed", reqID)
		return
	}
	shared.Audit(r, h.Audit, user.UserID, audit.ActionCreate, "kpi", created.ID, nil, created)
	shared.Refresh(r.Context(), h.Cache, entitystore.KPIs)
	api.Created(w, created, reqID)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	id, ok := shared.PathID(w, r, "kpiID", reqID)
	if !ok {
		return
	}
	var payload kpiPayload
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	payload.validate(v)
	if v.Reject(w, reqID) {
		return
	}

	before, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err, "kpi_update_failed", reqID)
		return
	}
	updated, err := h.Service.Update(r.Context(), id, payload.details())
	if err != nil {
		h.fail(w, err, "kpi_update_failed", reqID)
		return
	}
	shared.Audit(r, h.Audit, user.UserID, audit.ActionUpdate, "kpi", id, before, updated)
	shared.Refresh(r.Context(), h.Cache, entitystore.KPIs)
	api.Success(w, updated, reqID)
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	h.setRemoved(w, r, true)
}

func (h *Handler) handleRestore(w http.ResponseWriter, r *http.Request) {
	h.setRemoved(w, r, false)
}

func (h *Handler) setRemoved(w http.ResponseWriter, r *http.Request, removed bool) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	id, ok := shared.PathID(w, r, "kpiID", reqID)
	if !ok {
		return
	}

	var (
		out    kpi.KPI
		err    error
		action = audit.ActionRestore
	)
	if removed {
		action = audit.ActionRemove
		out, err = h.Service.SoftDelete(r.Context(), id)
	} else {
		out, err = h.Service.Restore(r.Context(), id)
	}
	if err != nil {
		h.fail(w, err, "kpi_"+action+"_failed", reqID)
		return
	}
	shared.Audit(r, h.Audit, user.UserID, action, "kpi", id, nil, out)
	shared.Refresh(r.Context(), h.Cache, entitystore.KPIs)
	api.Success(w, out, reqID)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	id, ok := shared.PathID(w, r, "kpiID", reqID)
	if !ok {
		return
	}
	before, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err, "kpi_delete_failed", reqID)
		return
	}
	if err := h.Service.Delete(r.Context(), id); err != nil {
		h.fail(w, err, "kpi_delete_failed", reqID)
		return
	}
	shared.Audit(r, h.Audit, user.UserID, audit.ActionDelete, "kpi", id, before, nil)
	shared.Refresh(r.Context(), h.Cache, entitystore.KPIs)
	api.Success(w, map[string]string{"id": id}, reqID)
}

func (h *Handler) fail(w http.ResponseWriter, err error, code, reqID string) {
	switch {
	case errors.Is(err, kpi.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "kpi not found", reqID)
	case errors.Is(err, kpi.ErrTitleRequired):
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "title", Reason: "is required"}})
	case errors.Is(err, kpi.ErrInvalidWeight):
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "weight", Reason: "must be a positive integer"}})
	default:
		slog.Warn("kpi request failed", "code", code, "err", err)
		api.Fail(w, http.StatusInternalServerError, code, "kpi operation failed", reqID)
	}
}
