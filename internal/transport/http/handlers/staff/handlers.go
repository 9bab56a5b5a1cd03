package staffhandler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kpireview/internal/domain/audit"
	"kpireview/internal/domain/auth"
	"kpireview/internal/domain/entitystore"
	"kpireview/internal/domain/staff"
	"kpireview/internal/transport/http/api"
	"kpireview/internal/transport/http/middleware"
	"kpireview/internal/transport/http/shared"
)

type Handler struct {
	Service *staff.Service
	Audit   shared.AuditRecorder
	Cache   shared.Cache
}

func NewHandler(service *staff.Service, auditSvc shared.AuditRecorder, cache shared.Cache) *Handler {
	return &Handler{Service: service, Audit: auditSvc, Cache: cache}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	// positions are public so the signup form can offer them
	r.Get("/positions", h.handleListPositions)

	r.Route("/staff", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermStaffRead)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermStaffRead)).Get("/{staffID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermStaffWrite)).Put("/{staffID}", h.handleUpdate)
		r.With(middleware.RequirePermission(auth.PermStaffWrite)).Post("/{staffID}/approval", h.handleApproval)
	})
}

func (h *Handler) handleListPositions(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	positions, err := h.Service.ListPositions(r.Context())
	if err != nil {
		slog.Warn("list positions failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "positions_list_failed", "failed to list positions", reqID)
		return
	}
	if positions == nil {
		positions = []staff.Position{}
	}
	api.Success(w, positions, reqID)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	q := r.URL.Query()

	filter := staff.Filter{ApprovedOnly: q.Get("approved") == "true"}
	if raw := q.Get("role"); raw != "" {
		role, err := staff.ParseRole(raw)
		if err != nil {
			shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "role", Reason: "must be clinician, director or super-admin"}})
			return
		}
		filter.Role = role
	}

	profiles, err := h.Service.List(r.Context(), filter)
	if err != nil {
		slog.Warn("list staff failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "staff_list_failed", "failed to list staff", reqID)
		return
	}
	api.Success(w, profiles, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	id, ok := shared.PathID(w, r, "staffID", reqID)
	if !ok {
		return
	}
	p, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err, "staff_get_failed", reqID)
		return
	}
	api.Success(w, p, reqID)
}

type updatePayload struct {
	DisplayName string `json:"displayName"`
	PositionID  string `json:"positionId"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	id, ok := shared.PathID(w, r, "staffID", reqID)
	if !ok {
		return
	}
	var payload updatePayload
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	if payload.PositionID != "" {
		v.ID("positionId", payload.PositionID)
	}
	if payload.DisplayName == "" && payload.PositionID == "" {
		v.Add("displayName", "displayName or positionId is required")
	}
	if v.Reject(w, reqID) {
		return
	}

	before, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err, "staff_update_failed", reqID)
		return
	}
	updated, err := h.Service.Update(r.Context(), id, payload.DisplayName, payload.PositionID)
	if err != nil {
		h.fail(w, err, "staff_update_failed", reqID)
		return
	}
	shared.Audit(r, h.Audit, user.UserID, audit.ActionUpdate, "profile", id, before, updated)
	shared.Refresh(r.Context(), h.Cache, entitystore.Profiles)
	api.Success(w, updated, reqID)
}

type approvalPayload struct {
	Accept *bool `json:"accept"`
}

func (h *Handler) handleApproval(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	id, ok := shared.PathID(w, r, "staffID", reqID)
	if !ok {
		return
	}
	var payload approvalPayload
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	if payload.Accept == nil {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "accept", Reason: "is required"}})
		return
	}
	if id == user.UserID && !*payload.Accept {
		api.Fail(w, http.StatusConflict, "self_revoke", "cannot revoke your own approval", reqID)
		return
	}

	updated, err := h.Service.Approve(r.Context(), id, *payload.Accept)
	if err != nil {
		h.fail(w, err, "staff_approval_failed", reqID)
		return
	}
	shared.Audit(r, h.Audit, user.UserID, audit.ActionApprove, "profile", id, nil, map[string]bool{"accept": updated.Accept})
	shared.Refresh(r.Context(), h.Cache, entitystore.Profiles)
	api.Success(w, updated, reqID)
}

func (h *Handler) fail(w http.ResponseWriter, err error, code, reqID string) {
	switch {
	case errors.Is(err, staff.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "staff profile not found", reqID)
	case errors.Is(err, staff.ErrPositionNotFound):
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "positionId", Reason: "unknown position"}})
	case errors.Is(err, staff.ErrInvalidProfile):
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid profile", reqID)
	default:
		slog.Warn("staff request failed", "code", code, "err", err)
		api.Fail(w, http.StatusInternalServerError, code, "staff operation failed", reqID)
	}
}
