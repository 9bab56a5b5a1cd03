package hierarchyhandler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kpireview/internal/domain/audit"
	"kpireview/internal/domain/auth"
	"kpireview/internal/domain/entitystore"
	"kpireview/internal/domain/hierarchy"
	"kpireview/internal/domain/staff"
	"kpireview/internal/transport/http/api"
	"kpireview/internal/transport/http/middleware"
	"kpireview/internal/transport/http/shared"
)

// Handler serves supervision queries from the cached snapshot and writes
// assignments through the service.
type Handler struct {
	Service *hierarchy.Service
	Audit   shared.AuditRecorder
	Cache   shared.Cache
}

func NewHandler(service *hierarchy.Service, auditSvc shared.AuditRecorder, cache shared.Cache) *Handler {
	return &Handler{Service: service, Audit: auditSvc, Cache: cache}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/hierarchy", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermHierarchy))
		r.Get("/directors/{directorID}/clinicians", h.handleAssignedClinicians)
		r.Get("/directors/{directorID}/directors", h.handleAssignedDirectors)
		r.Get("/directors/{directorID}/chain", h.handleChain)
		r.Get("/unassigned", h.handleUnassigned)
		r.Get("/staff/{staffID}/director", h.handleDirectorOf)
	})
	r.Route("/assignments", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermHierarchy)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermAssign)).Post("/", h.handleAssign)
		r.With(middleware.RequirePermission(auth.PermAssign)).Delete("/", h.handleUnassign)
	})
}

func (h *Handler) handleAssignedClinicians(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	id, ok := shared.PathID(w, r, "directorID", reqID)
	if !ok {
		return
	}
	api.Success(w, nonNil(h.Cache.Snapshot().Resolver().AssignedClinicians(id)), reqID)
}

func (h *Handler) handleAssignedDirectors(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	id, ok := shared.PathID(w, r, "directorID", reqID)
	if !ok {
		return
	}
	api.Success(w, nonNil(h.Cache.Snapshot().Resolver().AssignedDirectors(id)), reqID)
}

func (h *Handler) handleChain(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	id, ok := shared.PathID(w, r, "directorID", reqID)
	if !ok {
		return
	}
	api.Success(w, nonNil(h.Cache.Snapshot().Resolver().Chain(id)), reqID)
}

type unassignedResponse struct {
	Clinicians []staff.Profile `json:"clinicians"`
	Directors  []staff.Profile `json:"directors"`
}

func (h *Handler) handleUnassigned(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	resolver := h.Cache.Snapshot().Resolver()

	switch r.URL.Query().Get("role") {
	case "clinician":
		api.Success(w, nonNil(resolver.UnassignedClinicians()), reqID)
	case "director":
		api.Success(w, nonNil(resolver.UnassignedDirectors()), reqID)
	case "":
		api.Success(w, unassignedResponse{
			Clinicians: nonNil(resolver.UnassignedClinicians()),
			Directors:  nonNil(resolver.UnassignedDirectors()),
		}, reqID)
	default:
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "role", Reason: "must be clinician or director"}})
	}
}

func (h *Handler) handleDirectorOf(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	id, ok := shared.PathID(w, r, "staffID", reqID)
	if !ok {
		return
	}
	sup, found := h.Cache.Snapshot().Resolver().DirectorOf(id)
	if !found {
		api.Fail(w, http.StatusNotFound, "not_found", "no supervisor assigned", reqID)
		return
	}
	api.Success(w, sup, reqID)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	assignments := h.Cache.Snapshot().Assignments()
	if assignments == nil {
		assignments = []hierarchy.Assignment{}
	}
	api.Success(w, assignments, middleware.GetRequestID(r.Context()))
}

type assignmentPayload struct {
	SubordinateID string `json:"subordinateId"`
	SupervisorID  string `json:"supervisorId"`
}

func (p assignmentPayload) validate(w http.ResponseWriter, reqID string) bool {
	v := shared.NewValidator()
	v.ID("subordinateId", p.SubordinateID)
	v.ID("supervisorId", p.SupervisorID)
	if p.SubordinateID != "" && p.SubordinateID == p.SupervisorID {
		v.Add("supervisorId", "must differ from subordinateId")
	}
	return !v.Reject(w, reqID)
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	var payload assignmentPayload
	if !shared.DecodeJSON(w, r, &payload, reqID) || !payload.validate(w, reqID) {
		return
	}

	created, err := h.Service.Assign(r.Context(), payload.SubordinateID, payload.SupervisorID)
	if err != nil {
		h.fail(w, err, "assign_failed", reqID)
		return
	}
	shared.Audit(r, h.Audit, user.UserID, audit.ActionAssign, "assignment", created.ID, nil, created)
	shared.Refresh(r.Context(), h.Cache, entitystore.Assignments)
	api.Created(w, created, reqID)
}

func (h *Handler) handleUnassign(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	var payload assignmentPayload
	if !shared.DecodeJSON(w, r, &payload, reqID) || !payload.validate(w, reqID) {
		return
	}

	if err := h.Service.Unassign(r.Context(), payload.SubordinateID, payload.SupervisorID); err != nil {
		h.fail(w, err, "unassign_failed", reqID)
		return
	}
	shared.Audit(r, h.Audit, user.UserID, audit.ActionDelete, "assignment", payload.SubordinateID, payload, nil)
	shared.Refresh(r.Context(), h.Cache, entitystore.Assignments)
	api.Success(w, payload, reqID)
}

func (h *Handler) fail(w http.ResponseWriter, err error, code, reqID string) {
	switch {
	case errors.Is(err, hierarchy.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "assignment not found", reqID)
	case errors.Is(err, hierarchy.ErrProfileNotFound):
		api.Fail(w, http.StatusNotFound, "profile_not_found", err.Error(), reqID)
	case errors.Is(err, hierarchy.ErrSupervisorNotDirector):
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "supervisorId", Reason: "must be a director"}})
	case errors.Is(err, hierarchy.ErrSubordinateNotEligible):
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "subordinateId", Reason: "must be a clinician or director"}})
	case errors.Is(err, hierarchy.ErrAlreadyAssigned):
		api.Fail(w, http.StatusConflict, "already_assigned", err.Error(), reqID)
	case errors.Is(err, hierarchy.ErrCycle):
		api.Fail(w, http.StatusConflict, "cycle", err.Error(), reqID)
	default:
		slog.Warn("assignment request failed", "code", code, "err", err)
		api.Fail(w, http.StatusInternalServerError, code, "assignment operation failed", reqID)
	}
}

func nonNil(ps []staff.Profile) []staff.Profile {
	if ps == nil {
		return []staff.Profile{}
	}
	return ps
}
