package authhandler

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
	Service     *auth.Service
	Audit       shared.AuditRecorder
	Cache       shared.Cache
	AllowSignup bool
}

func NewHandler(service *auth.Service, auditSvc shared.AuditRecorder, cache shared.Cache, allowSignup bool) *Handler {
	return &Handler{Service: service, Audit: auditSvc, Cache: cache, AllowSignup: allowSignup}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.HandleLogin)
		r.Post("/signup", h.HandleSignup)
		r.With(middleware.RequireAuth).Get("/me", h.HandleMe)
	})
}

type loginRequest struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token   string        `json:"token"`
	Profile staff.Profile `json:"profile"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload loginRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Required("handle", payload.Handle, "is required")
	v.Required("password", payload.Password, "is required")
	if v.Reject(w, reqID) {
		return
	}

	token, profile, err := h.Service.Login(r.Context(), payload.Handle, payload.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials", reqID)
		return
	case errors.Is(err, auth.ErrNotApproved):
		api.Fail(w, http.StatusForbidden, "not_approved", "profile awaiting approval", reqID)
		return
	case err != nil:
		slog.Warn("login failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "login_failed", "login failed", reqID)
		return
	}
	api.Success(w, loginResponse{Token: token, Profile: profile}, reqID)
}

type signupRequest struct {
	DisplayName string `json:"displayName"`
	Handle      string `json:"handle"`
	Password    string `json:"password"`
	PositionID  string `json:"positionId"`
}

func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	if !h.AllowSignup {
		api.Fail(w, http.StatusForbidden, "signup_disabled", "self signup is disabled", reqID)
		return
	}
	var payload signupRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Required("displayName", payload.DisplayName, "is required")
	v.Required("handle", payload.Handle, "is required")
	v.ID("positionId", payload.PositionID)
	if len(payload.Password) < auth.MinPasswordLength {
		v.Add("password", "must be at least 8 characters")
	}
	if v.Reject(w, reqID) {
		return
	}

	profile, err := h.Service.Signup(r.Context(), staff.Registration{
		DisplayName: payload.DisplayName,
		Handle:      payload.Handle,
		Password:    payload.Password,
		PositionID:  payload.PositionID,
	})
	switch {
	case errors.Is(err, staff.ErrHandleTaken):
		api.Fail(w, http.StatusConflict, "handle_taken", "handle already taken", reqID)
		return
	case errors.Is(err, staff.ErrPositionNotFound):
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "positionId", Reason: "unknown position"}})
		return
	case errors.Is(err, staff.ErrInvalidProfile), errors.Is(err, auth.ErrWeakPassword):
		api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), reqID)
		return
	case err != nil:
		slog.Warn("signup failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "signup_failed", "signup failed", reqID)
		return
	}

	shared.Audit(r, h.Audit, profile.ID, audit.ActionCreate, "profile", profile.ID, nil, profile)
	shared.Refresh(r.Context(), h.Cache, entitystore.Profiles)
	api.Created(w, profile, reqID)
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	for _, p := range h.Cache.Snapshot().Profiles() {
		if p.ID == user.UserID {
			api.Success(w, p, reqID)
			return
		}
	}
	api.Fail(w, http.StatusNotFound, "not_found", "profile not found", reqID)
}
