package adminhandler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kpireview/internal/domain/auth"
	"kpireview/internal/domain/entitystore"
	"kpireview/internal/platform/jobs"
	"kpireview/internal/transport/http/api"
	"kpireview/internal/transport/http/middleware"
	"kpireview/internal/transport/http/shared"
)

type Store interface {
	Version() uint64
	LoadedAt() map[entitystore.Collection]time.Time
}

type Jobs interface {
	RunNow(ctx context.Context, jobType string, run jobs.RunFunc) (any, error)
	Recent(ctx context.Context, jobType string, limit int) ([]jobs.Run, error)
}

// Handler exposes cache state and job history. Refresh is the job function
// registered for JobStoreRefresh so manual and scheduled runs share one path.
type Handler struct {
	Store   Store
	Jobs    Jobs
	Refresh jobs.RunFunc
	Audit   shared.AuditRecorder
}

func NewHandler(store Store, jobsSvc Jobs, refresh jobs.RunFunc, auditSvc shared.AuditRecorder) *Handler {
	return &Handler{Store: store, Jobs: jobsSvc, Refresh: refresh, Audit: auditSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermSystemAdmin))
		r.Get("/cache", h.handleStatus)
		r.Post("/refresh", h.handleRefresh)
		r.Get("/jobs", h.handleJobs)
	})
}

type cacheStatus struct {
	Version  uint64                            `json:"version"`
	LoadedAt map[entitystore.Collection]string `json:"loadedAt"`
	Errors   string                            `json:"errors,omitempty"`
}

func (h *Handler) status() cacheStatus {
	loaded := h.Store.LoadedAt()
	out := cacheStatus{Version: h.Store.Version(), LoadedAt: make(map[entitystore.Collection]string, len(loaded))}
	for c, at := range loaded {
		out.LoadedAt[c] = at.UTC().Format(time.RFC3339)
	}
	return out
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.status(), middleware.GetRequestID(r.Context()))
}

// handleRefresh reloads every collection. Partial failures still answer 200
// with the errors listed; failed collections keep serving their last load.
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	_, err := h.Jobs.RunNow(r.Context(), jobs.JobStoreRefresh, h.Refresh)
	out := h.status()
	if err != nil {
		slog.Warn("manual refresh incomplete", "err", err)
		out.Errors = err.Error()
	}
	shared.Audit(r, h.Audit, user.UserID, "refresh", "entity_store", "", nil, out)
	api.Success(w, out, reqID)
}

func (h *Handler) handleJobs(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	v := shared.NewValidator()
	limit := v.IntParam("limit", r.URL.Query().Get("limit"), 20, 1, 200)
	if v.Reject(w, reqID) {
		return
	}
	runs, err := h.Jobs.Recent(r.Context(), r.URL.Query().Get("type"), limit)
	if err != nil {
		slog.Warn("list job runs failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "jobs_list_failed", "failed to list job runs", reqID)
		return
	}
	api.Success(w, runs, reqID)
}
