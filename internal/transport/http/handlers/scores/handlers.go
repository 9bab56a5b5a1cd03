package scorehandler

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"kpireview/internal/domain/auth"
	"kpireview/internal/domain/period"
	"kpireview/internal/domain/reports"
	"kpireview/internal/domain/scoring"
	"kpireview/internal/domain/staff"
	"kpireview/internal/transport/http/api"
	"kpireview/internal/transport/http/middleware"
	"kpireview/internal/transport/http/shared"
)

const (
	defaultTrendCount = 6
	maxTrendCount     = 52
)

type Handler struct {
	Engine   *scoring.Engine
	Cache    shared.Cache
	Location *time.Location
	Now      func() time.Time
}

func NewHandler(engine *scoring.Engine, cache shared.Cache, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{Engine: engine, Cache: cache, Location: loc, Now: time.Now}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/scores", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermScoresTeam)).Get("/team/{directorID}", h.handleTeam)
		r.With(middleware.RequirePermission(auth.PermScoresRead)).Get("/{staffID}", h.handleScore)
		r.With(middleware.RequirePermission(auth.PermScoresRead)).Get("/{staffID}/trend", h.handleTrend)
		r.With(middleware.RequirePermission(auth.PermScoresRead)).Get("/{staffID}/report.pdf", h.handleReport)
	})
	r.With(middleware.RequireAuth).Get("/dashboard", h.handleDashboard)
}

type scoreResponse struct {
	Staff     staff.Profile     `json:"staff"`
	Period    string            `json:"period"`
	Score     int               `json:"score"`
	Breakdown scoring.Breakdown `json:"breakdown"`
}

// target resolves the staff path parameter against the snapshot and checks
// that the caller may see it. Unknown and hidden profiles both read as 404.
func (h *Handler) target(w http.ResponseWriter, r *http.Request, param, reqID string) (staff.Profile, bool) {
	user, _ := middleware.GetUser(r.Context())
	id, ok := shared.PathID(w, r, param, reqID)
	if !ok {
		return staff.Profile{}, false
	}
	snap := h.Cache.Snapshot()
	p, found := staff.Index(snap.Profiles())[id]
	if !found || !shared.CanView(user, snap.Resolver(), id) {
		api.Fail(w, http.StatusNotFound, "not_found", "staff profile not found", reqID)
		return staff.Profile{}, false
	}
	return p, true
}

func (h *Handler) period(w http.ResponseWriter, r *http.Request, reqID string) (period.Period, bool) {
	q := r.URL.Query()
	v := shared.NewValidator()
	p, _ := v.PeriodParam(q.Get("period"), q.Get("kind"), h.Now(), h.Location)
	if v.Reject(w, reqID) {
		return period.Period{}, false
	}
	return p, true
}

func (h *Handler) handleScore(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	target, ok := h.target(w, r, "staffID", reqID)
	if !ok {
		return
	}
	p, ok := h.period(w, r, reqID)
	if !ok {
		return
	}
	b := h.Engine.Breakdown(target.ID, p)
	api.Success(w, scoreResponse{Staff: target, Period: p.Key(), Score: b.Score, Breakdown: b}, reqID)
}

func (h *Handler) handleTrend(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	target, ok := h.target(w, r, "staffID", reqID)
	if !ok {
		return
	}
	q := r.URL.Query()
	v := shared.NewValidator()
	kind := period.KindMonth
	if raw := q.Get("kind"); raw != "" {
		v.Enum("kind", raw, []string{string(period.KindMonth), string(period.KindWeek)}, "must be month or week")
		kind = period.Kind(raw)
	}
	count := v.IntParam("count", q.Get("count"), defaultTrendCount, 1, maxTrendCount)
	if v.Reject(w, reqID) {
		return
	}

	periods, err := period.Recent(kind, h.Now().In(h.Location), count)
	if err != nil {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "kind", Reason: "must be month or week"}})
		return
	}
	api.Success(w, h.Engine.Trend(target.ID, periods), reqID)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	target, ok := h.target(w, r, "staffID", reqID)
	if !ok {
		return
	}
	p, ok := h.period(w, r, reqID)
	if !ok {
		return
	}

	card := reports.ScoreCard{
		Staff:       target,
		Breakdown:   h.Engine.Breakdown(target.ID, p),
		GeneratedAt: h.Now().In(h.Location),
	}
	if sup, found := h.Cache.Snapshot().Resolver().DirectorOf(target.ID); found {
		card.Reviewer = sup.DisplayName
	}
	if trend, err := period.Recent(p.Kind, p.Start, defaultTrendCount); err == nil {
		card.Trend = h.Engine.Trend(target.ID, trend)
	}

	var buf bytes.Buffer
	if err := reports.RenderPDF(&buf, card); err != nil {
		slog.Warn("render score card failed", "staffId", target.ID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to render report", reqID)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=scorecard-%s-%s.pdf", target.Handle, p.Key()))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("write score card failed", "err", err)
	}
}

type teamResponse struct {
	Director staff.Profile         `json:"director"`
	Period   string                `json:"period"`
	Members  []scoring.MemberScore `json:"members"`
}

func (h *Handler) handleTeam(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	director, ok := h.target(w, r, "directorID", reqID)
	if !ok {
		return
	}
	if director.Role != staff.RoleDirector {
		api.Fail(w, http.StatusNotFound, "not_found", "director not found", reqID)
		return
	}
	if user.Role == staff.RoleDirector && user.UserID != director.ID && !h.Cache.Snapshot().Resolver().Oversees(user.UserID, director.ID) {
		api.Fail(w, http.StatusNotFound, "not_found", "director not found", reqID)
		return
	}
	p, ok := h.period(w, r, reqID)
	if !ok {
		return
	}

	resolver := h.Cache.Snapshot().Resolver()
	members := append(resolver.AssignedClinicians(director.ID), resolver.AssignedDirectors(director.ID)...)
	api.Success(w, teamResponse{Director: director, Period: p.Key(), Members: h.Engine.Team(members, p)}, reqID)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	p, ok := h.period(w, r, reqID)
	if !ok {
		return
	}
	snap := h.Cache.Snapshot()
	me, found := staff.Index(snap.Profiles())[user.UserID]
	if !found {
		api.Fail(w, http.StatusNotFound, "not_found", "profile not found", reqID)
		return
	}
	api.Success(w, reports.BuildDashboard(me, p, snap.Profiles(), snap.ReviewItems(), snap.Resolver(), h.Engine), reqID)
}
