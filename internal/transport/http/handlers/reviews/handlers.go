package reviewhandler

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"kpireview/internal/domain/audit"
	"kpireview/internal/domain/auth"
	"kpireview/internal/domain/entitystore"
	"kpireview/internal/domain/hierarchy"
	"kpireview/internal/domain/review"
	"kpireview/internal/domain/staff"
	"kpireview/internal/platform/filestore"
	"kpireview/internal/transport/http/api"
	"kpireview/internal/transport/http/middleware"
	"kpireview/internal/transport/http/shared"
)

type Metrics interface {
	ReviewReplaced()
}

type Handler struct {
	Service        *review.Service
	Audit          shared.AuditRecorder
	Cache          shared.Cache
	Metrics        Metrics
	Location       *time.Location
	MaxUploadBytes int64
	Now            func() time.Time
	// Throttle caps writes per (director, staff member); nil disables it.
	Throttle       *middleware.Throttle
}

func NewHandler(service *review.Service, auditSvc shared.AuditRecorder, cache shared.Cache, metrics Metrics, loc *time.Location, maxUploadBytes int64) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = filestore.MaxUploadBytes
	}
	return &Handler{
		Service:        service,
		Audit:          auditSvc,
		Cache:          cache,
		Metrics:        metrics,
		Location:       loc,
		MaxUploadBytes: maxUploadBytes,
		Now:            time.Now,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reviews", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermReviewRead)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermReviewRead)).Get("/{reviewID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermReviewWrite)).Post("/", h.handleReplace)
		r.With(middleware.RequirePermission(auth.PermReviewWrite)).Put("/{reviewID}", h.handleUpdate)
		r.With(middleware.RequirePermission(auth.PermReviewWrite)).Delete("/{reviewID}", h.handleDelete)
	})
}

// admitWrite charges one write against the reviewer's budget for staffID.
func (h *Handler) admitWrite(w http.ResponseWriter, r *http.Request, actorID, staffID string) bool {
	return middleware.Admit(w, r, h.Throttle.Take(actorID+"|"+staffID))
}

// canWrite: only the direct supervisor records reviews, plus super-admins.
func canWrite(user auth.UserContext, resolver *hierarchy.Resolver, staffID string) bool {
	if user.Role == staff.RoleSuperAdmin {
		return true
	}
	return user.Role == staff.RoleDirector && user.UserID != staffID && resolver.Reviews(user.UserID, staffID)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	q := r.URL.Query()

	v := shared.NewValidator()
	filter := review.Filter{StaffID: q.Get("staffId"), KPIID: q.Get("kpiId"), DirectorID: q.Get("directorId")}
	if filter.StaffID != "" {
		v.ID("staffId", filter.StaffID)
	}
	if filter.KPIID != "" {
		v.ID("kpiId", filter.KPIID)
	}
	if key := q.Get("period"); key != "" {
		p, ok := v.PeriodParam(key, "", h.Now(), h.Location)
		if ok {
			filter.Period = &p
		}
	}
	if v.Reject(w, reqID) {
		return
	}

	snap := h.Cache.Snapshot()
	resolver := snap.Resolver()
	if filter.StaffID != "" && !shared.CanView(user, resolver, filter.StaffID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed to view this staff member", reqID)
		return
	}

	out := make([]review.Item, 0)
	for _, it := range snap.ReviewItems() {
		if filter.Match(it) && shared.CanView(user, resolver, it.StaffID) {
			out = append(out, it)
		}
	}
	api.Success(w, out, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	id, ok := shared.PathID(w, r, "reviewID", reqID)
	if !ok {
		return
	}
	item, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err, "review_get_failed", reqID)
		return
	}
	if !shared.CanView(user, h.Cache.Snapshot().Resolver(), item.StaffID) {
		api.Fail(w, http.StatusNotFound, "not_found", "review not found", reqID)
		return
	}
	api.Success(w, item, reqID)
}

type reviewPayload struct {
	StaffID    string `json:"staffId"`
	KPIID      string `json:"kpiId"`
	Period     string `json:"period"`
	Kind       string `json:"kind"`
	Met        bool   `json:"met"`
	Notes      string `json:"notes"`
	Plan       string `json:"plan"`
	ReviewedAt string `json:"reviewedAt"`

	file *review.Attachment
}

func (h *Handler) handleReplace(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	payload, ok := h.decode(w, r, reqID)
	if !ok {
		return
	}

	v := shared.NewValidator()
	v.ID("staffId", payload.StaffID)
	v.ID("kpiId", payload.KPIID)
	reviewedAt := h.parseTime(v, payload.ReviewedAt)
	anchor := h.Now()
	if !reviewedAt.IsZero() {
		anchor = reviewedAt
	}
	p, _ := v.PeriodParam(payload.Period, payload.Kind, anchor, h.Location)
	if v.Reject(w, reqID) {
		return
	}

	if !canWrite(user, h.Cache.Snapshot().Resolver(), payload.StaffID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "only the assigned director may review this staff member", reqID)
		return
	}
	if !h.admitWrite(w, r, user.UserID, payload.StaffID) {
		return
	}

	item, err := h.Service.ReplaceReview(r.Context(), payload.StaffID, payload.KPIID, p, review.Submission{
		DirectorID: user.UserID,
		Met:        payload.Met,
		Notes:      payload.Notes,
		Plan:       payload.Plan,
		ReviewedAt: reviewedAt,
		File:       payload.file,
	})
	if err != nil {
		h.fail(w, err, "review_replace_failed", reqID)
		return
	}
	if h.Metrics != nil {
		h.Metrics.ReviewReplaced()
	}
	shared.Audit(r, h.Audit, user.UserID, audit.ActionReplace, "review_item", item.ID, map[string]string{"period": p.Key()}, item)
	shared.Refresh(r.Context(), h.Cache, entitystore.ReviewItems)
	api.Created(w, item, reqID)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	id, ok := shared.PathID(w, r, "reviewID", reqID)
	if !ok {
		return
	}
	payload, ok := h.decode(w, r, reqID)
	if !ok {
		return
	}
	v := shared.NewValidator()
	reviewedAt := h.parseTime(v, payload.ReviewedAt)
	if v.Reject(w, reqID) {
		return
	}

	current, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err, "review_update_failed", reqID)
		return
	}
	if !canWrite(user, h.Cache.Snapshot().Resolver(), current.StaffID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "only the assigned director may review this staff member", reqID)
		return
	}
	if !h.admitWrite(w, r, user.UserID, current.StaffID) {
		return
	}

	updated, err := h.Service.UpdateReview(r.Context(), id, review.Submission{
		DirectorID: user.UserID,
		Met:        payload.Met,
		Notes:      payload.Notes,
		Plan:       payload.Plan,
		ReviewedAt: reviewedAt,
		File:       payload.file,
	})
	if err != nil {
		h.fail(w, err, "review_update_failed", reqID)
		return
	}
	shared.Audit(r, h.Audit, user.UserID, audit.ActionUpdate, "review_item", id, current, updated)
	shared.Refresh(r.Context(), h.Cache, entitystore.ReviewItems)
	api.Success(w, updated, reqID)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())
	id, ok := shared.PathID(w, r, "reviewID", reqID)
	if !ok {
		return
	}
	current, err := h.Service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err, "review_delete_failed", reqID)
		return
	}
	if !canWrite(user, h.Cache.Snapshot().Resolver(), current.StaffID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "only the assigned director may delete this review", reqID)
		return
	}
	if !h.admitWrite(w, r, user.UserID, current.StaffID) {
		return
	}
	removed, err := h.Service.DeleteReview(r.Context(), id)
	if err != nil {
		h.fail(w, err, "review_delete_failed", reqID)
		return
	}
	shared.Audit(r, h.Audit, user.UserID, audit.ActionDelete, "review_item", id, removed, nil)
	shared.Refresh(r.Context(), h.Cache, entitystore.ReviewItems)
	api.Success(w, map[string]string{"id": id}, reqID)
}

// decode accepts a JSON body or a multipart form whose optional "file" part
// is the attachment.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, reqID string) (reviewPayload, bool) {
	var payload reviewPayload
	contentType := strings.ToLower(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		return payload, shared.DecodeJSON(w, r, &payload, reqID)
	}

	if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", reqID)
			return payload, false
		}
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid multipart form", reqID)
		return payload, false
	}
	if r.MultipartForm != nil {
		defer func() {
			if err := r.MultipartForm.RemoveAll(); err != nil {
				slog.Warn("multipart cleanup failed", "err", err)
			}
		}()
	}

	payload.StaffID = r.FormValue("staffId")
	payload.KPIID = r.FormValue("kpiId")
	payload.Period = r.FormValue("period")
	payload.Kind = r.FormValue("kind")
	payload.Notes = r.FormValue("notes")
	payload.Plan = r.FormValue("plan")
	payload.ReviewedAt = r.FormValue("reviewedAt")
	if raw := r.FormValue("met"); raw != "" {
		met, err := strconv.ParseBool(raw)
		if err != nil {
			shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "met", Reason: "must be true or false"}})
			return payload, false
		}
		payload.Met = met
	}

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return payload, true
	}
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid file part", reqID)
		return payload, false
	}
	defer file.Close()

	attachment, err := readAttachment(file, header, h.MaxUploadBytes)
	if err != nil {
		slog.Warn("read attachment failed", "err", err)
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "could not read file", reqID)
		return payload, false
	}
	payload.file = attachment
	return payload, true
}

// readAttachment buffers at most limit+1 bytes so oversize files are detected
// without reading them whole.
func readAttachment(file multipart.File, header *multipart.FileHeader, limit int64) (*review.Attachment, error) {
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, err
	}
	return &review.Attachment{Name: header.Filename, Size: max(header.Size, int64(len(data))), Data: data}, nil
}

// parseTime accepts RFC 3339 or a plain date in the review time zone.
func (h *Handler) parseTime(v *shared.Validator, raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.In(h.Location)
	}
	if t, err := time.ParseInLocation("2006-01-02", raw, h.Location); err == nil {
		return t
	}
	v.Add("reviewedAt", "must be an RFC 3339 timestamp or YYYY-MM-DD date")
	return time.Time{}
}

func (h *Handler) fail(w http.ResponseWriter, err error, code, reqID string) {
	var verr *review.ValidationError
	switch {
	case errors.As(err, &verr):
		issues := make([]shared.ValidationIssue, 0, len(verr.Issues))
		for _, is := range verr.Issues {
			issues = append(issues, shared.ValidationIssue{Field: is.Field, Reason: is.Reason})
		}
		shared.FailValidation(w, reqID, issues)
	case errors.Is(err, review.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "review not found", reqID)
	case errors.Is(err, review.ErrStaffNotFound):
		api.Fail(w, http.StatusNotFound, "staff_not_found", err.Error(), reqID)
	case errors.Is(err, review.ErrKPINotFound):
		api.Fail(w, http.StatusNotFound, "kpi_not_found", err.Error(), reqID)
	case errors.Is(err, filestore.ErrTooLarge), errors.Is(err, filestore.ErrUnsupportedType):
		api.Fail(w, filestore.MapHTTPStatus(err), "invalid_file", err.Error(), reqID)
	default:
		slog.Warn("review request failed", "code", code, "err", err)
		api.Fail(w, http.StatusInternalServerError, code, "review operation failed", reqID)
	}
}
