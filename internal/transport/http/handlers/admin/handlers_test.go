package adminhandler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"kpireview/internal/domain/auth"
	"kpireview/internal/domain/entitystore"
	"kpireview/internal/domain/staff"
	"kpireview/internal/platform/jobs"
	"kpireview/internal/transport/http/middleware"
)

type fakeStore struct{ version uint64 }

func (f *fakeStore) Version() uint64 { return f.version }

func (f *fakeStore) LoadedAt() map[entitystore.Collection]time.Time {
	return map[entitystore.Collection]time.Time{entitystore.KPIs: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
}

func newRouter(store *fakeStore, refresh jobs.RunFunc, role staff.Role) http.Handler {
	h := NewHandler(store, jobs.New(nil), refresh, nil)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithUser(r.Context(), auth.UserContext{UserID: "u1", Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	h.RegisterRoutes(r)
	return r
}

func TestRefreshRunsJob(t *testing.T) {
	store := &fakeStore{version: 1}
	router := newRouter(store, func(ctx context.Context) (any, error) {
		store.version++
		return nil, nil
	}, staff.RoleSuperAdmin)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/refresh", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"version":2`) {
		t.Fatalf("expected bumped version in body, got %s", rec.Body.String())
	}
}

func TestRefreshReportsPartialFailure(t *testing.T) {
	router := newRouter(&fakeStore{version: 4}, func(ctx context.Context) (any, error) {
		return nil, errors.New("load review_items: timeout")
	}, staff.RoleSuperAdmin)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/refresh", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "timeout") {
		t.Fatalf("expected errors listed, got %s", rec.Body.String())
	}
}

func TestAdminRequiresSuperAdmin(t *testing.T) {
	router := newRouter(&fakeStore{}, func(ctx context.Context) (any, error) { return nil, nil }, staff.RoleDirector)
	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodPost, "/admin/refresh", nil),
		httptest.NewRequest(http.MethodGet, "/admin/cache", nil),
		httptest.NewRequest(http.MethodGet, "/admin/jobs", nil),
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("%s %s: expected 403, got %d", req.Method, req.URL.Path, rec.Code)
		}
	}
}

func TestJobsRejectsBadLimit(t *testing.T) {
	router := newRouter(&fakeStore{}, nil, staff.RoleSuperAdmin)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/jobs?limit=0", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
