package audithandler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"kpireview/internal/domain/auth"
	"kpireview/internal/domain/staff"
	"kpireview/internal/transport/http/middleware"
)

func TestFilterFromDateRange(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		ok     bool
		wantTo time.Time
	}{
		{name: "no range", query: "", ok: true},
		{name: "inclusive end day", query: "from=2025-03-01&to=2025-03-31", ok: true, wantTo: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)},
		{name: "reversed", query: "from=2025-03-10&to=2025-03-01", ok: false},
		{name: "garbage", query: "from=yesterday", ok: false},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/audit?"+tc.query, nil)
			filter, ok := filterFrom(rec, req, "req-1")
			if ok != tc.ok {
				t.Fatalf("expected ok=%v, got %v (status %d)", tc.ok, ok, rec.Code)
			}
			if !ok && rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if ok && !filter.To.Equal(tc.wantTo) {
				t.Fatalf("expected to=%v, got %v", tc.wantTo, filter.To)
			}
		})
	}
}

func TestAuditRequiresPermission(t *testing.T) {
	h := NewHandler(nil)
	r := newTestRouter(h, staff.RoleDirector)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func newTestRouter(h *Handler, role staff.Role) http.Handler {
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
