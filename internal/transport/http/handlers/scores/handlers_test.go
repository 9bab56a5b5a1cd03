package scorehandler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"kpireview/internal/domain/auth"
	"kpireview/internal/domain/entitystore"
	"kpireview/internal/domain/hierarchy"
	"kpireview/internal/domain/kpi"
	"kpireview/internal/domain/review"
	"kpireview/internal/domain/scoring"
	"kpireview/internal/domain/staff"
	"kpireview/internal/transport/http/middleware"
)

const (
	directorID  = "11111111-1111-4111-8111-111111111111"
	clinicianID = "22222222-2222-4222-8222-222222222222"
	otherDirID  = "33333333-3333-4333-8333-333333333333"
	otherClinID = "44444444-4444-4444-8444-444444444444"
	pendingID   = "55555555-5555-4555-8555-555555555555"
)

type listSource[T any] []T

func (s listSource[T]) ListAll(ctx context.Context) ([]T, error) { return s, nil }

func march(day int) time.Time { return time.Date(2025, 3, day, 9, 0, 0, 0, time.UTC) }

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	profiles := []staff.Profile{
		{ID: directorID, DisplayName: "Dana", Handle: "dana", Role: staff.RoleDirector, Accept: true},
		{ID: clinicianID, DisplayName: "Casey", Handle: "casey", Role: staff.RoleClinician, Accept: true},
		{ID: otherDirID, DisplayName: "Eli", Handle: "eli", Role: staff.RoleDirector, Accept: true},
		{ID: otherClinID, DisplayName: "Fran", Handle: "fran", Role: staff.RoleClinician, Accept: true},
		{ID: pendingID, DisplayName: "Gale", Handle: "gale", Role: staff.RoleClinician},
	}
	assignments := []hierarchy.Assignment{
		{ID: "a1", SubordinateID: clinicianID, SupervisorID: directorID},
		{ID: "a2", SubordinateID: otherClinID, SupervisorID: otherDirID},
	}
	kpis := []kpi.KPI{
		{ID: "k1", Title: "Charting", Weight: 3, Floor: "2"},
		{ID: "k2", Title: "Hand hygiene", Weight: 1, Floor: "2"},
	}
	items := []review.Item{
		{ID: "r1", StaffID: clinicianID, KPIID: "k1", Met: true, Score: 3, KPIWeight: 3, ReviewedAt: march(3)},
		{ID: "r2", StaffID: clinicianID, KPIID: "k2", Met: false, Notes: "missed", Plan: "audit", KPIWeight: 1, ReviewedAt: march(4)},
		{ID: "r3", StaffID: otherClinID, KPIID: "k1", Met: true, Score: 3, KPIWeight: 3, ReviewedAt: march(5)},
	}

	store := entitystore.New(entitystore.Sources{
		KPIs:        listSource[kpi.KPI](kpis),
		Profiles:    listSource[staff.Profile](profiles),
		Assignments: listSource[hierarchy.Assignment](assignments),
		ReviewItems: listSource[review.Item](items),
	})
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	engine := scoring.NewEngine(func() scoring.Source { return store.Snapshot() })

	roles := map[string]staff.Role{}
	for _, p := range profiles {
		roles[p.ID] = p.Role
	}
	h := NewHandler(engine, store, time.UTC)
	h.Now = func() time.Time { return march(20) }

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := r.Header.Get("X-Test-User"); id != "" {
				r = r.WithContext(middleware.WithUser(r.Context(), auth.UserContext{UserID: id, Role: roles[id]}))
			}
			next.ServeHTTP(w, r)
		})
	})
	h.RegisterRoutes(r)
	return r
}

func get(t *testing.T, h http.Handler, path, userID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("X-Test-User", userID)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("decode data: %v", err)
	}
}

func TestScoreIsWeightedPercent(t *testing.T) {
	router := newRouter(t)

	rec := get(t, router, "/scores/"+clinicianID+"?period=2025-03", directorID)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body %s", rec.Code, rec.Body.String())
	}
	var out scoreResponse
	decode(t, rec, &out)
	if out.Score != 75 || out.Breakdown.Possible != 4 || out.Breakdown.Earned != 3 {
		t.Fatalf("expected 3/4 = 75, got %+v", out.Breakdown)
	}
	if len(out.Breakdown.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(out.Breakdown.Rows))
	}
}

func TestScoreVisibility(t *testing.T) {
	router := newRouter(t)

	tests := []struct {
		name   string
		user   string
		target string
		want   int
	}{
		{name: "self", user: clinicianID, target: clinicianID, want: http.StatusOK},
		{name: "supervisor", user: directorID, target: clinicianID, want: http.StatusOK},
		{name: "other team", user: otherDirID, target: clinicianID, want: http.StatusNotFound},
		{name: "peer clinician", user: otherClinID, target: clinicianID, want: http.StatusNotFound},
		{name: "unknown id", user: directorID, target: "99999999-9999-4999-8999-999999999999", want: http.StatusNotFound},
		{name: "not a uuid", user: directorID, target: "abc", want: http.StatusNotFound},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if rec := get(t, router, "/scores/"+tc.target+"?period=2025-03", tc.user); rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestUnapprovedScoresZero(t *testing.T) {
	router := newRouter(t)
	rec := get(t, router, "/scores/"+pendingID, pendingID)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var out scoreResponse
	decode(t, rec, &out)
	if out.Score != 0 || out.Period != "2025-03" {
		t.Fatalf("expected a zero score for the current month, got %+v", out)
	}
}

func TestTrend(t *testing.T) {
	router := newRouter(t)

	rec := get(t, router, "/scores/"+clinicianID+"/trend?count=3", clinicianID)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body %s", rec.Code, rec.Body.String())
	}
	var points []scoring.Point
	decode(t, rec, &points)
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}

	for _, q := range []string{"count=0", "count=100", "kind=year"} {
		if rec := get(t, router, "/scores/"+clinicianID+"/trend?"+q, clinicianID); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", q, rec.Code)
		}
	}
}

func TestTeam(t *testing.T) {
	router := newRouter(t)

	rec := get(t, router, "/scores/team/"+directorID+"?period=2025-03", directorID)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body %s", rec.Code, rec.Body.String())
	}
	var out teamResponse
	decode(t, rec, &out)
	if len(out.Members) != 1 || out.Members[0].Profile.ID != clinicianID || out.Members[0].Score != 75 {
		t.Fatalf("unexpected team: %+v", out.Members)
	}

	if rec := get(t, router, "/scores/team/"+otherDirID, directorID); rec.Code != http.StatusNotFound {
		t.Fatalf("another director's team: expected 404, got %d", rec.Code)
	}
	if rec := get(t, router, "/scores/team/"+directorID, clinicianID); rec.Code != http.StatusForbidden {
		t.Fatalf("clinician: expected 403, got %d", rec.Code)
	}
}

func TestReportPDF(t *testing.T) {
	router := newRouter(t)

	rec := get(t, router, "/scores/"+clinicianID+"/report.pdf?period=2025-03", directorID)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("body is not a pdf")
	}
}

func TestDashboardRequiresLogin(t *testing.T) {
	router := newRouter(t)
	if rec := get(t, router, "/dashboard", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec := get(t, router, "/dashboard?period=2025-03", directorID); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body %s", rec.Code, rec.Body.String())
	}
}
