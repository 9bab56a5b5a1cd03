package authhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"kpireview/internal/domain/auth"
	"kpireview/internal/domain/staff"
)

type fakeProfiles struct {
	byHandle map[string]staff.Profile
}

func (f *fakeProfiles) FindByHandle(ctx context.Context, handle string) (staff.Profile, error) {
	p, ok := f.byHandle[strings.ToLower(handle)]
	if !ok {
		return staff.Profile{}, staff.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfiles) Register(ctx context.Context, displayName, handle, passwordHash, positionID string) (staff.Profile, error) {
	if _, ok := f.byHandle[strings.ToLower(handle)]; ok {
		return staff.Profile{}, staff.ErrHandleTaken
	}
	p := staff.Profile{ID: "new-" + handle, DisplayName: displayName, Handle: handle, PasswordHash: passwordHash, PositionID: positionID, Role: staff.RoleClinician}
	f.byHandle[strings.ToLower(handle)] = p
	return p, nil
}

func newRouter(t *testing.T, allowSignup bool) (http.Handler, *fakeProfiles) {
	t.Helper()
	hash, err := auth.HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	profiles := &fakeProfiles{byHandle: map[string]staff.Profile{
		"dana":  {ID: "d1", DisplayName: "Dana", Handle: "dana", PasswordHash: hash, Role: staff.RoleDirector, Accept: true},
		"casey": {ID: "c1", DisplayName: "Casey", Handle: "casey", PasswordHash: hash, Role: staff.RoleClinician},
	}}
	h := NewHandler(auth.NewService(profiles, "secret", time.Hour), nil, nil, allowSignup)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r, profiles
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLogin(t *testing.T) {
	router, _ := newRouter(t, true)

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "approved director", body: `{"handle":"dana","password":"correct-horse"}`, want: http.StatusOK},
		{name: "wrong password", body: `{"handle":"dana","password":"nope-nope"}`, want: http.StatusUnauthorized},
		{name: "unknown handle", body: `{"handle":"nobody","password":"correct-horse"}`, want: http.StatusUnauthorized},
		{name: "awaiting approval", body: `{"handle":"casey","password":"correct-horse"}`, want: http.StatusForbidden},
		{name: "missing fields", body: `{"handle":""}`, want: http.StatusBadRequest},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			rec := post(t, router, "/auth/login", tc.body)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestLoginIssuesTokenWithRole(t *testing.T) {
	router, _ := newRouter(t, true)
	rec := post(t, router, "/auth/login", `{"handle":"dana","password":"correct-horse"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var env struct {
		Data loginResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	claims, err := auth.ParseToken("secret", env.Data.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	user, err := claims.User()
	if err != nil || user.UserID != "d1" || user.Role != staff.RoleDirector {
		t.Fatalf("unexpected user %+v (%v)", user, err)
	}
}

func TestSignup(t *testing.T) {
	router, profiles := newRouter(t, true)
	pos := "7f9c2ba4-e88f-11ed-a05b-0242ac120003"

	rec := post(t, router, "/auth/signup", `{"displayName":"Riley","handle":"riley","password":"longenough","positionId":"`+pos+`"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := profiles.byHandle["riley"]
	if created.Accept {
		t.Fatal("new profiles start unapproved")
	}
	if auth.CheckPassword(created.PasswordHash, "longenough") != nil {
		t.Fatal("expected stored bcrypt hash")
	}

	rec = post(t, router, "/auth/signup", `{"displayName":"Dana 2","handle":"dana","password":"longenough","positionId":"`+pos+`"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for taken handle, got %d", rec.Code)
	}

	rec = post(t, router, "/auth/signup", `{"displayName":"Short","handle":"short","password":"abc","positionId":"`+pos+`"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for weak password, got %d", rec.Code)
	}
}

func TestSignupDisabled(t *testing.T) {
	router, _ := newRouter(t, false)
	rec := post(t, router, "/auth/signup", `{"displayName":"Riley","handle":"riley","password":"longenough","positionId":"x"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
