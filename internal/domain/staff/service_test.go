package staff

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

type fakeStore struct {
	positions map[string]Position
	profiles  map[string]Profile
	seq       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		positions: map[string]Position{
			"pos-clin": {ID: "pos-clin", Name: "Clinician", Role: RoleClinician},
			"pos-dir":  {ID: "pos-dir", Name: "Director", Role: RoleDirector},
		},
		profiles: map[string]Profile{},
	}
}

func (f *fakeStore) ListPositions(ctx context.Context) ([]Position, error) {
	var out []Position
	for _, p := range f.positions {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeStore) GetPosition(ctx context.Context, positionID string) (Position, error) {
	p, ok := f.positions[positionID]
	if !ok {
		return Position{}, ErrPositionNotFound
	}
	return p, nil
}

func (f *fakeStore) ListProfiles(ctx context.Context) ([]Profile, error) {
	var out []Profile
	for _, p := range f.profiles {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeStore) GetProfile(ctx context.Context, profileID string) (Profile, error) {
	p, ok := f.profiles[profileID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) FindByHandle(ctx context.Context, handle string) (Profile, error) {
	for _, p := range f.profiles {
		if strings.EqualFold(p.Handle, handle) {
			return p, nil
		}
	}
	return Profile{}, ErrNotFound
}

func (f *fakeStore) HandleTaken(ctx context.Context, handle string) (bool, error) {
	_, err := f.FindByHandle(ctx, handle)
	return err == nil, nil
}

func (f *fakeStore) CreateProfile(ctx context.Context, displayName, handle, passwordHash, positionID string) (Profile, error) {
	f.seq++
	pos := f.positions[positionID]
	p := Profile{
		ID:           fmt.Sprintf("p%d", f.seq),
		DisplayName:  displayName,
		Handle:       handle,
		PasswordHash: passwordHash,
		PositionID:   positionID,
		PositionName: pos.Name,
		Role:         pos.Role,
	}
	f.profiles[p.ID] = p
	return p, nil
}

func (f *fakeStore) UpdateProfile(ctx context.Context, profileID, displayName, positionID string) (Profile, error) {
	p, ok := f.profiles[profileID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	p.DisplayName = displayName
	p.PositionID = positionID
	p.Role = f.positions[positionID].Role
	f.profiles[profileID] = p
	return p, nil
}

func (f *fakeStore) SetAccept(ctx context.Context, profileID string, accept bool) (Profile, error) {
	p, ok := f.profiles[profileID]
	if !ok {
		return Profile{}, ErrNotFound
	}
	p.Accept = accept
	f.profiles[profileID] = p
	return p, nil
}

func TestRegisterCreatesUnapprovedProfile(t *testing.T) {
	svc := NewService(newFakeStore())
	p, err := svc.Register(context.Background(), " Dana Reyes ", "dreyes", "hash", "pos-clin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Accept {
		t.Fatal("new profiles must start unapproved")
	}
	if p.DisplayName != "Dana Reyes" || p.Role != RoleClinician {
		t.Fatalf("unexpected profile: %+v", p)
	}

	if _, err := svc.Register(context.Background(), "Other", "DREYES", "hash", "pos-clin"); !errors.Is(err, ErrHandleTaken) {
		t.Fatalf("expected ErrHandleTaken, got %v", err)
	}
	if _, err := svc.Register(context.Background(), "Other", "other", "hash", "missing"); !errors.Is(err, ErrPositionNotFound) {
		t.Fatalf("expected ErrPositionNotFound, got %v", err)
	}
	if _, err := svc.Register(context.Background(), "", "x", "hash", "pos-clin"); !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("expected ErrInvalidProfile, got %v", err)
	}
}

func TestGetApprovedHidesUnapprovedProfiles(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	p, err := svc.Register(context.Background(), "Sam", "sam", "hash", "pos-dir")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.GetApproved(context.Background(), p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unapproved profile, got %v", err)
	}
	if _, err := svc.Approve(context.Background(), p.ID, true); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if _, err := svc.GetApproved(context.Background(), p.ID); err != nil {
		t.Fatalf("expected approved profile, got %v", err)
	}
}

func TestListFiltersAndSorts(t *testing.T) {
	store := newFakeStore()
	store.profiles["a"] = Profile{ID: "a", DisplayName: "Zoe", Role: RoleClinician, Accept: true}
	store.profiles["b"] = Profile{ID: "b", DisplayName: "Adam", Role: RoleClinician, Accept: true}
	store.profiles["c"] = Profile{ID: "c", DisplayName: "Bea", Role: RoleClinician, Accept: false}
	store.profiles["d"] = Profile{ID: "d", DisplayName: "Carl", Role: RoleDirector, Accept: true}

	svc := NewService(store)
	got, err := svc.List(context.Background(), Filter{ApprovedOnly: true, Role: RoleClinician})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
		t.Fatalf("unexpected list: %+v", got)
	}
}

func TestUpdateKeepsFieldsWhenEmpty(t *testing.T) {
	store := newFakeStore()
	store.profiles["a"] = Profile{ID: "a", DisplayName: "Zoe", PositionID: "pos-clin", Role: RoleClinician}
	svc := NewService(store)

	p, err := svc.Update(context.Background(), "a", "", "pos-dir")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.DisplayName != "Zoe" || p.Role != RoleDirector {
		t.Fatalf("unexpected profile: %+v", p)
	}
	if _, err := svc.Update(context.Background(), "a", "Zoe", "missing"); !errors.Is(err, ErrPositionNotFound) {
		t.Fatalf("expected ErrPositionNotFound, got %v", err)
	}
}
