package kpigroup

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
)

type key struct{ director, title string }

type memStore struct {
	mu     sync.Mutex
	groups map[key][]string
}

func (m *memStore) Titles(ctx context.Context, directorID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.groups {
		if k.director == directorID {
			out = append(out, k.title)
		}
	}
	return out, nil
}

func (m *memStore) KPIs(ctx context.Context, directorID, title string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.groups[key{directorID, title}]...), nil
}

func (m *memStore) Exists(ctx context.Context, directorID, title string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.groups[key{directorID, title}]
	return ok, nil
}

func (m *memStore) Create(ctx context.Context, directorID, title string, kpiIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{directorID, title}
	if _, ok := m.groups[k]; ok {
		return ErrDuplicateTitle
	}
	m.groups[k] = append([]string(nil), kpiIDs...)
	return nil
}

func (m *memStore) Replace(ctx context.Context, directorID, title string, kpiIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{directorID, title}
	if _, ok := m.groups[k]; !ok {
		return ErrNotFound
	}
	m.groups[k] = append([]string(nil), kpiIDs...)
	return nil
}

func (m *memStore) Delete(ctx context.Context, directorID, title string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{directorID, title}
	n := int64(len(m.groups[k]))
	delete(m.groups, k)
	return n, nil
}

type activeSet map[string]bool

func (a activeSet) Active(ctx context.Context, id string) (bool, error) {
	return a[id], nil
}

func newTestService() *Service {
	return NewService(&memStore{groups: map[key][]string{}}, activeSet{"a": true, "b": true, "c": true, "d": true})
}

func TestCreateThenDeleteGroup(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.CreateGroup(ctx, "Core Set", "D", []string{"a", "b"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	exists, err := svc.TitleExists(ctx, "Core Set", "D")
	if err != nil || !exists {
		t.Fatalf("expected group to exist, got %v %v", exists, err)
	}
	if exists, _ := svc.TitleExists(ctx, "Core Set", "other-director"); exists {
		t.Fatalf("expected titles scoped per director")
	}
	if err := svc.DeleteGroup(ctx, "Core Set", "D"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if exists, _ := svc.TitleExists(ctx, "Core Set", "D"); exists {
		t.Fatalf("expected group gone after delete")
	}
	if err := svc.DeleteGroup(ctx, "Core Set", "D"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateGroupReplacesMembershipExactly(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.CreateGroup(ctx, "Core Set", "D", []string{"a", "b", "c"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.UpdateGroup(ctx, "Core Set", "D", []string{"d", "b"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := svc.ListKPIsInGroup(ctx, "D", "Core Set")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	sort.Strings(got)
	if len(got) != 2 || got[0] != "b" || got[1] != "d" {
		t.Fatalf("expected exactly [b d], got %v", got)
	}
	if _, err := svc.UpdateGroup(ctx, "Missing", "D", []string{"a"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateGroupValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.CreateGroup(ctx, "  ", "D", []string{"a"}); !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("expected ErrTitleRequired, got %v", err)
	}
	if _, err := svc.CreateGroup(ctx, "Empty", "D", []string{" ", ""}); !errors.Is(err, ErrNoKPIs) {
		t.Fatalf("expected ErrNoKPIs, got %v", err)
	}
	if _, err := svc.CreateGroup(ctx, "Bad", "D", []string{"a", "zzz"}); !errors.Is(err, ErrUnknownKPI) {
		t.Fatalf("expected ErrUnknownKPI, got %v", err)
	}

	g, err := svc.CreateGroup(ctx, " Morning ", "D", []string{"a", "a", "b"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if g.Title != "Morning" || len(g.KPIIDs) != 2 {
		t.Fatalf("expected trimmed title and deduplicated ids, got %+v", g)
	}
	if _, err := svc.CreateGroup(ctx, "Morning", "D", []string{"c"}); !errors.Is(err, ErrDuplicateTitle) {
		t.Fatalf("expected ErrDuplicateTitle, got %v", err)
	}

	titles, _ := svc.ListGroupTitles(ctx, "D")
	if len(titles) != 1 || titles[0] != "Morning" {
		t.Fatalf("unexpected titles %v", titles)
	}
}

func TestConcurrentCreateKeepsOneMembership(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	sets := [][]string{{"a", "b"}, {"c", "d"}}
	errs := make([]error, len(sets))
	var wg sync.WaitGroup
	for i, ids := range sets {
		i, ids := i, ids
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.CreateGroup(ctx, "Night Shift", "D", ids)
		}()
	}
	wg.Wait()

	winner := -1
	for i, err := range errs {
		switch {
		case err == nil:
			winner = i
		case !errors.Is(err, ErrDuplicateTitle):
			t.Fatalf("create %d: unexpected error %v", i, err)
		}
	}
	if winner < 0 || errs[1-winner] == nil {
		t.Fatalf("expected exactly one create to win, got %v", errs)
	}
	got, _ := svc.ListKPIsInGroup(ctx, "D", "Night Shift")
	sort.Strings(got)
	if len(got) != 2 || got[0] != sets[winner][0] || got[1] != sets[winner][1] {
		t.Fatalf("expected only the winning membership %v, got %v", sets[winner], got)
	}
}

func TestUpdateMissingGroup(t *testing.T) {
	svc := newTestService()
	if _, err := svc.UpdateGroup(context.Background(), "Ghost", "D", []string{"a"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
