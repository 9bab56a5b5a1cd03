package kpigroup

import (
	"context"
	"errors"
	"sort"
	"strings"
)

var (
	ErrNotFound       = errors.New("kpi group not found")
	ErrTitleRequired  = errors.New("group title required")
	ErrDuplicateTitle = errors.New("group title already exists")
	ErrNoKPIs         = errors.New("group needs at least one kpi")
	ErrUnknownKPI     = errors.New("group references unknown or removed kpi")
)

// KPIChecker reports whether a KPI id may be placed in a group.
type KPIChecker interface {
	Active(ctx context.Context, kpiID string) (bool, error)
}

type Service struct {
	Store StoreAPI
	KPIs  KPIChecker
}

func NewService(store StoreAPI, kpis KPIChecker) *Service {
	return &Service{Store: store, KPIs: kpis}
}

func (s *Service) CreateGroup(ctx context.Context, title, directorID string, kpiIDs []string) (Group, error) {
	title, ids, err := s.normalize(ctx, title, kpiIDs)
	if err != nil {
		return Group{}, err
	}
	if err := s.Store.Create(ctx, directorID, title, ids); err != nil {
		return Group{}, err
	}
	return Group{Title: title, DirectorID: directorID, KPIIDs: ids}, nil
}

// UpdateGroup replaces the membership exactly with kpiIDs.
func (s *Service) UpdateGroup(ctx context.Context, title, directorID string, kpiIDs []string) (Group, error) {
	title, ids, err := s.normalize(ctx, title, kpiIDs)
	if err != nil {
		return Group{}, err
	}
	if err := s.Store.Replace(ctx, directorID, title, ids); err != nil {
		return Group{}, err
	}
	return Group{Title: title, DirectorID: directorID, KPIIDs: ids}, nil
}

func (s *Service) DeleteGroup(ctx context.Context, title, directorID string) error {
	n, err := s.Store.Delete(ctx, directorID, strings.TrimSpace(title))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) ListGroupTitles(ctx context.Context, directorID string) ([]string, error) {
	titles, err := s.Store.Titles(ctx, directorID)
	if err != nil {
		return nil, err
	}
	sort.Strings(titles)
	return titles, nil
}

func (s *Service) ListKPIsInGroup(ctx context.Context, directorID, title string) ([]string, error) {
	return s.Store.KPIs(ctx, directorID, strings.TrimSpace(title))
}

func (s *Service) TitleExists(ctx context.Context, title, directorID string) (bool, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return false, nil
	}
	return s.Store.Exists(ctx, directorID, title)
}

func (s *Service) normalize(ctx context.Context, title string, kpiIDs []string) (string, []string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", nil, ErrTitleRequired
	}
	seen := make(map[string]bool, len(kpiIDs))
	ids := make([]string, 0, len(kpiIDs))
	for _, id := range kpiIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return "", nil, ErrNoKPIs
	}
	if s.KPIs != nil {
		for _, id := range ids {
			ok, err := s.KPIs.Active(ctx, id)
			if err != nil {
				return "", nil, err
			}
			if !ok {
				return "", nil, ErrUnknownKPI
			}
		}
	}
	return title, ids, nil
}
