package kpi

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrNotFound      = errors.New("kpi not found")
	ErrInvalidWeight = errors.New("kpi weight must be a positive integer")
	ErrTitleRequired = errors.New("kpi title required")
)

type Service struct {
	Store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{Store: store}
}

func (d Details) normalize() (Details, error) {
	d.Title = strings.TrimSpace(d.Title)
	d.Description = strings.TrimSpace(d.Description)
	d.Floor = strings.TrimSpace(d.Floor)
	if d.Title == "" {
		return d, ErrTitleRequired
	}
	if d.Weight <= 0 {
		return d, ErrInvalidWeight
	}
	return d, nil
}

func (s *Service) List(ctx context.Context, includeRemoved bool) ([]KPI, error) {
	kpis, err := s.Store.List(ctx)
	if err != nil {
		return nil, err
	}
	if includeRemoved {
		return kpis, nil
	}
	return Active(kpis), nil
}

// ListAll feeds the entity store and includes removed KPIs.
func (s *Service) ListAll(ctx context.Context) ([]KPI, error) {
	return s.Store.List(ctx)
}

func (s *Service) Get(ctx context.Context, kpiID string) (KPI, error) {
	return s.Store.Get(ctx, kpiID)
}

func (s *Service) Create(ctx context.Context, details Details) (KPI, error) {
	details, err := details.normalize()
	if err != nil {
		return KPI{}, err
	}
	return s.Store.Create(ctx, details)
}

func (s *Service) Update(ctx context.Context, kpiID string, details Details) (KPI, error) {
	details, err := details.normalize()
	if err != nil {
		return KPI{}, err
	}
	return s.Store.Update(ctx, kpiID, details)
}

func (s *Service) SoftDelete(ctx context.Context, kpiID string) (KPI, error) {
	return s.Store.SetRemoved(ctx, kpiID, true)
}

func (s *Service) Restore(ctx context.Context, kpiID string) (KPI, error) {
	return s.Store.SetRemoved(ctx, kpiID, false)
}

// Delete removes the KPI permanently. Review items keep their recorded weight.
func (s *Service) Delete(ctx context.Context, kpiID string) error {
	return s.Store.Delete(ctx, kpiID)
}

// Active reports whether the KPI exists and is not soft-deleted.
func (s *Service) Active(ctx context.Context, kpiID string) (bool, error) {
	k, err := s.Store.Get(ctx, kpiID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !k.Removed, nil
}
