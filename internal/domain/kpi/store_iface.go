package kpi

import "context"

type StoreAPI interface {
	List(ctx context.Context) ([]KPI, error)
	Get(ctx context.Context, kpiID string) (KPI, error)
	Create(ctx context.Context, details Details) (KPI, error)
	Update(ctx context.Context, kpiID string, details Details) (KPI, error)
	SetRemoved(ctx context.Context, kpiID string, removed bool) (KPI, error)
	Delete(ctx context.Context, kpiID string) error
}
