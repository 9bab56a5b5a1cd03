package review

import (
	"context"

	"kpireview/internal/domain/period"
)

// Tx is the set of writes available while the (staff, KPI) lock is held.
type Tx interface {
	// DeleteInPeriod removes the approved staff member's items for the KPI
	// inside p and returns their file URLs.
	DeleteInPeriod(ctx context.Context, staffID, kpiID string, p period.Period) ([]string, error)
	Insert(ctx context.Context, item Item) (Item, error)
}

type StoreAPI interface {
	// Reconcile runs fn in one transaction serialized per (staff, KPI).
	Reconcile(ctx context.Context, staffID, kpiID string, fn func(tx Tx) error) error
	Get(ctx context.Context, id string) (Item, error)
	List(ctx context.Context, filter Filter) ([]Item, error)
	Update(ctx context.Context, item Item) (Item, error)
	Delete(ctx context.Context, id string) (Item, error)
}
