package kpigroup

import "context"

type StoreAPI interface {
	Titles(ctx context.Context, directorID string) ([]string, error)
	KPIs(ctx context.Context, directorID, title string) ([]string, error)
	Exists(ctx context.Context, directorID, title string) (bool, error)
	// Create inserts a new group, or returns ErrDuplicateTitle when the
	// director already has one with this title.
	Create(ctx context.Context, directorID, title string, kpiIDs []string) error
	// Replace swaps the group's rows in one transaction, or returns
	// ErrNotFound when the group does not exist.
	Replace(ctx context.Context, directorID, title string, kpiIDs []string) error
	Delete(ctx context.Context, directorID, title string) (int64, error)
}
