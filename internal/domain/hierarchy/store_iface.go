package hierarchy

import "context"

type StoreAPI interface {
	List(ctx context.Context) ([]Assignment, error)
	Create(ctx context.Context, subordinateID, supervisorID string) (Assignment, error)
	Delete(ctx context.Context, subordinateID, supervisorID string) (int64, error)
}
