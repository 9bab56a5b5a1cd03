package staff

import "context"

type StoreAPI interface {
	ListPositions(ctx context.Context) ([]Position, error)
	GetPosition(ctx context.Context, positionID string) (Position, error)
	ListProfiles(ctx context.Context) ([]Profile, error)
	GetProfile(ctx context.Context, profileID string) (Profile, error)
	FindByHandle(ctx context.Context, handle string) (Profile, error)
	HandleTaken(ctx context.Context, handle string) (bool, error)
	CreateProfile(ctx context.Context, displayName, handle, passwordHash, positionID string) (Profile, error)
	UpdateProfile(ctx context.Context, profileID, displayName, positionID string) (Profile, error)
	SetAccept(ctx context.Context, profileID string, accept bool) (Profile, error)
}
