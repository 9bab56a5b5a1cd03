package staff

import (
	"context"
	"errors"
	"sort"
	"strings"
)

var (
	ErrNotFound         = errors.New("staff profile not found")
	ErrPositionNotFound = errors.New("position not found")
	ErrHandleTaken      = errors.New("handle already taken")
	ErrInvalidProfile   = errors.New("invalid profile")
)

type Service struct {
	Store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{Store: store}
}

func (s *Service) ListPositions(ctx context.Context) ([]Position, error) {
	return s.Store.ListPositions(ctx)
}

func (s *Service) List(ctx context.Context, filter Filter) ([]Profile, error) {
	profiles, err := s.Store.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Profile, 0, len(profiles))
	for _, p := range profiles {
		if filter.Match(p) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DisplayName == out[j].DisplayName {
			return out[i].ID < out[j].ID
		}
		return out[i].DisplayName < out[j].DisplayName
	})
	return out, nil
}

// ListAll feeds the entity store.
func (s *Service) ListAll(ctx context.Context) ([]Profile, error) {
	return s.Store.ListProfiles(ctx)
}

func (s *Service) Get(ctx context.Context, profileID string) (Profile, error) {
	return s.Store.GetProfile(ctx, profileID)
}

// GetApproved returns ErrNotFound for missing and for unapproved profiles.
func (s *Service) GetApproved(ctx context.Context, profileID string) (Profile, error) {
	p, err := s.Store.GetProfile(ctx, profileID)
	if err != nil {
		return Profile{}, err
	}
	if !p.Accept {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func (s *Service) FindByHandle(ctx context.Context, handle string) (Profile, error) {
	return s.Store.FindByHandle(ctx, strings.TrimSpace(handle))
}

// Register creates an unapproved profile. The password must already be hashed.
func (s *Service) Register(ctx context.Context, displayName, handle, passwordHash, positionID string) (Profile, error) {
	displayName = strings.TrimSpace(displayName)
	handle = strings.TrimSpace(handle)
	if displayName == "" || handle == "" || passwordHash == "" {
		return Profile{}, ErrInvalidProfile
	}
	if _, err := s.Store.GetPosition(ctx, positionID); err != nil {
		return Profile{}, err
	}
	taken, err := s.Store.HandleTaken(ctx, handle)
	if err != nil {
		return Profile{}, err
	}
	if taken {
		return Profile{}, ErrHandleTaken
	}
	return s.Store.CreateProfile(ctx, displayName, handle, passwordHash, positionID)
}

func (s *Service) Update(ctx context.Context, profileID, displayName, positionID string) (Profile, error) {
	current, err := s.Store.GetProfile(ctx, profileID)
	if err != nil {
		return Profile{}, err
	}
	if name := strings.TrimSpace(displayName); name != "" {
		current.DisplayName = name
	}
	if positionID != "" && positionID != current.PositionID {
		if _, err := s.Store.GetPosition(ctx, positionID); err != nil {
			return Profile{}, err
		}
		current.PositionID = positionID
	}
	return s.Store.UpdateProfile(ctx, profileID, current.DisplayName, current.PositionID)
}

func (s *Service) Approve(ctx context.Context, profileID string, accept bool) (Profile, error) {
	return s.Store.SetAccept(ctx, profileID, accept)
}
