package hierarchy

import (
	"context"
	"errors"
	"strings"

	"kpireview/internal/domain/staff"
)

var (
	ErrNotFound               = errors.New("assignment not found")
	ErrProfileNotFound        = errors.New("staff profile not found or not approved")
	ErrSupervisorNotDirector  = errors.New("supervisor must be a director")
	ErrSubordinateNotEligible = errors.New("subordinate must be a clinician or director")
	ErrAlreadyAssigned        = errors.New("subordinate already has a supervisor")
	ErrCycle                  = errors.New("assignment would create a supervision cycle")
)

type ProfileLister interface {
	ListAll(ctx context.Context) ([]staff.Profile, error)
}

type Service struct {
	Store    StoreAPI
	Profiles ProfileLister
}

func NewService(store StoreAPI, profiles ProfileLister) *Service {
	return &Service{Store: store, Profiles: profiles}
}

func (s *Service) ListAll(ctx context.Context) ([]Assignment, error) {
	return s.Store.List(ctx)
}

// Resolver builds a resolver straight from the database.
func (s *Service) Resolver(ctx context.Context) (*Resolver, []Assignment, error) {
	profiles, err := s.Profiles.ListAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	assignments, err := s.Store.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	return NewResolver(profiles, assignments), assignments, nil
}

func (s *Service) Assign(ctx context.Context, subordinateID, supervisorID string) (Assignment, error) {
	subordinateID = strings.TrimSpace(subordinateID)
	supervisorID = strings.TrimSpace(supervisorID)
	profiles, err := s.Profiles.ListAll(ctx)
	if err != nil {
		return Assignment{}, err
	}
	assignments, err := s.Store.List(ctx)
	if err != nil {
		return Assignment{}, err
	}
	index := staff.Index(profiles)

	sub, ok := index[subordinateID]
	if !ok || !sub.Accept {
		return Assignment{}, ErrProfileNotFound
	}
	sup, ok := index[supervisorID]
	if !ok || !sup.Accept {
		return Assignment{}, ErrProfileNotFound
	}
	if !sup.Role.Supervises() {
		return Assignment{}, ErrSupervisorNotDirector
	}
	if !sub.Role.Reviewable() {
		return Assignment{}, ErrSubordinateNotEligible
	}
	for _, a := range assignments {
		if a.SubordinateID == subordinateID {
			return Assignment{}, ErrAlreadyAssigned
		}
	}
	if sub.Role == staff.RoleDirector {
		if NewResolver(profiles, assignments).WouldCycle(subordinateID, supervisorID) {
			return Assignment{}, ErrCycle
		}
	}
	return s.Store.Create(ctx, subordinateID, supervisorID)
}

func (s *Service) Unassign(ctx context.Context, subordinateID, supervisorID string) error {
	n, err := s.Store.Delete(ctx, strings.TrimSpace(subordinateID), strings.TrimSpace(supervisorID))
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
