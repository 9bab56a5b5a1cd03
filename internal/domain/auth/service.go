package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"kpireview/internal/domain/staff"
)

var (
	ErrInvalidCredentials = errors.New("invalid handle or password")
	ErrNotApproved        = errors.New("profile awaiting approval")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

const MinPasswordLength = 8

type Profiles interface {
	FindByHandle(ctx context.Context, handle string) (staff.Profile, error)
	Register(ctx context.Context, displayName, handle, passwordHash, positionID string) (staff.Profile, error)
}

type Service struct {
	Profiles Profiles
	Secret   string
	TokenTTL time.Duration
}

func NewService(profiles Profiles, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Service{Profiles: profiles, Secret: secret, TokenTTL: ttl}
}

// Login checks the password and issues a token for approved profiles.
func (s *Service) Login(ctx context.Context, handle, password string) (string, staff.Profile, error) {
	p, err := s.Profiles.FindByHandle(ctx, strings.TrimSpace(handle))
	if errors.Is(err, staff.ErrNotFound) {
		return "", staff.Profile{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", staff.Profile{}, err
	}
	if p.PasswordHash == "" || CheckPassword(p.PasswordHash, password) != nil {
		return "", staff.Profile{}, ErrInvalidCredentials
	}
	if !p.Accept {
		return "", staff.Profile{}, ErrNotApproved
	}
	token, err := GenerateToken(s.Secret, Claims{UserID: p.ID, Role: p.Role.String()}, s.TokenTTL)
	if err != nil {
		return "", staff.Profile{}, err
	}
	return token, p, nil
}

// Signup registers an unapproved profile.
func (s *Service) Signup(ctx context.Context, reg staff.Registration) (staff.Profile, error) {
	if len(reg.Password) < MinPasswordLength {
		return staff.Profile{}, ErrWeakPassword
	}
	hash, err := HashPassword(reg.Password)
	if err != nil {
		return staff.Profile{}, err
	}
	return s.Profiles.Register(ctx, reg.DisplayName, reg.Handle, hash, reg.PositionID)
}
