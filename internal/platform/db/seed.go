package db

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"kpireview/internal/domain/auth"
	"kpireview/internal/domain/staff"
	"kpireview/internal/platform/config"
)

// DefaultPositions are created on first start. Names are unique.
var DefaultPositions = []staff.Position{
	{Name: "Clinician", Role: staff.RoleClinician},
	{Name: "Director", Role: staff.RoleDirector},
	{Name: "Administrator", Role: staff.RoleSuperAdmin},
}

func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	positionIDs, err := ensurePositions(ctx, pool)
	if err != nil {
		return err
	}
	if strings.TrimSpace(cfg.SeedAdminHandle) == "" {
		return nil
	}
	return ensureAdminProfile(ctx, pool, positionIDs["Administrator"], cfg)
}

func ensurePositions(ctx context.Context, pool *pgxpool.Pool) (map[string]string, error) {
	ids := make(map[string]string, len(DefaultPositions))
	for _, pos := range DefaultPositions {
		if _, err := pool.Exec(ctx, "INSERT INTO positions (name, role) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING", pos.Name, pos.Role.String()); err != nil {
			return nil, err
		}
		var id string
		if err := pool.QueryRow(ctx, "SELECT id FROM positions WHERE name = $1", pos.Name).Scan(&id); err != nil {
			return nil, err
		}
		ids[pos.Name] = id
	}
	return ids, nil
}

func ensureAdminProfile(ctx context.Context, pool *pgxpool.Pool, positionID string, cfg config.Config) error {
	handle := strings.ToLower(strings.TrimSpace(cfg.SeedAdminHandle))
	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM profiles WHERE lower(handle) = $1", handle).Scan(&id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := auth.HashPassword(cfg.SeedAdminPassword)
	if err != nil {
		return err
	}
	_, err = pool.Exec(ctx, `
    INSERT INTO profiles (display_name, handle, password_hash, position_id, accept)
    VALUES ($1, $2, $3, $4, true)
  `, cfg.SeedAdminName, handle, hash, positionID)
	return err
}
