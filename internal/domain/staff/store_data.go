package staff

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"kpireview/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

const profileColumns = `
    p.id, p.display_name, p.handle, p.position_id, pos.name, pos.role,
    p.accept, COALESCE(p.password_hash, ''), p.created_at, p.updated_at
`

func scanProfile(row pgx.Row) (Profile, error) {
	var p Profile
	var role string
	if err := row.Scan(&p.ID, &p.DisplayName, &p.Handle, &p.PositionID, &p.PositionName, &role, &p.Accept, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Profile{}, err
	}
	parsed, err := ParseRole(role)
	if err != nil {
		return Profile{}, fmt.Errorf("profile %s: %w", p.ID, err)
	}
	p.Role = parsed
	return p, nil
}

func (s *Store) ListPositions(ctx context.Context) ([]Position, error) {
	rows, err := s.DB.Query(ctx, `SELECT id, name, role FROM positions ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Position
	for rows.Next() {
		var pos Position
		var role string
		if err := rows.Scan(&pos.ID, &pos.Name, &role); err != nil {
			return nil, err
		}
		if pos.Role, err = ParseRole(role); err != nil {
			return nil, fmt.Errorf("position %s: %w", pos.ID, err)
		}
		out = append(out, pos)
	}
	return out, rows.Err()
}

func (s *Store) GetPosition(ctx context.Context, positionID string) (Position, error) {
	var pos Position
	var role string
	err := s.DB.QueryRow(ctx, `SELECT id, name, role FROM positions WHERE id = $1`, positionID).Scan(&pos.ID, &pos.Name, &role)
	if errors.Is(err, pgx.ErrNoRows) {
		return Position{}, ErrPositionNotFound
	}
	if err != nil {
		return Position{}, err
	}
	if pos.Role, err = ParseRole(role); err != nil {
		return Position{}, err
	}
	return pos, nil
}

func (s *Store) ListProfiles(ctx context.Context) ([]Profile, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+profileColumns+`
    FROM profiles p
    JOIN positions pos ON pos.id = p.position_id
    ORDER BY p.display_name, p.id
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetProfile(ctx context.Context, profileID string) (Profile, error) {
	p, err := scanProfile(s.DB.QueryRow(ctx, `
    SELECT `+profileColumns+`
    FROM profiles p
    JOIN positions pos ON pos.id = p.position_id
    WHERE p.id = $1
  `, profileID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	return p, err
}

func (s *Store) FindByHandle(ctx context.Context, handle string) (Profile, error) {
	p, err := scanProfile(s.DB.QueryRow(ctx, `
    SELECT `+profileColumns+`
    FROM profiles p
    JOIN positions pos ON pos.id = p.position_id
    WHERE lower(p.handle) = lower($1)
  `, handle))
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	return p, err
}

func (s *Store) HandleTaken(ctx context.Context, handle string) (bool, error) {
	var count int
	if err := s.DB.QueryRow(ctx, `SELECT COUNT(1) FROM profiles WHERE lower(handle) = lower($1)`, handle).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) CreateProfile(ctx context.Context, displayName, handle, passwordHash, positionID string) (Profile, error) {
	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO profiles (display_name, handle, password_hash, position_id, accept)
    VALUES ($1,$2,$3,$4,false)
    RETURNING id
  `, displayName, handle, passwordHash, positionID).Scan(&id); err != nil {
		return Profile{}, err
	}
	return s.GetProfile(ctx, id)
}

func (s *Store) UpdateProfile(ctx context.Context, profileID, displayName, positionID string) (Profile, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE profiles
    SET display_name = $1, position_id = $2, updated_at = now()
    WHERE id = $3
  `, displayName, positionID, profileID)
	if err != nil {
		return Profile{}, err
	}
	if tag.RowsAffected() == 0 {
		return Profile{}, ErrNotFound
	}
	return s.GetProfile(ctx, profileID)
}

func (s *Store) SetAccept(ctx context.Context, profileID string, accept bool) (Profile, error) {
	tag, err := s.DB.Exec(ctx, `UPDATE profiles SET accept = $1, updated_at = now() WHERE id = $2`, accept, profileID)
	if err != nil {
		return Profile{}, err
	}
	if tag.RowsAffected() == 0 {
		return Profile{}, ErrNotFound
	}
	return s.GetProfile(ctx, profileID)
}
