package hierarchy

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"kpireview/internal/platform/querier"
)

const uniqueViolation = "23505"

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) List(ctx context.Context) ([]Assignment, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, subordinate_id, supervisor_id, created_at
    FROM assign
    ORDER BY created_at, id
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ID, &a.SubordinateID, &a.SupervisorID, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) Create(ctx context.Context, subordinateID, supervisorID string) (Assignment, error) {
	var a Assignment
	err := s.DB.QueryRow(ctx, `
    INSERT INTO assign (subordinate_id, supervisor_id)
    VALUES ($1,$2)
    RETURNING id, subordinate_id, supervisor_id, created_at
  `, subordinateID, supervisorID).Scan(&a.ID, &a.SubordinateID, &a.SupervisorID, &a.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return Assignment{}, ErrAlreadyAssigned
	}
	return a, err
}

func (s *Store) Delete(ctx context.Context, subordinateID, supervisorID string) (int64, error) {
	tag, err := s.DB.Exec(ctx, `
    DELETE FROM assign
    WHERE subordinate_id = $1 AND supervisor_id = $2
  `, subordinateID, supervisorID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
