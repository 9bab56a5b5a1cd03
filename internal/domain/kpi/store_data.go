package kpi

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"kpireview/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) List(ctx context.Context) ([]KPI, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, title, COALESCE(description, ''), weight, COALESCE(floor, ''), removed, created_at
    FROM kpis
    ORDER BY floor, title
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []KPI
	for rows.Next() {
		var k KPI
		if err := rows.Scan(&k.ID, &k.Title, &k.Description, &k.Weight, &k.Floor, &k.Removed, &k.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, kpiID string) (KPI, error) {
	var k KPI
	err := s.DB.QueryRow(ctx, `
    SELECT id, title, COALESCE(description, ''), weight, COALESCE(floor, ''), removed, created_at
    FROM kpis
    WHERE id = $1
  `, kpiID).Scan(&k.ID, &k.Title, &k.Description, &k.Weight, &k.Floor, &k.Removed, &k.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return KPI{}, ErrNotFound
	}
	return k, err
}

func (s *Store) Create(ctx context.Context, details Details) (KPI, error) {
	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO kpis (title, description, weight, floor)
    VALUES ($1,$2,$3,$4)
    RETURNING id
  `, details.Title, details.Description, details.Weight, details.Floor).Scan(&id); err != nil {
		return KPI{}, err
	}
	return s.Get(ctx, id)
}

func (s *Store) Update(ctx context.Context, kpiID string, details Details) (KPI, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE kpis
    SET title = $1, description = $2, weight = $3, floor = $4
    WHERE id = $5
  `, details.Title, details.Description, details.Weight, details.Floor, kpiID)
	if err != nil {
		return KPI{}, err
	}
	if tag.RowsAffected() == 0 {
		return KPI{}, ErrNotFound
	}
	return s.Get(ctx, kpiID)
}

func (s *Store) SetRemoved(ctx context.Context, kpiID string, removed bool) (KPI, error) {
	tag, err := s.DB.Exec(ctx, `UPDATE kpis SET removed = $1 WHERE id = $2`, removed, kpiID)
	if err != nil {
		return KPI{}, err
	}
	if tag.RowsAffected() == 0 {
		return KPI{}, ErrNotFound
	}
	return s.Get(ctx, kpiID)
}

func (s *Store) Delete(ctx context.Context, kpiID string) error {
	tag, err := s.DB.Exec(ctx, `DELETE FROM kpis WHERE id = $1`, kpiID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
