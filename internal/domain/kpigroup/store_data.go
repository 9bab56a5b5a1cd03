package kpigroup

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"kpireview/internal/platform/querier"
)

type Store struct {
	DB querier.TxBeginner
}

func NewStore(db querier.TxBeginner) *Store {
	return &Store{DB: db}
}

func (s *Store) Titles(ctx context.Context, directorID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT DISTINCT title
    FROM kpi_group
    WHERE director_id = $1
    ORDER BY title
  `, directorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectStrings(rows)
}

func (s *Store) KPIs(ctx context.Context, directorID, title string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT kpi_id
    FROM kpi_group
    WHERE director_id = $1 AND title = $2
    ORDER BY created_at, kpi_id
  `, directorID, title)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectStrings(rows)
}

func (s *Store) Exists(ctx context.Context, directorID, title string) (bool, error) {
	return exists(ctx, s.DB, directorID, title)
}

// Create and Replace serialize on (director, title) with an advisory lock:
// rows carry no group-level key, so the existence check and the write must
// happen under one lock.
func (s *Store) Create(ctx context.Context, directorID, title string, kpiIDs []string) error {
	return s.locked(ctx, directorID, title, func(tx pgx.Tx) error {
		found, err := exists(ctx, tx, directorID, title)
		if err != nil {
			return err
		}
		if found {
			return ErrDuplicateTitle
		}
		return insertRows(ctx, tx, directorID, title, kpiIDs)
	})
}

func (s *Store) Replace(ctx context.Context, directorID, title string, kpiIDs []string) error {
	return s.locked(ctx, directorID, title, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM kpi_group WHERE director_id = $1 AND title = $2`, directorID, title)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return insertRows(ctx, tx, directorID, title, kpiIDs)
	})
}

func (s *Store) locked(ctx context.Context, directorID, title string, fn func(tx pgx.Tx) error) error {
	return querier.WithTx(ctx, s.DB, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, "kpi_group:"+directorID+":"+title); err != nil {
			return fmt.Errorf("lock kpi group: %w", err)
		}
		return fn(tx)
	})
}

func exists(ctx context.Context, db querier.Querier, directorID, title string) (bool, error) {
	var found bool
	err := db.QueryRow(ctx, `
    SELECT EXISTS (SELECT 1 FROM kpi_group WHERE director_id = $1 AND title = $2)
  `, directorID, title).Scan(&found)
	return found, err
}

func (s *Store) Delete(ctx context.Context, directorID, title string) (int64, error) {
	tag, err := s.DB.Exec(ctx, `DELETE FROM kpi_group WHERE director_id = $1 AND title = $2`, directorID, title)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func insertRows(ctx context.Context, tx pgx.Tx, directorID, title string, kpiIDs []string) error {
	_, err := tx.Exec(ctx, `
    INSERT INTO kpi_group (title, director_id, kpi_id)
    SELECT $1, $2, k FROM unnest($3::uuid[]) AS k
  `, title, directorID, kpiIDs)
	return err
}

func collectStrings(rows pgx.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
