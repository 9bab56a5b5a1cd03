package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"kpireview/internal/domain/period"
	"kpireview/internal/platform/querier"
)

const itemColumns = `id, staff_id, kpi_id, COALESCE(director_id::text, ''), met,
    COALESCE(notes, ''), COALESCE(plan, ''), score, kpi_weight, reviewed_at,
    COALESCE(file_url, ''), created_at`

type Store struct {
	DB querier.TxBeginner
}

func NewStore(db querier.TxBeginner) *Store {
	return &Store{DB: db}
}

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.StaffID, &it.KPIID, &it.DirectorID, &it.Met,
		&it.Notes, &it.Plan, &it.Score, &it.KPIWeight, &it.ReviewedAt,
		&it.FileURL, &it.CreatedAt)
	return it, err
}

// Reconcile uses read committed plus a transaction-scoped advisory lock, so a
// waiting writer sees the rows committed by the one before it.
func (s *Store) Reconcile(ctx context.Context, staffID, kpiID string, fn func(tx Tx) error) error {
	return querier.WithTx(ctx, s.DB, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, staffID+":"+kpiID); err != nil {
			return fmt.Errorf("lock review key: %w", err)
		}
		return fn(&txStore{tx: tx})
	})
}

type txStore struct {
	tx pgx.Tx
}

func (t *txStore) DeleteInPeriod(ctx context.Context, staffID, kpiID string, p period.Period) ([]string, error) {
	rows, err := t.tx.Query(ctx, `
    DELETE FROM review_items r
    USING profiles p
    WHERE p.id = r.staff_id
      AND p.accept
      AND r.staff_id = $1
      AND r.kpi_id = $2
      AND r.reviewed_at >= $3
      AND r.reviewed_at < $4
    RETURNING COALESCE(r.file_url, '')
  `, staffID, kpiID, p.Start, p.End)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

func (t *txStore) Insert(ctx context.Context, item Item) (Item, error) {
	return scanItem(t.tx.QueryRow(ctx, `
    INSERT INTO review_items (id, staff_id, kpi_id, director_id, met, notes, plan, score, kpi_weight, reviewed_at, file_url)
    VALUES ($1,$2,$3,NULLIF($4,'')::uuid,$5,NULLIF($6,''),NULLIF($7,''),$8,$9,$10,NULLIF($11,''))
    RETURNING `+itemColumns,
		item.ID, item.StaffID, item.KPIID, item.DirectorID, item.Met, item.Notes, item.Plan,
		item.Score, item.KPIWeight, item.ReviewedAt, item.FileURL))
}

func (s *Store) Get(ctx context.Context, id string) (Item, error) {
	it, err := scanItem(s.DB.QueryRow(ctx, `SELECT `+itemColumns+` FROM review_items WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrNotFound
	}
	return it, err
}

func (s *Store) List(ctx context.Context, filter Filter) ([]Item, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.StaffID != "" {
		add("staff_id = $%d", filter.StaffID)
	}
	if filter.KPIID != "" {
		add("kpi_id = $%d", filter.KPIID)
	}
	if filter.DirectorID != "" {
		add("director_id = $%d", filter.DirectorID)
	}
	if filter.Period != nil {
		add("reviewed_at >= $%d", filter.Period.Start)
		add("reviewed_at < $%d", filter.Period.End)
	}
	query := `SELECT ` + itemColumns + ` FROM review_items`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY reviewed_at DESC, id"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *Store) Update(ctx context.Context, item Item) (Item, error) {
	it, err := scanItem(s.DB.QueryRow(ctx, `
    UPDATE review_items
    SET director_id = NULLIF($2,'')::uuid,
        met = $3,
        notes = NULLIF($4,''),
        plan = NULLIF($5,''),
        score = $6,
        kpi_weight = $7,
        reviewed_at = $8,
        file_url = NULLIF($9,'')
    WHERE id = $1
    RETURNING `+itemColumns,
		item.ID, item.DirectorID, item.Met, item.Notes, item.Plan, item.Score,
		item.KPIWeight, item.ReviewedAt, item.FileURL))
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrNotFound
	}
	return it, err
}

func (s *Store) Delete(ctx context.Context, id string) (Item, error) {
	it, err := scanItem(s.DB.QueryRow(ctx, `DELETE FROM review_items WHERE id = $1 RETURNING `+itemColumns, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrNotFound
	}
	return it, err
}
