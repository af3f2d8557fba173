package recommendations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const (
	pgFindByQuery = `
SELECT id, query, items, created_at
FROM recommendations
WHERE query = $1
ORDER BY created_at ASC, id ASC
LIMIT 1`

	pgInsert = `
INSERT INTO recommendations (id, query, items, created_at)
VALUES ($1, $2, $3, $4)`
)

// FindByQuery returns the oldest record for query.
func (r *PGRepo) FindByQuery(ctx context.Context, query string) (Record, error) {
	var (
		rec   Record
		items []byte
	)
	err := r.DB.QueryRowContext(ctx, pgFindByQuery, query).Scan(&rec.ID, &rec.Query, &items, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal(items, &rec.Items); err != nil {
		return Record{}, fmt.Errorf("decode items for %s: %w", rec.ID, err)
	}
	rec.Items = cloneItems(rec.Items)
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

// Insert appends the record.
func (r *PGRepo) Insert(ctx context.Context, record Record) error {
	items, err := json.Marshal(cloneItems(record.Items))
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	_, err = r.DB.ExecContext(ctx, pgInsert, record.ID, record.Query, items, record.CreatedAt)
	return err
}
