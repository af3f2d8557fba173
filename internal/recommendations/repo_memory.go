package recommendations

import (
	"context"
	"sync"
)

// MemoryRepo stores records in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu      sync.RWMutex
	byQuery map[string][]Record
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byQuery: make(map[string][]Record)}
}

// FindByQuery returns the oldest record for query.
func (r *MemoryRepo) FindByQuery(ctx context.Context, query string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	records := r.byQuery[query]
	if len(records) == 0 {
		return Record{}, ErrNotFound
	}
	oldest := records[0]
	for _, rec := range records[1:] {
		if rec.CreatedAt.Before(oldest.CreatedAt) || (rec.CreatedAt.Equal(oldest.CreatedAt) && rec.ID < oldest.ID) {
			oldest = rec
		}
	}
	oldest.Items = cloneItems(oldest.Items)
	return oldest, nil
}

// Insert appends the record.
func (r *MemoryRepo) Insert(ctx context.Context, record Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	record.Items = cloneItems(record.Items)
	record.Cached = false
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byQuery[record.Query] = append(r.byQuery[record.Query], record)
	return nil
}

// Count returns how many records are stored for query.
func (r *MemoryRepo) Count(query string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byQuery[query])
}
