package recommendations

import "context"

// Repo persists recommendation records keyed by their trimmed query.
//
// Stores are append-only. When several records share a query, FindByQuery
// returns the oldest one (earliest CreatedAt, ties broken by ID) so a cached
// answer never changes after it is first written.
type Repo interface {
	FindByQuery(ctx context.Context, query string) (Record, error)
	Insert(ctx context.Context, record Record) error
}
