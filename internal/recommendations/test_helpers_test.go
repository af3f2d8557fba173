package recommendations

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// fakeLLM returns a fixed response and counts calls. When release is set,
// Invoke blocks until it is closed.
type fakeLLM struct {
	out     string
	err     error
	release chan struct{}

	calls   atomic.Int32
	mu      sync.Mutex
	prompts []string
}

func (f *fakeLLM) Invoke(ctx context.Context, prompt string) (string, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.out, f.err
}

// countingRepo wraps a Repo and counts lookups.
type countingRepo struct {
	Repo
	lookups atomic.Int32
	findErr error
	insErr  error
}

func (r *countingRepo) FindByQuery(ctx context.Context, query string) (Record, error) {
	r.lookups.Add(1)
	if r.findErr != nil {
		return Record{}, r.findErr
	}
	return r.Repo.FindByQuery(ctx, query)
}

func (r *countingRepo) Insert(ctx context.Context, record Record) error {
	if r.insErr != nil {
		return r.insErr
	}
	return r.Repo.Insert(ctx, record)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sequentialIDs(prefix string) func() string {
	var n atomic.Int32
	return func() string {
		return prefix + string(rune('a'+n.Add(1)-1))
	}
}

const interstellarJSON = `[{"title":"Interstellar","year":"2014","director":"Christopher Nolan","genre":"Sci-Fi","reason":"Space exploration"}]`
