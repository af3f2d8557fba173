package recommendations

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"movierec-backend/internal/llm"
)

var (
	t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Hour)
)

func newTestService(repo Repo, model llm.Client) *Service {
	return &Service{
		Repo:         repo,
		LLM:          model,
		ModelTimeout: 5 * time.Second,
		Now:          fixedClock(t1),
		NewID:        sequentialIDs("rec-"),
	}
}

func TestGetRejectsBlankQueryWithoutModelCall(t *testing.T) {
	model := &fakeLLM{out: interstellarJSON}
	svc := newTestService(NewMemoryRepo(), model)

	for _, q := range []string{"", "   ", "\n\t "} {
		_, err := svc.Get(context.Background(), q)
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("%q: expected ErrValidation, got %v", q, err)
		}
	}
	if model.calls.Load() != 0 {
		t.Fatalf("expected zero model calls, got %d", model.calls.Load())
	}
}

func TestGetInterstellarScenario(t *testing.T) {
	repo := NewMemoryRepo()
	model := &fakeLLM{out: "```json\n" + interstellarJSON + "\n```"}
	svc := newTestService(repo, model)

	rec, err := svc.Get(context.Background(), "  space exploration movies like Interstellar  ")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Cached || rec.ID != "" {
		t.Fatalf("expected fresh unsaved record, got %+v", rec)
	}
	if rec.Query != "space exploration movies like Interstellar" {
		t.Fatalf("expected trimmed query, got %q", rec.Query)
	}
	if len(rec.Items) != 1 || rec.Items[0].Title != "Interstellar" || rec.Items[0].Year != "2014" {
		t.Fatalf("unexpected items: %+v", rec.Items)
	}
	if !rec.CreatedAt.Equal(t1) {
		t.Fatalf("expected call time, got %s", rec.CreatedAt)
	}
	if repo.Count(rec.Query) != 0 {
		t.Fatalf("Get must not persist")
	}
	if !strings.Contains(model.prompts[0], `"space exploration movies like Interstellar"`) {
		t.Fatalf("unexpected prompt: %s", model.prompts[0])
	}
}

func TestGetServesSeededRecordWithoutModelCall(t *testing.T) {
	repo := NewMemoryRepo()
	seeded := Record{
		ID:        "seed-1",
		Query:     "romance in paris",
		Items:     []Item{{Title: "Amélie", Year: "2001"}, {Title: "Before Sunset", Year: "2004"}},
		CreatedAt: t0,
	}
	if err := repo.Insert(context.Background(), seeded); err != nil {
		t.Fatalf("seed: %v", err)
	}
	model := &fakeLLM{out: interstellarJSON}
	svc := newTestService(repo, model)

	rec, err := svc.Get(context.Background(), "romance in paris")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !rec.Cached || rec.ID != "seed-1" || !rec.CreatedAt.Equal(t0) {
		t.Fatalf("expected stored record unchanged, got %+v", rec)
	}
	if len(rec.Items) != 2 || rec.Items[0].Title != "Amélie" {
		t.Fatalf("unexpected items: %+v", rec.Items)
	}
	if model.calls.Load() != 0 {
		t.Fatalf("expected zero model calls, got %d", model.calls.Load())
	}
}

func TestSaveThenGetRoundTrip(t *testing.T) {
	repo := NewMemoryRepo()
	model := &fakeLLM{out: interstellarJSON}
	svc := newTestService(repo, model)
	ctx := context.Background()

	fresh, err := svc.Get(ctx, "space opera")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	saved, err := svc.Save(ctx, " space opera ", fresh.Items)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.ID == "" || saved.Query != "space opera" {
		t.Fatalf("unexpected saved record %+v", saved)
	}

	cached, err := svc.Get(ctx, "space opera")
	if err != nil {
		t.Fatalf("Get after save: %v", err)
	}
	if !cached.Cached || cached.ID != saved.ID {
		t.Fatalf("expected cached saved record, got %+v", cached)
	}
	if len(cached.Items) != len(fresh.Items) || cached.Items[0] != fresh.Items[0] {
		t.Fatalf("items changed across round trip: %+v vs %+v", cached.Items, fresh.Items)
	}
	if model.calls.Load() != 1 {
		t.Fatalf("expected exactly one model call, got %d", model.calls.Load())
	}
}

func TestSaveIsAppendOnlyAndOldestWins(t *testing.T) {
	repo := NewMemoryRepo()
	now := t0
	svc := newTestService(repo, &fakeLLM{})
	svc.Now = func() time.Time { return now }
	ctx := context.Background()

	first, err := svc.Save(ctx, "heist", []Item{{Title: "Heat"}})
	if err != nil {
		t.Fatalf("Save first: %v", err)
	}
	now = t1
	if _, err := svc.Save(ctx, "heist", []Item{{Title: "Ronin"}}); err != nil {
		t.Fatalf("Save second: %v", err)
	}
	if repo.Count("heist") != 2 {
		t.Fatalf("expected two stored records, got %d", repo.Count("heist"))
	}

	got, err := svc.Get(ctx, "heist")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != first.ID || got.Items[0].Title != "Heat" {
		t.Fatalf("expected oldest record, got %+v", got)
	}
}

func TestSaveValidation(t *testing.T) {
	svc := newTestService(NewMemoryRepo(), &fakeLLM{})
	ctx := context.Background()

	if _, err := svc.Save(ctx, "  ", []Item{{Title: "Heat"}}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for blank query, got %v", err)
	}
	if _, err := svc.Save(ctx, "heist", nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for nil items, got %v", err)
	}
	rec, err := svc.Save(ctx, "heist", []Item{})
	if err != nil {
		t.Fatalf("expected empty list to be accepted, got %v", err)
	}
	if rec.Items == nil || len(rec.Items) != 0 {
		t.Fatalf("unexpected items %#v", rec.Items)
	}
}

func TestSaveStoreFailure(t *testing.T) {
	repo := &countingRepo{Repo: NewMemoryRepo(), insErr: errors.New("disk full")}
	svc := newTestService(repo, &fakeLLM{})

	_, err := svc.Save(context.Background(), "heist", []Item{{Title: "Heat"}})
	if !errors.Is(err, ErrStore) || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected ErrStore, got %v", err)
	}
}

func TestGetLookupFailureIsNotAMiss(t *testing.T) {
	repo := &countingRepo{Repo: NewMemoryRepo(), findErr: errors.New("connection refused")}
	model := &fakeLLM{out: interstellarJSON}
	svc := newTestService(repo, model)

	_, err := svc.Get(context.Background(), "anything")
	if !errors.Is(err, ErrStore) {
		t.Fatalf("expected ErrStore, got %v", err)
	}
	if model.calls.Load() != 0 {
		t.Fatalf("lookup failure must not fall through to the model")
	}
}

func TestGetUpstreamFailure(t *testing.T) {
	model := &fakeLLM{err: errors.New("gemini http status 503")}
	svc := newTestService(NewMemoryRepo(), model)

	_, err := svc.Get(context.Background(), "anything")
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if !strings.Contains(err.Error(), "503") {
		t.Fatalf("expected upstream message preserved, got %v", err)
	}
	if model.calls.Load() != 1 {
		t.Fatalf("expected no retries, got %d calls", model.calls.Load())
	}
}

func TestGetMissingCredentialIsConfigurationError(t *testing.T) {
	svc := newTestService(NewMemoryRepo(), llm.PlaceholderClient{Reason: "GEMINI_API_KEY is not set"})

	_, err := svc.Get(context.Background(), "anything")
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	var e *Error
	if !errors.As(err, &e) || e.Code() != ErrorCodeConfiguration {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestGetParseFailureKeepsRawAndPersistsNothing(t *testing.T) {
	repo := NewMemoryRepo()
	raw := "Sorry, I can't help with that."
	svc := newTestService(repo, &fakeLLM{out: raw})

	_, err := svc.Get(context.Background(), "anything")
	var e *Error
	if !errors.As(err, &e) || !errors.Is(err, ErrParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
	if e.Raw != raw {
		t.Fatalf("expected raw %q, got %q", raw, e.Raw)
	}
	if repo.Count("anything") != 0 {
		t.Fatalf("parse failure must not persist")
	}
}

func TestGetModelTimeout(t *testing.T) {
	model := &fakeLLM{release: make(chan struct{})}
	svc := newTestService(NewMemoryRepo(), model)
	svc.ModelTimeout = 20 * time.Millisecond

	_, err := svc.Get(context.Background(), "slow")
	if !errors.Is(err, ErrUpstream) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected upstream deadline error, got %v", err)
	}
}

func TestGetCallerCancelWhileCoalesced(t *testing.T) {
	model := &fakeLLM{release: make(chan struct{}), out: interstellarJSON}
	defer close(model.release)
	svc := newTestService(NewMemoryRepo(), model)
	svc.Coalesce = true

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := svc.Get(ctx, "slow")
	if !errors.Is(err, ErrUpstream) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected caller deadline error, got %v", err)
	}
}

func runConcurrentMisses(t *testing.T, coalesce bool) (*fakeLLM, []Record) {
	t.Helper()
	repo := &countingRepo{Repo: NewMemoryRepo()}
	model := &fakeLLM{out: interstellarJSON, release: make(chan struct{})}
	svc := newTestService(repo, model)
	svc.Coalesce = coalesce

	const callers = 2
	var wg sync.WaitGroup
	results := make([]Record, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Get(context.Background(), "space opera")
		}(i)
	}

	waitFor(t, func() bool { return repo.lookups.Load() == callers })
	if !coalesce {
		waitFor(t, func() bool { return model.calls.Load() == callers })
	}
	// Let the second caller reach the in-flight call before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(model.release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
	}
	return model, results
}

func TestConcurrentMissesCoalesced(t *testing.T) {
	model, results := runConcurrentMisses(t, true)
	if got := model.calls.Load(); got != 1 {
		t.Fatalf("expected one shared model call, got %d", got)
	}
	results[0].Items[0].Title = "mutated"
	if results[1].Items[0].Title != "Interstellar" {
		t.Fatalf("callers must not share item storage")
	}
}

func TestConcurrentMissesWithoutCoalescing(t *testing.T) {
	model, results := runConcurrentMisses(t, false)
	if got := model.calls.Load(); got != 2 {
		t.Fatalf("expected two model calls, got %d", got)
	}
	if results[0].Items[0] != results[1].Items[0] {
		t.Fatalf("expected identical answers")
	}
}

func TestGetWithoutDependencies(t *testing.T) {
	svc := &Service{}
	if _, err := svc.Get(context.Background(), "q"); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if _, err := svc.Save(context.Background(), "q", []Item{}); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}
