package recommendations

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"movierec-backend/internal/llm"
	"movierec-backend/internal/shared/metrics"
	"movierec-backend/internal/shared/telemetry"
)

// Service answers recommendation queries from the store or the model.
//
// Get never writes; persisting a result is an explicit Save.
type Service struct {
	Repo Repo
	LLM  llm.Client

	// ModelTimeout bounds each model call in addition to the caller's context.
	ModelTimeout time.Duration
	// Coalesce shares one model call between concurrent misses on the same query.
	Coalesce bool

	Now   func() time.Time
	NewID func() string

	group singleflight.Group
}

// Get returns the stored record for query or a fresh, unsaved one from the model.
func (s *Service) Get(ctx context.Context, query string) (Record, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return Record{}, newError(ErrValidation, "userInput cannot be empty", nil)
	}
	if s.Repo == nil || s.LLM == nil {
		return Record{}, newError(ErrConfiguration, "recommendation service is not configured", nil)
	}

	existing, err := s.Repo.FindByQuery(ctx, q)
	switch {
	case err == nil:
		metrics.IncCacheHit()
		telemetry.Info("recommend.cache_hit", map[string]any{
			"query":     q,
			"record_id": existing.ID,
			"items":     len(existing.Items),
		})
		existing.Cached = true
		return existing, nil
	case !errors.Is(err, ErrNotFound):
		metrics.IncCacheError()
		telemetry.Error("recommend.lookup_failed", map[string]any{"query": q, "error": err.Error()})
		return Record{}, newError(ErrStore, "failed to look up recommendations", err)
	}

	metrics.IncCacheMiss()
	telemetry.Info("recommend.cache_miss", map[string]any{"query": q})

	if !s.Coalesce {
		return s.generate(ctx, q)
	}

	// The shared call must outlive any single caller; each caller still stops
	// waiting when its own context ends.
	ch := s.group.DoChan(q, func() (any, error) {
		return s.generate(context.WithoutCancel(ctx), q)
	})
	select {
	case <-ctx.Done():
		return Record{}, newError(ErrUpstream, "model request canceled", ctx.Err())
	case res := <-ch:
		if res.Shared {
			metrics.IncCoalesced()
		}
		if res.Err != nil {
			return Record{}, res.Err
		}
		rec := res.Val.(Record)
		rec.Items = cloneItems(rec.Items)
		return rec, nil
	}
}

func (s *Service) generate(ctx context.Context, query string) (Record, error) {
	if s.ModelTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.ModelTimeout)
		defer cancel()
	}

	prompt := BuildPrompt(query)
	start := time.Now()
	raw, err := s.LLM.Invoke(ctx, prompt)
	metrics.ObserveModelDuration(time.Since(start))
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			metrics.IncModelCall("unconfigured")
			telemetry.Error("recommend.model_unconfigured", map[string]any{"query": query, "error": err.Error()})
			return Record{}, newError(ErrConfiguration, "model client is not configured", err)
		}
		metrics.IncModelCall("error")
		telemetry.Error("recommend.model_failed", map[string]any{
			"query":       query,
			"prompt_hash": llm.PromptHash(prompt),
			"error":       err.Error(),
		})
		return Record{}, newError(ErrUpstream, "model request failed", err)
	}
	metrics.IncModelCall("ok")
	telemetry.Debug("recommend.model_output", map[string]any{
		"query":        query,
		"prompt_hash":  llm.PromptHash(prompt),
		"raw_response": raw,
	})

	items, err := ParseItems(raw)
	if err != nil {
		metrics.IncParseFailure()
		telemetry.Error("recommend.parse_failed", map[string]any{
			"query":        query,
			"error":        err.Error(),
			"raw_response": raw,
		})
		return Record{}, err
	}

	telemetry.Info("recommend.generated", map[string]any{"query": query, "items": len(items)})
	return Record{Query: query, Items: items, CreatedAt: s.now()}, nil
}

// Save appends a new record for query. A nil items slice is rejected; an
// empty one is stored as-is.
func (s *Service) Save(ctx context.Context, query string, items []Item) (Record, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return Record{}, newError(ErrValidation, "userInput is required", nil)
	}
	if items == nil {
		return Record{}, newError(ErrValidation, "recommendations are required", nil)
	}
	if s.Repo == nil {
		return Record{}, newError(ErrConfiguration, "recommendation store is not configured", nil)
	}

	rec := Record{
		ID:        s.newID(),
		Query:     q,
		Items:     cloneItems(items),
		CreatedAt: s.now(),
	}
	if err := s.Repo.Insert(ctx, rec); err != nil {
		metrics.IncSave("error")
		telemetry.Error("recommend.save_failed", map[string]any{"query": q, "error": err.Error()})
		return Record{}, newError(ErrStore, "failed to save recommendations", err)
	}
	metrics.IncSave("ok")
	telemetry.Info("recommend.saved", map[string]any{"query": q, "record_id": rec.ID, "items": len(rec.Items)})
	return rec, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}
