package health

import "context"

// Pinger checks a backing dependency.
type Pinger func(ctx context.Context) error

// Service reports process health and which backends are wired.
type Service struct {
	StoreDriver     string
	LLMProvider     string
	ModelConfigured bool
	StorePing       Pinger
	// ModelBreaker reports the model circuit breaker state when one is installed.
	ModelBreaker func() string
}

// NewService constructs a new health service.
func NewService(storeDriver, llmProvider string, modelConfigured bool, ping Pinger) *Service {
	return &Service{
		StoreDriver:     storeDriver,
		LLMProvider:     llmProvider,
		ModelConfigured: modelConfigured,
		StorePing:       ping,
	}
}

// Status returns the health payload. ok is false only when the store ping fails.
func (s *Service) Status(ctx context.Context) map[string]any {
	out := map[string]any{
		"ok":              true,
		"store":           s.StoreDriver,
		"llmProvider":     s.LLMProvider,
		"modelConfigured": s.ModelConfigured,
	}
	if s.ModelBreaker != nil {
		out["modelBreaker"] = s.ModelBreaker()
	}
	if s.StorePing != nil {
		if err := s.StorePing(ctx); err != nil {
			out["ok"] = false
			out["storeError"] = err.Error()
		}
	}
	return out
}
