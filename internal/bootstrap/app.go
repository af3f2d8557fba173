package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"movierec-backend/internal/llm"
	"movierec-backend/internal/llm/gemini"
	"movierec-backend/internal/llm/openai"
	"movierec-backend/internal/llm/vertex"
	"movierec-backend/internal/recommendations"
	"movierec-backend/internal/services/health"
	"movierec-backend/internal/shared/config"
	"movierec-backend/internal/shared/server"
	"movierec-backend/internal/shared/storage/db"
	"movierec-backend/internal/shared/telemetry"
)

// App holds shared dependencies.
type App struct {
	Config                 config.Config
	Router                 *gin.Engine
	Repo                   recommendations.Repo
	StoreDriver            string
	LLM                    llm.Client
	Service                *recommendations.Service
	RecommendationsHandler *recommendations.Handler
	Health                 *health.Service

	closers []func(context.Context) error
}

// Build wires the store, model client, service and router from cfg.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	for _, w := range cfg.Warnings() {
		telemetry.Warn("config.warning", map[string]any{"warning": w})
	}

	app := &App{Config: cfg}

	repo, driver, ping, err := app.buildRepo(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.Repo = repo
	app.StoreDriver = driver

	app.LLM = app.buildLLM(ctx, cfg)

	app.Service = &recommendations.Service{
		Repo:         app.Repo,
		LLM:          app.LLM,
		ModelTimeout: cfg.ModelTimeout,
		Coalesce:     cfg.CoalesceMisses,
	}
	app.RecommendationsHandler = recommendations.NewHandler(app.Service)
	app.Health = health.NewService(driver, cfg.LLMProvider, cfg.ModelConfigured(), ping)
	if b, ok := app.LLM.(*llm.Breaker); ok {
		app.Health.ModelBreaker = b.State
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:                 cfg,
		RecommendationsHandler: app.RecommendationsHandler,
		Health:                 app.Health,
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":          cfg.Env,
		"store":        driver,
		"llm_provider": cfg.LLMProvider,
		"llm_model":    cfg.LLMModel,
		"coalesce":     cfg.CoalesceMisses,
		"breaker":      cfg.BreakerEnabled,
	})
	return app, nil
}

// Close releases store connections and model clients.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *App) buildRepo(ctx context.Context, cfg config.Config) (recommendations.Repo, string, health.Pinger, error) {
	switch cfg.StoreDriver {
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return a.memoryFallback(cfg, errors.New("DATABASE_URL is empty"))
		}
		sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
		if err != nil {
			return a.memoryFallback(cfg, err)
		}
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			sqlDB.Close()
			return a.memoryFallback(cfg, err)
		}
		a.closers = append(a.closers, func(context.Context) error { return sqlDB.Close() })
		ping := func(ctx context.Context) error { return db.Ping(ctx, sqlDB, 0) }
		return &recommendations.PGRepo{DB: sqlDB}, "postgres", ping, nil

	case "mongo":
		repo, err := recommendations.NewMongoRepo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return a.memoryFallback(cfg, err)
		}
		a.closers = append(a.closers, repo.Close)
		return repo, "mongo", repo.Ping, nil

	case "sqlite":
		repo, err := recommendations.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return a.memoryFallback(cfg, err)
		}
		a.closers = append(a.closers, func(context.Context) error { return repo.Close() })
		return repo, "sqlite", repo.Ping, nil

	default:
		return recommendations.NewMemoryRepo(), "memory", nil, nil
	}
}

// memoryFallback keeps dev environments running without a database.
func (a *App) memoryFallback(cfg config.Config, cause error) (recommendations.Repo, string, health.Pinger, error) {
	if !isDevLike(cfg.Env) {
		return nil, "", nil, fmt.Errorf("open %s store: %w", cfg.StoreDriver, cause)
	}
	telemetry.Warn("bootstrap.store_fallback", map[string]any{
		"driver": cfg.StoreDriver,
		"error":  cause.Error(),
	})
	return recommendations.NewMemoryRepo(), "memory", nil, nil
}

func (a *App) buildLLM(ctx context.Context, cfg config.Config) llm.Client {
	var (
		client llm.Client
		err    error
	)
	switch cfg.LLMProvider {
	case "openai":
		client, err = openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel, cfg.OpenAIBaseURL)
	case "vertex":
		var vc *vertex.Client
		vc, err = vertex.NewClient(ctx, vertex.Options{
			Project:     cfg.VertexProject,
			Location:    cfg.VertexLocation,
			Model:       cfg.LLMModel,
			AccessToken: cfg.VertexAccessToken,
		})
		if err == nil {
			a.closers = append(a.closers, func(context.Context) error { return vc.Close() })
			client = vc
		}
	default:
		client, err = gemini.NewClient(cfg.GeminiAPIKey, cfg.LLMModel, cfg.ModelTimeout)
	}
	if err != nil {
		telemetry.Warn("bootstrap.llm_unavailable", map[string]any{
			"provider": cfg.LLMProvider,
			"error":    err.Error(),
		})
		client = llm.PlaceholderClient{Reason: strings.TrimPrefix(err.Error(), llm.ErrNotConfigured.Error()+": ")}
	}

	if cfg.BreakerEnabled {
		client = llm.NewBreaker(client, llm.BreakerSettings{
			Name:     "llm-" + cfg.LLMProvider,
			Failures: cfg.BreakerFailures,
			Cooldown: cfg.BreakerCooldown,
		})
	}
	return client
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
