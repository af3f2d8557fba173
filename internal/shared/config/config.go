package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar names an optional YAML file layered between defaults and env.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are probed when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{"config.yaml", "cmd/config.yaml"}

// Config holds application configuration.
type Config struct {
	Env             string   `koanf:"env" validate:"oneof=dev local staging production"`
	Port            string   `koanf:"port" validate:"required"`
	CORSAllowOrigin []string `koanf:"cors_allow_origins"`
	LogLevel        string   `koanf:"log_level"`
	LogFormat       string   `koanf:"log_format" validate:"oneof=json console"`

	StoreDriver   string `koanf:"store_driver" validate:"oneof=memory postgres mongo sqlite"`
	DatabaseURL   string `koanf:"database_url"`
	MongoURI      string `koanf:"mongo_uri"`
	MongoDatabase string `koanf:"mongo_database"`
	SQLitePath    string `koanf:"sqlite_path"`

	LLMProvider       string        `koanf:"llm_provider" validate:"oneof=gemini openai vertex"`
	LLMModel          string        `koanf:"llm_model"`
	GeminiAPIKey      string        `koanf:"gemini_api_key"`
	OpenAIAPIKey      string        `koanf:"openai_api_key"`
	OpenAIBaseURL     string        `koanf:"openai_base_url"`
	VertexProject     string        `koanf:"vertex_project"`
	VertexLocation    string        `koanf:"vertex_location"`
	VertexAccessToken string        `koanf:"vertex_access_token"`
	ModelTimeout      time.Duration `koanf:"model_timeout" validate:"gte=0"`

	BreakerEnabled  bool          `koanf:"model_breaker_enabled"`
	BreakerFailures uint32        `koanf:"model_breaker_failures" validate:"gte=1"`
	BreakerCooldown time.Duration `koanf:"model_breaker_cooldown" validate:"gte=0"`

	CoalesceMisses bool `koanf:"recommend_coalesce_misses"`
}

func defaultConfig() Config {
	return Config{
		Env:             "dev",
		Port:            "5000",
		CORSAllowOrigin: []string{"http://localhost:3000", "http://localhost:5173"},
		LogLevel:        "info",
		LogFormat:       "json",
		StoreDriver:     "memory",
		MongoDatabase:   "movierec",
		SQLitePath:      "./data/recommendations.db",
		LLMProvider:     "gemini",
		VertexLocation:  "us-central1",
		ModelTimeout:    60 * time.Second,
		BreakerEnabled:  true,
		BreakerFailures: 5,
		BreakerCooldown: 30 * time.Second,
		CoalesceMisses:  true,
	}
}

// Load layers defaults, an optional YAML file and environment variables, in
// that order of precedence, then validates the result.
func Load() (Config, error) {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}
	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.ProviderWithValue("", ".", envTransformFunc), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}
	if raw, ok := k.Get("cors_allow_origins").(string); ok {
		if err := k.Set("cors_allow_origins", splitAndTrim(raw)); err != nil {
			return Config{}, fmt.Errorf("set cors_allow_origins: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints and cross-field requirements.
func (c Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	switch c.StoreDriver {
	case "postgres":
		if c.DatabaseURL == "" && c.Env == "production" {
			return errors.New("invalid config: DATABASE_URL is required in production")
		}
	case "mongo":
		if c.MongoURI == "" {
			return errors.New("invalid config: MONGO_URI is required when STORE_DRIVER=mongo")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return errors.New("invalid config: SQLITE_PATH is required when STORE_DRIVER=sqlite")
		}
	}
	return nil
}

// ModelConfigured reports whether the selected provider has the credentials
// it needs to make a request.
func (c Config) ModelConfigured() bool {
	switch c.LLMProvider {
	case "openai":
		return c.OpenAIAPIKey != ""
	case "vertex":
		return c.VertexProject != ""
	default:
		return c.GeminiAPIKey != ""
	}
}

// Warnings lists non-fatal problems worth surfacing at startup.
func (c Config) Warnings() []string {
	var out []string
	if !c.ModelConfigured() {
		switch c.LLMProvider {
		case "openai":
			out = append(out, "OPENAI_API_KEY is not set in environment variables")
		case "vertex":
			out = append(out, "VERTEX_PROJECT is not set in environment variables")
		default:
			out = append(out, "GEMINI_API_KEY is not set in environment variables")
		}
	}
	if c.StoreDriver == "postgres" && c.DatabaseURL == "" {
		out = append(out, "DATABASE_URL is not set, recommendations will be kept in memory")
	}
	if c.ModelTimeout == 0 {
		out = append(out, "MODEL_TIMEOUT is 0, model calls are bounded only by the request context")
	}
	return out
}

func (c *Config) normalize() {
	c.Env = normalizeEnv(c.Env)
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	c.LLMProvider = strings.ToLower(strings.TrimSpace(c.LLMProvider))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.Port = strings.TrimSpace(c.Port)
}

// envKeys lists the environment variables the service reads.
var envKeys = map[string]struct{}{
	"env": {}, "port": {}, "cors_allow_origins": {}, "log_level": {}, "log_format": {},
	"store_driver": {}, "database_url": {}, "mongo_uri": {}, "mongo_database": {}, "sqlite_path": {},
	"llm_provider": {}, "llm_model": {}, "gemini_api_key": {}, "openai_api_key": {}, "openai_base_url": {},
	"vertex_project": {}, "vertex_location": {}, "vertex_access_token": {}, "model_timeout": {},
	"model_breaker_enabled": {}, "model_breaker_failures": {}, "model_breaker_cooldown": {},
	"recommend_coalesce_misses": {},
}

// envTransformFunc maps GEMINI_API_KEY to gemini_api_key. Unknown and empty
// variables are dropped so they cannot shadow defaults.
func envTransformFunc(key, value string) (string, any) {
	key = strings.ToLower(key)
	if _, ok := envKeys[key]; !ok || strings.TrimSpace(value) == "" {
		return "", nil
	}
	return key, value
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}
