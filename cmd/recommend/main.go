package main

// Run one query through the recommendation pipeline and print the result:
//   go run ./cmd/recommend -query "space exploration movies like Interstellar"
//   go run ./cmd/recommend -query "heist films" -provider openai -save

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"movierec-backend/internal/bootstrap"
	"movierec-backend/internal/recommendations"
	"movierec-backend/internal/shared/config"
	"movierec-backend/internal/shared/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		exitErr(fmt.Sprintf("config: %v", err))
	}

	query := flag.String("query", "", "Movie preference to recommend for")
	provider := flag.String("provider", cfg.LLMProvider, "LLM provider (gemini, openai, vertex)")
	model := flag.String("model", cfg.LLMModel, "LLM model")
	save := flag.Bool("save", false, "Persist the result after a fresh model answer")
	showPrompt := flag.Bool("prompt", false, "Print the prompt and exit")
	flag.Parse()

	if strings.TrimSpace(*query) == "" {
		exitErr("query is required")
	}
	if *showPrompt {
		fmt.Println(recommendations.BuildPrompt(*query))
		return
	}

	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(*provider))
	cfg.LLMModel = strings.TrimSpace(*model)
	telemetry.Init(telemetry.Config{Level: "warn", Format: "console", Output: os.Stderr})

	ctx := context.Background()
	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		exitErr(fmt.Sprintf("bootstrap: %v", err))
	}
	defer app.Close(ctx)

	rec, err := app.Service.Get(ctx, *query)
	if err != nil {
		var e *recommendations.Error
		if errors.As(err, &e) && e.Raw != "" {
			fmt.Fprintln(os.Stderr, "raw model response:")
			fmt.Fprintln(os.Stderr, e.Raw)
		}
		app.Close(ctx)
		exitErr(err.Error())
	}

	if *save && !rec.Cached {
		saved, err := app.Service.Save(ctx, rec.Query, rec.Items)
		if err != nil {
			app.Close(ctx)
			exitErr(fmt.Sprintf("save: %v", err))
		}
		rec.ID = saved.ID
		rec.CreatedAt = saved.CreatedAt
	}

	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		exitErr(fmt.Sprintf("encode: %v", err))
	}
	fmt.Println(string(out))
}

func exitErr(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
