// Command diffcouncil is a thin CLI entry point: it reads a diff file and a
// handful of flags, builds an EvaluationContext and a ChatModel via
// llm/provider, runs orchestrator.Evaluate, and prints the resulting
// EvaluationOutcome as JSON to stdout.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/diffcouncil/diffcouncil/internal/accounting"
	"github.com/diffcouncil/diffcouncil/internal/config"
	"github.com/diffcouncil/diffcouncil/internal/llm/provider"
	"github.com/diffcouncil/diffcouncil/internal/orchestrator"
	"github.com/diffcouncil/diffcouncil/internal/telemetry"
	"github.com/diffcouncil/diffcouncil/internal/types"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "diffcouncil:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("diffcouncil", flag.ContinueOnError)
	diffPath := fs.String("diff", "", "path to a unified diff file (required)")
	commitHash := fs.String("commit", "", "commit hash label for the evaluation record")
	providerName := fs.String("provider", "", "LLM provider: anthropic|openai|xai|google (default from DIFFCOUNCIL_PROVIDER or anthropic)")
	model := fs.String("model", "", "model name (default from DIFFCOUNCIL_MODEL)")
	maxRounds := fs.Int("max-rounds", 3, "maximum discussion rounds (1-5)")
	convergenceThreshold := fs.Float64("convergence-threshold", 0.85, "convergence score in [0,1] that stops the loop early")
	ragThreshold := fs.Int64("rag-threshold", 102400, "diff byte size above which the RAG index is built")
	timeout := fs.Duration("timeout", 20*time.Minute, "whole-evaluation deadline")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *diffPath == "" {
		return fmt.Errorf("-diff is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	telemetry.InitLogger(cfg.LogPath, cfg.LogLevel)

	shutdownTracing, err := telemetry.InitTracing(context.Background(), telemetry.TracingConfig{
		OTLPEndpoint:   cfg.OTLPEndpoint,
		ServiceName:    "diffcouncil",
		ServiceVersion: "dev",
		Environment:    "cli",
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer shutdownTracing(context.Background())

	resolvedProvider := *providerName
	if resolvedProvider == "" {
		resolvedProvider = cfg.DefaultModelConfig.Provider
	}
	resolvedModel := *model
	if resolvedModel == "" {
		resolvedModel = cfg.DefaultModelConfig.Model
	}

	diffBytes, err := os.ReadFile(*diffPath)
	if err != nil {
		return fmt.Errorf("read diff: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	httpClient := telemetry.NewHTTPClient(&http.Client{})
	chatModel, err := provider.Build(ctx, cfg, resolvedProvider, resolvedModel, httpClient)
	if err != nil {
		return fmt.Errorf("build chat model: %w", err)
	}

	var pricing *accounting.TokenAccounting
	if cfg.PriceTablePath != "" {
		pricing, err = accounting.LoadFromFile(cfg.PriceTablePath)
	} else {
		pricing, err = accounting.LoadDefault()
	}
	if err != nil {
		return fmt.Errorf("load price table: %w", err)
	}

	o := orchestrator.New(chatModel, pricing)

	req := types.EvaluationRequest{
		Diff:                 string(diffBytes),
		CommitHash:           *commitHash,
		MaxRounds:            *maxRounds,
		ConvergenceThreshold: *convergenceThreshold,
		RAGThreshold:         *ragThreshold,
		ModelConfig: types.ModelConfig{
			Provider:        resolvedProvider,
			Model:           resolvedModel,
			Temperature:     cfg.DefaultModelConfig.Temperature,
			MaxOutputTokens: cfg.DefaultModelConfig.MaxOutputTokens,
		},
	}.Defaults()

	outcome, err := o.Evaluate(ctx, req)
	if err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(outcome)
}
