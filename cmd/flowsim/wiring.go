package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/dshills/flowsim/graph"
	"github.com/dshills/flowsim/graph/catalog"
	"github.com/dshills/flowsim/graph/emit"
	"github.com/dshills/flowsim/graph/model"
	"github.com/dshills/flowsim/graph/model/anthropic"
	"github.com/dshills/flowsim/graph/model/google"
	"github.com/dshills/flowsim/graph/model/openai"
	"github.com/dshills/flowsim/internal/config"
)

// newCatalog loads the configured HCL catalog, or the built-in one.
func (c *cli) newCatalog() (*catalog.Cached, error) {
	var src catalog.Source = catalog.Default()
	if path := c.cfg.Catalog.File; path != "" {
		static, err := catalog.LoadHCL(path)
		if err != nil {
			return nil, WrapError(ExitUsage, "failed to load catalog", err)
		}
		src = static
	}
	return catalog.NewCached(src, c.logger), nil
}

// providerKeyEnv names the environment variable consulted when
// approval.api_key is empty.
var providerKeyEnv = map[string]string{
	"anthropic": "ANTHROPIC_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"google":    "GEMINI_API_KEY",
}

// newDecider builds the approval strategy named by cfg.Mode.
func newDecider(cfg config.ApprovalConfig) (graph.ApprovalDecider, error) {
	switch cfg.Mode {
	case "", "always":
		return graph.AlwaysApprove, nil
	case "reject":
		return graph.RejectAll, nil
	case "random":
		return graph.RandomApproval(cfg.Rate, cfg.Seed), nil
	case "llm":
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv(providerKeyEnv[cfg.Provider])
		}
		if key == "" {
			return nil, fmt.Errorf("no API key for provider %q (set approval.api_key or %s)",
				cfg.Provider, providerKeyEnv[cfg.Provider])
		}
		var chat model.ChatModel
		switch cfg.Provider {
		case "anthropic":
			chat = anthropic.NewChatModel(key, cfg.Model)
		case "openai":
			chat = openai.NewChatModel(key, cfg.Model)
		case "google":
			chat = google.NewChatModel(key, cfg.Model)
		default:
			return nil, fmt.Errorf("unknown approval provider %q", cfg.Provider)
		}
		return model.NewApprovalDecider(chat), nil
	}
	return nil, fmt.Errorf("unknown approval mode %q", cfg.Mode)
}

// runnerOptions assembles the runner configuration shared by simulate and
// serve. The returned shutdown func flushes tracing and must be called.
func (c *cli) runnerOptions(cat graph.Catalog, events io.Writer) ([]graph.Option, func(context.Context) error, error) {
	decider, err := newDecider(c.cfg.Approval)
	if err != nil {
		return nil, nil, WrapError(ExitUsage, "invalid approval configuration", err)
	}

	opts := []graph.Option{
		graph.WithApprovalDecider(decider),
		graph.WithStepDelay(c.cfg.Simulation.MinDelay, c.cfg.Simulation.MaxDelay),
		graph.WithLogger(c.logger),
	}
	if cat != nil {
		opts = append(opts, graph.WithCatalog(cat))
	}
	if c.cfg.Approval.Mode == "llm" {
		opts = append(opts, graph.WithDecisionPolicy(graph.DecisionPolicy{
			Timeout: c.cfg.Approval.Timeout,
			Retry: &graph.RetryPolicy{
				MaxAttempts: c.cfg.Approval.Retries + 1,
				BaseDelay:   500 * time.Millisecond,
				MaxDelay:    5 * time.Second,
			},
		}))
	}

	var emitters emit.MultiEmitter
	if events != nil {
		emitters = append(emitters, emit.NewLogEmitter(events, c.cfg.Log.Format == "json"))
	}

	shutdown := func(context.Context) error { return nil }
	if c.cfg.Tracing.Enabled {
		tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(newLogExporter(c.logger)))
		otel.SetTracerProvider(tp)
		emitters = append(emitters, emit.NewOTelEmitter(tp.Tracer("github.com/dshills/flowsim")))
		shutdown = tp.Shutdown
	}
	if len(emitters) > 0 {
		opts = append(opts, graph.WithEmitter(emitters))
	}
	return opts, shutdown, nil
}
