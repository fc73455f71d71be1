package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Strob0t/StudyMate/internal/adapter/litellm"
	"github.com/Strob0t/StudyMate/internal/adapter/openai"
	"github.com/Strob0t/StudyMate/internal/config"
	"github.com/Strob0t/StudyMate/internal/port/llm"
	"github.com/Strob0t/StudyMate/internal/resilience"
)

// newGenerator builds the configured text-generation provider behind a
// circuit breaker, together with its health check.
func newGenerator(cfg *config.LLM, bcfg *config.Breaker) (llm.Generator, func(context.Context) error) {
	breaker := resilience.NewBreaker("llm", bcfg.MaxFailures, bcfg.Timeout)

	switch cfg.Provider {
	case config.ProviderOpenAI:
		g := openai.New(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.URL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
		})
		g.SetBreaker(breaker)
		slog.Info("llm provider", "provider", cfg.Provider, "model", cfg.Model)
		return g, breakerHealth(breaker)
	default:
		c := litellm.NewClient(cfg.URL, cfg.APIKey, litellm.Options{
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
		})
		c.SetBreaker(breaker)
		slog.Info("llm provider", "provider", config.ProviderLiteLLM, "url", cfg.URL, "model", cfg.Model)
		return c, func(ctx context.Context) error {
			ok, err := c.Health(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("proxy unhealthy")
			}
			return nil
		}
	}
}

// breakerHealth reports an open breaker as unhealthy. Hosted providers have
// no cheap health endpoint.
func breakerHealth(b *resilience.Breaker) func(context.Context) error {
	return func(context.Context) error {
		if s := b.State(); s == "open" {
			return errors.New("circuit breaker open")
		}
		return nil
	}
}
