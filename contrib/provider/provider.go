// Package provider builds reasoning clients from configuration.
package provider

import (
	"context"
	"fmt"
	"io"

	"github.com/sweetpotato0/ai-autopilot/config"
	"github.com/sweetpotato0/ai-autopilot/contrib/provider/claude"
	"github.com/sweetpotato0/ai-autopilot/contrib/provider/gemini"
	"github.com/sweetpotato0/ai-autopilot/contrib/provider/openai"
	"github.com/sweetpotato0/ai-autopilot/middleware"
	"github.com/sweetpotato0/ai-autopilot/middleware/errorhandler"
	"github.com/sweetpotato0/ai-autopilot/middleware/limiter"
	"github.com/sweetpotato0/ai-autopilot/middleware/logger"
	"github.com/sweetpotato0/ai-autopilot/middleware/validator"
	"github.com/sweetpotato0/ai-autopilot/reasoning"
)

// Client is a reasoning client that may hold resources.
type Client interface {
	reasoning.Client
	io.Closer
}

type closer struct {
	reasoning.Client
	close func() error
}

func (c closer) Close() error {
	if c.close == nil {
		return nil
	}
	return c.close()
}

// New creates the configured provider and wraps it with the standard
// middleware chain: panic recovery, request validation, rate limiting,
// call logging and response trimming.
func New(ctx context.Context, cfg config.ReasoningConfig, extra ...middleware.Middleware) (Client, error) {
	var (
		base    reasoning.Client
		release func() error
	)

	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		base = openai.New(&openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   int64(cfg.MaxTokens),
			Temperature: cfg.Temperature,
		})
	case config.ProviderClaude:
		base = claude.New(&claude.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   int64(cfg.MaxTokens),
			Temperature: cfg.Temperature,
		})
	case config.ProviderGemini:
		p, err := gemini.New(ctx, &gemini.Config{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			MaxTokens:   int32(cfg.MaxTokens),
			Temperature: float32(cfg.Temperature),
		})
		if err != nil {
			return nil, err
		}
		base, release = p, p.Close
	default:
		return nil, fmt.Errorf("unknown reasoning provider %q", cfg.Provider)
	}

	return closer{Client: middleware.Wrap(base, Chain(cfg, extra...)...), close: release}, nil
}

// Chain returns the middleware applied to every provider.
func Chain(cfg config.ReasoningConfig, extra ...middleware.Middleware) []middleware.Middleware {
	chain := []middleware.Middleware{
		errorhandler.NewErrorHandler(nil),
		validator.NewRequestValidator(nil),
	}
	if cfg.RateLimit > 0 {
		chain = append(chain, limiter.NewRateLimiter(cfg.RateLimit, cfg.Burst, true))
	}
	chain = append(chain, logger.NewCallLogger(nil), validator.NewResponseFilter(validator.TrimSpace))
	return append(chain, extra...)
}
