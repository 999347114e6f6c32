package provider

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/classify"
	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/convo"
)

// Chain tries an ordered list of providers and falls back to the static
// apology when all of them fail. Generate never returns an error to the
// caller; failures are logged and absorbed by advancing the chain.
type Chain struct {
	providers    []Provider
	fallback     StaticFallback
	historyTurns int
	logger       *zap.Logger
}

// NewChain creates a fallback chain. historyTurns bounds how many recent
// context turns are included in prompts; it is independent of the
// conversation window capacity.
func NewChain(providers []Provider, historyTurns int, logger *zap.Logger) *Chain {
	if historyTurns <= 0 {
		historyTurns = 10
	}
	return &Chain{
		providers:    providers,
		historyTurns: historyTurns,
		logger:       logger.Named("chain"),
	}
}

// Generate resolves a reply for message, consulting providers in order.
func (c *Chain) Generate(ctx context.Context, message string, history []convo.Turn, cls classify.Result) *Result {
	prompt := BuildPrompt(cls, history, c.historyTurns, message)

	for _, p := range c.providers {
		start := time.Now()
		res, err := p.Generate(ctx, prompt)
		if err != nil {
			c.logger.Warn("provider failed, advancing chain",
				zap.String("provider", p.ID()),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err))
			continue
		}
		c.logger.Debug("provider answered",
			zap.String("provider", p.ID()),
			zap.Int("tokens", res.TokensUsed),
			zap.Duration("elapsed", time.Since(start)))
		return res
	}

	c.logger.Warn("all providers exhausted, serving static fallback",
		zap.String("language", string(cls.Language)))
	res, _ := c.fallback.Generate(ctx, prompt)
	return res
}
