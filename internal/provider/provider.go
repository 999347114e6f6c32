// Package provider implements the AI backend fallback chain. Providers
// are tried in configured order, each under its own deadline; the chain
// terminates in a static fallback that cannot fail, so callers always get
// a result.
package provider

import (
	"context"
	"time"

	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/classify"
	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/convo"
)

// Result is the outcome of one generation attempt. Succeeded is false
// only for the degraded static-fallback path.
type Result struct {
	Text       string
	ProviderID string
	Confidence float64
	TokensUsed int
	Succeeded  bool

	// CacheTTL is how long a successful result may be served from the
	// response cache. Zero means the result must not be cached.
	CacheTTL time.Duration
}

// Prompt carries everything a provider needs for one generation.
type Prompt struct {
	System   string
	History  []convo.Turn
	Message  string
	Language classify.Language
	Intent   classify.Intent
}

// Provider is a single AI backend. Generate returns an error on timeout,
// transport failure or malformed payload; the chain then advances to the
// next provider.
type Provider interface {
	ID() string
	Generate(ctx context.Context, prompt Prompt) (*Result, error)
}
