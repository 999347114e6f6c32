package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/convo"
	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/jsonx"
)

// HTTPConfig describes one remote chat-completion backend.
type HTTPConfig struct {
	ID          string
	URL         string
	APIKey      string
	Model       string
	MaxTokens int
	// Temperature zero is honored (deterministic output); a negative
	// value selects the default of 0.7.
	Temperature float64
	Timeout     time.Duration
	Confidence  float64
	CacheTTL    time.Duration

	// Extra headers beyond Authorization, e.g. anthropic-version.
	Headers map[string]string
}

// HTTPProvider calls a chat-completion style HTTP API (Cloudflare Workers
// AI, OpenAI and compatible endpoints). Each call carries its own
// deadline so a hung backend cannot stall the chain.
type HTTPProvider struct {
	cfg    HTTPConfig
	client *http.Client
	logger *zap.Logger
}

// NewHTTPProvider creates a provider for one remote backend.
func NewHTTPProvider(cfg HTTPConfig, logger *zap.Logger) *HTTPProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2000
	}
	if cfg.Temperature < 0 {
		cfg.Temperature = 0.7
	}
	return &HTTPProvider{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: logger.Named("provider." + cfg.ID),
	}
}

// ID implements Provider.
func (p *HTTPProvider) ID() string { return p.cfg.ID }

// Generate implements Provider.
func (p *HTTPProvider) Generate(ctx context.Context, prompt Prompt) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	messages := make([]map[string]string, 0, len(prompt.History)+2)
	messages = append(messages, map[string]string{"role": "system", "content": prompt.System})
	for _, turn := range prompt.History {
		role := "user"
		if turn.Role == convo.RoleAssistant {
			role = "assistant"
		}
		messages = append(messages, map[string]string{"role": role, "content": turn.Content})
	}
	messages = append(messages, map[string]string{"role": "user", "content": prompt.Message})

	reqBody := map[string]interface{}{
		"messages":    messages,
		"max_tokens":  p.cfg.MaxTokens,
		"temperature": p.cfg.Temperature,
	}
	if p.cfg.Model != "" {
		reqBody["model"] = p.cfg.Model
	}

	text, tokens, err := p.post(ctx, reqBody)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("provider %s returned empty content", p.cfg.ID)
	}
	if tokens == 0 {
		// Rough estimate when the backend omits usage, ~4 chars/token.
		tokens = len(text)/4 + len(prompt.Message)/4
	}

	return &Result{
		Text:       text,
		ProviderID: p.cfg.ID,
		Confidence: p.cfg.Confidence,
		TokensUsed: tokens,
		Succeeded:  true,
		CacheTTL:   p.cfg.CacheTTL,
	}, nil
}

func (p *HTTPProvider) post(ctx context.Context, body map[string]interface{}) (string, int, error) {
	payload, err := jsonx.Marshal(body)
	if err != nil {
		return "", 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return "", 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}
	for k, v := range p.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", 0, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("API error (status %d): %s", resp.StatusCode, truncate(respBody, 200))
	}

	var result map[string]interface{}
	if err := jsonx.Unmarshal(respBody, &result); err != nil {
		return "", 0, fmt.Errorf("parse response: %w", err)
	}

	text, err := extractContent(result)
	if err != nil {
		return "", 0, err
	}
	return text, extractTokens(result), nil
}

// extractContent pulls the generated text out of the known wire formats.
func extractContent(result map[string]interface{}) (string, error) {
	// OpenAI-compatible format.
	if choices, ok := result["choices"].([]interface{}); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]interface{}); ok {
			if message, ok := choice["message"].(map[string]interface{}); ok {
				if content, ok := message["content"].(string); ok {
					return content, nil
				}
			}
		}
	}

	// Cloudflare Workers AI format: {"success": true, "result": {"response": ...}}.
	if inner, ok := result["result"].(map[string]interface{}); ok {
		if response, ok := inner["response"].(string); ok {
			return response, nil
		}
	}

	// Bare response field.
	if response, ok := result["response"].(string); ok {
		return response, nil
	}

	return "", fmt.Errorf("could not extract content from response")
}

// extractTokens reads usage accounting when the backend reports it.
func extractTokens(result map[string]interface{}) int {
	usage, ok := result["usage"].(map[string]interface{})
	if !ok {
		return 0
	}
	switch v := usage["total_tokens"].(type) {
	case float64:
		return int(v)
	case int64:
		return int(v)
	}
	return 0
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
