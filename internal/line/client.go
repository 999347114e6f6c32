// Package line implements the LINE messaging platform boundary: webhook
// decoding with signature verification, and the outbound reply client.
package line

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/jsonx"
)

const replyEndpoint = "https://api.line.me/v2/bot/message/reply"

// ReplySender delivers a reply for a webhook event.
type ReplySender interface {
	Reply(ctx context.Context, replyToken, text string) error
}

// Client is the LINE reply API client. Sends are fire-and-forget from the
// pipeline's point of view: failures are logged by the caller and never
// retried.
type Client struct {
	accessToken string
	endpoint    string
	client      *http.Client
	logger      *zap.Logger
}

// NewClient creates a reply client for the given channel access token.
func NewClient(accessToken string, logger *zap.Logger) *Client {
	return &Client{
		accessToken: accessToken,
		endpoint:    replyEndpoint,
		client:      &http.Client{Timeout: 10 * time.Second},
		logger:      logger.Named("line"),
	}
}

// SetEndpoint overrides the reply API URL, for tests.
func (c *Client) SetEndpoint(url string) {
	c.endpoint = url
}

// Reply sends one text message for replyToken.
func (c *Client) Reply(ctx context.Context, replyToken, text string) error {
	payload, err := jsonx.Marshal(map[string]interface{}{
		"replyToken": replyToken,
		"messages": []map[string]string{
			{"type": "text", "text": text},
		},
	})
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create reply request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("reply request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("reply API error (status %d): %s", resp.StatusCode, body)
	}
	return nil
}
