package line

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/bot"
	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/classify"
	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/format"
	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/jsonx"
	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/policy"
)

const rateLimitReplyEN = "You're sending messages a little too quickly. Please wait a moment and try again."

const rateLimitReplyTH = "คุณส่งข้อความเร็วเกินไป กรุณารอสักครู่แล้วลองใหม่อีกครั้ง"

// Processor is the pipeline entry point consumed by the webhook layer.
type Processor interface {
	Process(ctx context.Context, ev bot.Event) string
}

// webhookPayload mirrors the LINE webhook body.
type webhookPayload struct {
	Events []webhookEvent `json:"events"`
}

type webhookEvent struct {
	Type       string `json:"type"`
	ReplyToken string `json:"replyToken"`
	Message    struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"message"`
	Source struct {
		UserID string `json:"userId"`
	} `json:"source"`
}

// WebhookHandler decodes LINE webhook batches, verifies their signature,
// runs admission control and fans events out to the pipeline. Each user's
// events are processed sequentially in arrival order; distinct users run
// in parallel.
type WebhookHandler struct {
	channelSecret string
	limiter       *policy.RateLimiter
	processor     Processor
	replies       ReplySender
	logger        *zap.Logger
}

// NewWebhookHandler creates the webhook handler. An empty channelSecret
// disables signature verification (local development only).
func NewWebhookHandler(channelSecret string, limiter *policy.RateLimiter, processor Processor, replies ReplySender, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		channelSecret: channelSecret,
		limiter:       limiter,
		processor:     processor,
		replies:       replies,
		logger:        logger.Named("webhook"),
	}
}

// ServeHTTP implements http.Handler for POST /webhook.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set("X-Request-ID", requestID)

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, `{"error": "unreadable body"}`, http.StatusBadRequest)
		return
	}

	if h.channelSecret != "" {
		signature := r.Header.Get("X-Line-Signature")
		if !ValidateSignature(h.channelSecret, body, signature) {
			h.logger.Warn("invalid webhook signature", zap.String("request_id", requestID))
			http.Error(w, `{"error": "invalid signature"}`, http.StatusBadRequest)
			return
		}
	}

	var payload webhookPayload
	if err := jsonx.Unmarshal(body, &payload); err != nil {
		http.Error(w, `{"error": "malformed payload"}`, http.StatusBadRequest)
		return
	}

	// Group the batch by user and run one goroutine per group. A group's
	// events run in arrival order, so two messages from the same user can
	// never invert the conversation window; distinct users still proceed
	// in parallel.
	groups := make(map[string][]webhookEvent)
	var order []string
	for _, ev := range payload.Events {
		id := ev.Source.UserID
		if _, ok := groups[id]; !ok {
			order = append(order, id)
		}
		groups[id] = append(groups[id], ev)
	}

	var wg sync.WaitGroup
	for _, id := range order {
		wg.Add(1)
		go func(events []webhookEvent) {
			defer wg.Done()
			for _, ev := range events {
				h.dispatch(r.Context(), ev, requestID)
			}
		}(groups[id])
	}
	wg.Wait()

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status": "ok"}`)
}

func (h *WebhookHandler) dispatch(ctx context.Context, ev webhookEvent, requestID string) {
	switch {
	case ev.Type == "message" && ev.Message.Type == "text":
		h.handleMessage(ctx, ev, requestID)
	case ev.Type == "follow":
		h.send(ctx, ev.ReplyToken, format.WelcomeMessage)
	}
}

func (h *WebhookHandler) handleMessage(ctx context.Context, ev webhookEvent, requestID string) {
	clientID := ev.Source.UserID
	if clientID == "" {
		h.logger.Warn("message event without user id", zap.String("request_id", requestID))
		return
	}

	decision := h.limiter.Admit(ctx, clientID)
	if !decision.Allowed {
		h.logger.Info("request rate limited",
			zap.String("request_id", requestID),
			zap.String("user", clientID),
			zap.Duration("retry_after", decision.RetryAfter))
		h.send(ctx, ev.ReplyToken, rateLimitReply(ev.Message.Text))
		return
	}

	reply := h.processor.Process(ctx, bot.Event{
		ClientID:   clientID,
		Text:       ev.Message.Text,
		ReplyToken: ev.ReplyToken,
	})
	h.send(ctx, ev.ReplyToken, reply)
}

// send is fire-and-forget: delivery failures are logged, never retried.
func (h *WebhookHandler) send(ctx context.Context, replyToken, text string) {
	if h.replies == nil || replyToken == "" {
		return
	}
	if err := h.replies.Reply(ctx, replyToken, text); err != nil {
		h.logger.Warn("reply delivery failed", zap.Error(err))
	}
}

// ValidateSignature checks the X-Line-Signature header: base64 of the
// HMAC-SHA256 of the raw request body under the channel secret, compared
// in constant time.
func ValidateSignature(channelSecret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func rateLimitReply(text string) string {
	if classify.DetectLanguage(text) == classify.LangTH {
		return rateLimitReplyTH
	}
	return rateLimitReplyEN
}
