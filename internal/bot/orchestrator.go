// Package bot composes the message-processing pipeline: admission-checked
// events flow through classification, the response cache, the provider
// chain, formatting, conversation persistence and analytics. Process
// always produces a non-empty reply; every dependency failure short of
// rate-limit denial is downgraded at its boundary.
package bot

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/analytics"
	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/classify"
	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/convo"
	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/format"
	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/provider"
	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/respcache"
	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/syncx"
)

// MaxMessageRunes bounds inbound message length; anything longer gets the
// fixed validation reply without touching a provider.
const MaxMessageRunes = 2000

// Event is one decoded inbound message. ClientID must be resolved by the
// transport layer before Process is invoked.
type Event struct {
	ClientID   string
	Text       string
	ReplyToken string
}

// Orchestrator wires the pipeline stages together.
type Orchestrator struct {
	cache     *respcache.Cache
	store     *convo.Store
	chain     *provider.Chain
	analytics *analytics.Aggregator
	locks     syncx.KeyedMutex
	logger    *zap.Logger
}

// New creates the orchestrator.
func New(cache *respcache.Cache, store *convo.Store, chain *provider.Chain, agg *analytics.Aggregator, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		cache:     cache,
		store:     store,
		chain:     chain,
		analytics: agg,
		logger:    logger.Named("bot"),
	}
}

// Process resolves a reply for one event. It never returns an empty
// string and never fails: total provider failure yields the static
// apology, backend failures degrade to the uncached path.
func (o *Orchestrator) Process(ctx context.Context, ev Event) string {
	text := strings.TrimSpace(ev.Text)
	cls := classify.Classify(text)

	if text == "" || utf8.RuneCountInString(text) > MaxMessageRunes {
		return format.ValidationReply(cls.Language)
	}

	fingerprint := respcache.Fingerprint(text, cls.Language)
	if entry, ok := o.cache.Get(ctx, fingerprint); ok {
		o.logger.Debug("cache hit",
			zap.String("user", ev.ClientID),
			zap.String("provider", entry.ProviderID))
		// A hit skips generation but still counts as a processed message:
		// the turn is recorded and analytics reflect the cached provider.
		res := &provider.Result{
			Text:       entry.Response,
			ProviderID: entry.ProviderID,
			Confidence: entry.Confidence,
			Succeeded:  true,
		}
		o.finish(ctx, ev.ClientID, text, entry.Response, res)
		return entry.Response
	}

	history := o.store.Read(ctx, ev.ClientID)
	res := o.chain.Generate(ctx, text, history, cls)
	reply := format.Format(res, cls.Intent, cls.Language)

	// Only live answers are cacheable; degraded results carry no TTL so
	// a transient outage is never replayed to other users.
	if res.Succeeded && res.CacheTTL > 0 {
		o.cache.Put(ctx, fingerprint, respcache.Entry{
			Response:   reply,
			ProviderID: res.ProviderID,
			Confidence: res.Confidence,
			CreatedAt:  time.Now(),
			TTL:        res.CacheTTL,
		})
	}

	o.finish(ctx, ev.ClientID, text, reply, res)
	return reply
}

// finish runs the Persisted and Reported stages. The per-identity lock
// keeps the window append and the analytics update from interleaving with
// a concurrent event for the same user; distinct users proceed in
// parallel.
func (o *Orchestrator) finish(ctx context.Context, clientID, userText, reply string, res *provider.Result) {
	unlock := o.locks.Lock(clientID)
	defer unlock()

	now := time.Now()
	o.store.Append(ctx, clientID, convo.Turn{Role: convo.RoleUser, Content: userText, Timestamp: now})
	o.store.Append(ctx, clientID, convo.Turn{Role: convo.RoleAssistant, Content: reply, Timestamp: now})
	o.analytics.Update(ctx, clientID, res)
}

// Stats exposes a user's analytics aggregate for the admin surface.
func (o *Orchestrator) Stats(id string) analytics.State {
	return o.analytics.Snapshot(id)
}
