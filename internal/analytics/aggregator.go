// Package analytics maintains per-user usage counters and a running
// average confidence. Updates are incremental and serialized per user;
// they run after the conversation turn is persisted and are strictly
// best-effort, never failing the reply path.
package analytics

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/provider"
	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/syncx"
)

// State is the aggregate for one user.
type State struct {
	TotalMessages     int64
	TotalTokens       int64
	PerProvider       map[string]int64
	AverageConfidence float64
}

// Aggregator holds analytics state in memory, mirrored best-effort to a
// Redis hash per user so aggregates survive restarts.
type Aggregator struct {
	mu     sync.RWMutex
	users  map[string]*State
	locks  syncx.KeyedMutex
	redis  *redis.Client
	logger *zap.Logger
}

// NewAggregator creates an analytics aggregator. redisClient may be nil.
func NewAggregator(redisClient *redis.Client, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		users:  make(map[string]*State),
		redis:  redisClient,
		logger: logger.Named("analytics"),
	}
}

// Update applies one processed message to id's aggregate. The running
// average uses the incremental form (old*n + c) / (n+1); full history is
// never rescanned. Errors are logged and swallowed.
func (a *Aggregator) Update(ctx context.Context, id string, res *provider.Result) {
	unlock := a.locks.Lock(id)
	defer unlock()

	state := a.load(ctx, id)
	n := state.TotalMessages
	state.AverageConfidence = (state.AverageConfidence*float64(n) + res.Confidence) / float64(n+1)
	state.TotalMessages = n + 1
	state.TotalTokens += int64(res.TokensUsed)
	state.PerProvider[res.ProviderID]++

	a.persist(ctx, id, state)
}

// Snapshot returns a copy of id's aggregate, zero-valued for unknown ids.
func (a *Aggregator) Snapshot(id string) State {
	unlock := a.locks.Lock(id)
	defer unlock()

	a.mu.RLock()
	state, ok := a.users[id]
	a.mu.RUnlock()
	if !ok {
		return State{PerProvider: map[string]int64{}}
	}

	out := *state
	out.PerProvider = make(map[string]int64, len(state.PerProvider))
	for k, v := range state.PerProvider {
		out.PerProvider[k] = v
	}
	return out
}

// load returns the live state for id, hydrating it from the Redis mirror
// the first time an id is seen after a restart. Callers must hold the id
// lock.
func (a *Aggregator) load(ctx context.Context, id string) *State {
	a.mu.RLock()
	state, ok := a.users[id]
	a.mu.RUnlock()
	if ok {
		return state
	}

	state = &State{PerProvider: make(map[string]int64)}
	if a.redis != nil {
		if fields, err := a.redis.HGetAll(ctx, a.key(id)).Result(); err != nil {
			a.logger.Warn("analytics load failed", zap.String("user", id), zap.Error(err))
		} else {
			hydrate(state, fields)
		}
	}

	a.mu.Lock()
	a.users[id] = state
	a.mu.Unlock()
	return state
}

func (a *Aggregator) persist(ctx context.Context, id string, state *State) {
	if a.redis == nil {
		return
	}
	fields := map[string]interface{}{
		"total_messages": state.TotalMessages,
		"total_tokens":   state.TotalTokens,
		"avg_confidence": strconv.FormatFloat(state.AverageConfidence, 'f', -1, 64),
	}
	for pid, count := range state.PerProvider {
		fields["provider:"+pid] = count
	}
	if err := a.redis.HSet(ctx, a.key(id), fields).Err(); err != nil {
		a.logger.Warn("analytics persist failed", zap.String("user", id), zap.Error(err))
	}
}

func (a *Aggregator) key(id string) string {
	return fmt.Sprintf("analytics:%s", id)
}

func hydrate(state *State, fields map[string]string) {
	for k, v := range fields {
		switch {
		case k == "total_messages":
			state.TotalMessages, _ = strconv.ParseInt(v, 10, 64)
		case k == "total_tokens":
			state.TotalTokens, _ = strconv.ParseInt(v, 10, 64)
		case k == "avg_confidence":
			state.AverageConfidence, _ = strconv.ParseFloat(v, 64)
		case strings.HasPrefix(k, "provider:"):
			count, _ := strconv.ParseInt(v, 10, 64)
			state.PerProvider[strings.TrimPrefix(k, "provider:")] = count
		}
	}
}
