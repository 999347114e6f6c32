// Package convo keeps the per-user conversation window: a fixed-capacity
// sliding buffer of recent turns used to build AI prompts.
package convo

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/jsonx"
	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/syncx"
)

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in a conversation.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Store holds bounded conversation windows keyed by user id. Windows live
// in an in-process expirable LRU (inactive users age out after the
// configured TTL) and are mirrored to Redis so history survives restarts.
// Redis is best-effort: if it is down, the store degrades to process-local
// memory and never surfaces the failure.
type Store struct {
	windows  *expirable.LRU[string, []Turn]
	locks    syncx.KeyedMutex
	redis    *redis.Client
	logger   *zap.Logger
	capacity int
	ttl      time.Duration
}

// NewStore creates a conversation store keeping the last capacity turns
// per user, expiring windows after ttl of inactivity. redisClient may be
// nil.
func NewStore(redisClient *redis.Client, capacity int, ttl time.Duration, logger *zap.Logger) *Store {
	if capacity <= 0 {
		capacity = 20
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{
		windows:  expirable.NewLRU[string, []Turn](10000, nil, ttl),
		redis:    redisClient,
		logger:   logger.Named("convo"),
		capacity: capacity,
		ttl:      ttl,
	}
}

// Read returns the conversation window for id, oldest turn first. It
// never fails: an unknown user or a backend error yields an empty window.
func (s *Store) Read(ctx context.Context, id string) []Turn {
	unlock := s.locks.Lock(id)
	defer unlock()
	return s.load(ctx, id)
}

// Append adds a turn to id's window, trims it to the last capacity turns
// and persists the result. Appends for the same id are serialized, so a
// concurrent reader always observes a complete window.
func (s *Store) Append(ctx context.Context, id string, turn Turn) {
	unlock := s.locks.Lock(id)
	defer unlock()

	turns := s.load(ctx, id)
	turns = append(turns, turn)
	if len(turns) > s.capacity {
		turns = turns[len(turns)-s.capacity:]
	}
	// Replace rather than mutate so concurrent readers of the previous
	// slice are unaffected.
	window := make([]Turn, len(turns))
	copy(window, turns)
	s.windows.Add(id, window)
	s.persist(ctx, id, window)
}

// load returns the in-memory window for id, hydrating it from Redis the
// first time an id is seen after a restart. Callers must hold the id lock.
func (s *Store) load(ctx context.Context, id string) []Turn {
	if turns, ok := s.windows.Get(id); ok {
		return turns
	}
	if s.redis == nil {
		return nil
	}

	data, err := s.redis.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("conversation load failed", zap.String("user", id), zap.Error(err))
		}
		return nil
	}
	var turns []Turn
	if err := jsonx.Unmarshal(data, &turns); err != nil {
		s.logger.Warn("conversation payload malformed", zap.String("user", id), zap.Error(err))
		return nil
	}
	if len(turns) > s.capacity {
		turns = turns[len(turns)-s.capacity:]
	}
	s.windows.Add(id, turns)
	return turns
}

func (s *Store) persist(ctx context.Context, id string, turns []Turn) {
	if s.redis == nil {
		return
	}
	data, err := jsonx.Marshal(turns)
	if err != nil {
		s.logger.Warn("conversation encode failed", zap.String("user", id), zap.Error(err))
		return
	}
	if err := s.redis.Set(ctx, s.key(id), data, s.ttl).Err(); err != nil {
		s.logger.Warn("conversation persist failed", zap.String("user", id), zap.Error(err))
	}
}

func (s *Store) key(id string) string {
	return fmt.Sprintf("convo:%s", id)
}
