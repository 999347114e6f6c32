// Package respcache is the content-addressed response cache. Replies are
// keyed by a fingerprint of the normalized message text and resolved
// language, so trivially-equivalent queries share a slot. The cache is
// two-tier: Ristretto in-process for hot lookups, Redis for TTL-expiring
// entries shared across instances.
package respcache

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dgraph-io/ristretto/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/classify"
	"github.com/khiwniti/Bloodplusfight-TH-chatbot-assistant-sub001/internal/jsonx"
)

// Entry is one cached formatted reply.
type Entry struct {
	Fingerprint string        `json:"fingerprint"`
	Response    string        `json:"response"`
	ProviderID  string        `json:"provider_id"`
	Confidence  float64       `json:"confidence"`
	CreatedAt   time.Time     `json:"created_at"`
	TTL         time.Duration `json:"ttl"`
}

// Fingerprint derives the deterministic cache key for a message in a
// given language. Normalization lower-cases and trims the text; the hash
// is xxhash64, collision-resistant for cache purposes and stable across
// processes.
func Fingerprint(text string, lang classify.Language) string {
	norm := strings.ToLower(strings.TrimSpace(text))
	h := xxhash.New()
	h.WriteString(norm)
	h.WriteString("\x00")
	h.WriteString(string(lang))
	return strconv.FormatUint(h.Sum64(), 16)
}

// Cache is advisory: every backend failure degrades to a miss and every
// write is best-effort. The pipeline must keep working with no cache at
// all.
type Cache struct {
	l1     *ristretto.Cache[string, []byte]
	l2     *redis.Client
	logger *zap.Logger
}

// New creates the response cache. redisClient may be nil, leaving only
// the in-process tier.
func New(redisClient *redis.Client, logger *zap.Logger) (*Cache, error) {
	l1, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: 100_000,
		MaxCost:     32 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{
		l1:     l1,
		l2:     redisClient,
		logger: logger.Named("respcache"),
	}, nil
}

// Get returns the cached entry for fingerprint, or false on a miss.
// Expired and malformed entries count as misses.
func (c *Cache) Get(ctx context.Context, fingerprint string) (*Entry, bool) {
	if data, ok := c.l1.Get(fingerprint); ok {
		if entry := decode(data, c.logger); entry != nil {
			return entry, true
		}
	}

	if c.l2 == nil {
		return nil, false
	}
	data, err := c.l2.Get(ctx, key(fingerprint)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("cache backend read failed", zap.Error(err))
		}
		return nil, false
	}
	entry := decode(data, c.logger)
	if entry == nil {
		return nil, false
	}

	// Promote to L1 for the remainder of the entry's lifetime.
	if remaining := time.Until(entry.CreatedAt.Add(entry.TTL)); remaining > 0 {
		c.l1.SetWithTTL(fingerprint, data, int64(len(data)), remaining)
	}
	return entry, true
}

// Put stores entry under fingerprint for entry.TTL. The Redis write is
// asynchronous; a concurrent Put for the same fingerprint is a tolerated
// race (last writer wins).
func (c *Cache) Put(ctx context.Context, fingerprint string, entry Entry) {
	entry.Fingerprint = fingerprint
	data, err := jsonx.Marshal(&entry)
	if err != nil {
		c.logger.Warn("cache encode failed", zap.Error(err))
		return
	}

	c.l1.SetWithTTL(fingerprint, data, int64(len(data)), entry.TTL)
	// Flush Ristretto's set buffer so the entry is visible to the next
	// request for the same fingerprint.
	c.l1.Wait()

	if c.l2 != nil {
		go func() {
			if err := c.l2.Set(context.WithoutCancel(ctx), key(fingerprint), data, entry.TTL).Err(); err != nil {
				c.logger.Warn("cache backend write failed", zap.Error(err))
			}
		}()
	}
}

// Close releases the in-process tier.
func (c *Cache) Close() {
	c.l1.Close()
}

func key(fingerprint string) string {
	return "respcache:" + fingerprint
}

func decode(data []byte, logger *zap.Logger) *Entry {
	var entry Entry
	if err := jsonx.Unmarshal(data, &entry); err != nil {
		logger.Warn("cache payload malformed", zap.Error(err))
		return nil
	}
	if entry.TTL > 0 && time.Now().After(entry.CreatedAt.Add(entry.TTL)) {
		return nil
	}
	return &entry
}
