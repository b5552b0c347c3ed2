// cache/store.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	logger "github.com/skyward-amo/portal-shell/logging"
	"github.com/skyward-amo/portal-shell/model"
)

// KeyPrefix namespaces every durable entry written by the shell.
const KeyPrefix = "amo_portal_layout_cache"

// Key builds the composite cache key for one session-scoped resource.
func Key(tenantID, subjectID, resource string) string {
	return fmt.Sprintf("%s:%s:%s:%s", KeyPrefix, tenantID, subjectID, resource)
}

// SessionPrefix is the prefix shared by every entry of one session; used for
// wholesale purges on logout/expiry.
func SessionPrefix(tenantID, subjectID string) string {
	return fmt.Sprintf("%s:%s:%s:", KeyPrefix, tenantID, subjectID)
}

// Resource names under a session prefix.
const (
	ResourceSubscription  = "subscription"
	ResourceUnreadCount   = "unread_count"
	ResourceNotifications = "notifications"
	ResourceOverview      = "overview"
)

// Durable is the persistent cache tier. Get returns (nil, nil) on a missing
// key. Implemented by db.RedisKV in production and by an in-memory fake in
// tests.
type Durable interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

// Store is the two-tier TTL cache. The ephemeral tier is a plain in-process
// table consulted before the durable tier when the session's profile enables
// it; both tiers store the same CacheEntry shape. Freshness is decided per
// read against the caller's maxAge, so one entry can be fresh for one reader
// and stale for another.
type Store struct {
	durable Durable

	mu  sync.RWMutex
	mem map[string]model.CacheEntry

	now func() time.Time
}

// NewStore creates a Store over the given durable tier. A nil durable tier is
// allowed: reads miss, writes and prefix clears are no-ops on that tier.
func NewStore(durable Durable) *Store {
	return &Store{
		durable: durable,
		mem:     make(map[string]model.CacheEntry),
		now:     time.Now,
	}
}

// Read returns the cached value for key if it is no older than maxAge.
// Stale and malformed entries are evicted on the way out and reported as
// misses, never as errors.
func (s *Store) Read(ctx context.Context, key string, maxAge time.Duration, useEphemeralTier bool) (json.RawMessage, bool) {
	now := s.now()

	if useEphemeralTier {
		s.mu.RLock()
		entry, ok := s.mem[key]
		s.mu.RUnlock()
		if ok {
			if now.Sub(entry.SavedAt) <= maxAge {
				return entry.Value, true
			}
			s.mu.Lock()
			delete(s.mem, key)
			s.mu.Unlock()
		}
	}

	if s.durable == nil {
		return nil, false
	}

	raw, err := s.durable.Get(ctx, key)
	if err != nil {
		logger.Warn("Durable cache read failed", zap.Error(err), zap.String("key", key))
		return nil, false
	}
	if raw == nil {
		return nil, false
	}

	var entry model.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil || entry.SavedAt.IsZero() {
		// Corrupted entry: evict proactively and treat as a miss.
		s.evict(ctx, key)
		return nil, false
	}

	if now.Sub(entry.SavedAt) > maxAge {
		s.evict(ctx, key)
		return nil, false
	}

	if useEphemeralTier {
		s.mu.Lock()
		s.mem[key] = entry
		s.mu.Unlock()
	}
	return entry.Value, true
}

// Write persists value under key. Always writes the durable tier (when one is
// configured); additionally populates the ephemeral tier when enabled.
// Last-write-wins, no merge.
func (s *Store) Write(ctx context.Context, key string, value any, useEphemeralTier bool) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	entry := model.CacheEntry{Value: raw, SavedAt: s.now().UTC()}

	if useEphemeralTier {
		s.mu.Lock()
		s.mem[key] = entry
		s.mu.Unlock()
	}

	if s.durable == nil {
		return nil
	}

	encoded, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := s.durable.Set(ctx, key, encoded); err != nil {
		return fmt.Errorf("failed to write durable cache entry: %w", err)
	}
	return nil
}

// ClearByPrefix removes every key starting with prefix from both tiers. It
// never fails: an unavailable durable tier makes it a no-op on that tier.
func (s *Store) ClearByPrefix(ctx context.Context, prefix string) {
	s.mu.Lock()
	for key := range s.mem {
		if strings.HasPrefix(key, prefix) {
			delete(s.mem, key)
		}
	}
	s.mu.Unlock()

	if s.durable == nil {
		return
	}
	if err := s.durable.DeleteByPrefix(ctx, prefix); err != nil {
		logger.Warn("Durable cache prefix clear failed", zap.Error(err), zap.String("prefix", prefix))
	}
}

func (s *Store) evict(ctx context.Context, key string) {
	s.mu.Lock()
	delete(s.mem, key)
	s.mu.Unlock()

	if s.durable == nil {
		return
	}
	if err := s.durable.Delete(ctx, key); err != nil {
		logger.Warn("Durable cache eviction failed", zap.Error(err), zap.String("key", key))
	}
}

// WithClock overrides the store's time source. Tests only.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}
