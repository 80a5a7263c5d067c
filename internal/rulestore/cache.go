package rulestore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/recruitflow/automation/internal/models"
)

const (
	cachePrefix     = "automation:rules:"
	defaultCacheTTL = 30 * time.Second
)

// CachedStore layers a redis read-through cache over another store. The TTL
// bounds staleness; Invalidate (driven by the rule-CRUD notification hook)
// drops entries eagerly. Cache misses and redis failures fall back to the
// inner store, never to an error.
type CachedStore struct {
	inner Store
	rdb   *redis.Client
	ttl   time.Duration
}

// NewCachedStore wraps inner with a redis cache. A zero ttl uses the default.
func NewCachedStore(inner Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedStore{inner: inner, rdb: rdb, ttl: ttl}
}

// ActiveForModel implements Store.
func (s *CachedStore) ActiveForModel(ctx context.Context, model string, types []models.TriggerType) ([]models.Rule, error) {
	key := cacheKey("model", model, types)
	if rules, ok := s.lookup(ctx, key); ok {
		return rules, nil
	}
	rules, err := s.inner.ActiveForModel(ctx, model, types)
	if err != nil {
		return nil, err
	}
	s.fill(ctx, key, rules)
	return rules, nil
}

// ActiveForSignal implements Store.
func (s *CachedStore) ActiveForSignal(ctx context.Context, signal string, types []models.TriggerType) ([]models.Rule, error) {
	key := cacheKey("signal", signal, types)
	if rules, ok := s.lookup(ctx, key); ok {
		return rules, nil
	}
	rules, err := s.inner.ActiveForSignal(ctx, signal, types)
	if err != nil {
		return nil, err
	}
	s.fill(ctx, key, rules)
	return rules, nil
}

// ActiveScheduled implements Store. Scheduled rules are read once per tick;
// caching them would only delay schedule edits, so this passes through.
func (s *CachedStore) ActiveScheduled(ctx context.Context) ([]models.Rule, error) {
	return s.inner.ActiveScheduled(ctx)
}

// Get implements Store.
func (s *CachedStore) Get(ctx context.Context, id uint64) (*models.Rule, error) {
	return s.inner.Get(ctx, id)
}

// Invalidate implements Store: deletes all cached rule sets.
func (s *CachedStore) Invalidate(ctx context.Context) error {
	iter := s.rdb.Scan(ctx, 0, cachePrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("rulestore: scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("rulestore: drop cache keys: %w", err)
	}
	return nil
}

func (s *CachedStore) lookup(ctx context.Context, key string) ([]models.Rule, bool) {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.WithError(err).Debug("rulestore: cache read failed")
		}
		return nil, false
	}
	var rules []models.Rule
	if err := json.Unmarshal(raw, &rules); err != nil {
		return nil, false
	}
	return rules, true
}

func (s *CachedStore) fill(ctx context.Context, key string, rules []models.Rule) {
	raw, err := json.Marshal(rules)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, key, raw, s.ttl).Err(); err != nil {
		log.WithError(err).Debug("rulestore: cache write failed")
	}
}

func cacheKey(scope, name string, types []models.TriggerType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	sort.Strings(parts)
	return cachePrefix + scope + ":" + name + ":" + strings.Join(parts, ",")
}
