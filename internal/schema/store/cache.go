package store

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"credstore/internal/schema/models"
	"credstore/pkg/platform/circuit"
	"credstore/pkg/platform/crud"
	"credstore/pkg/platform/sentinel"
)

const cacheKeyPrefix = "credstore:schema:"

// deletedMarker is cached in place of a deleted schema so a read that loaded
// the row before the delete cannot fill the key again.
var deletedMarker = []byte("deleted")

// Backend is the key/value surface the cache needs. The Redis client in
// internal/platform/redis satisfies it.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Store(ctx context.Context, key string, value []byte, ttl time.Duration) error
	StoreIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

// CacheRecorder receives hit/miss/error/bypass outcomes. *metrics.Metrics satisfies it.
type CacheRecorder interface {
	RecordCacheLookup(result string)
}

// CachedStore is a read-through cache in front of a schema Store.
//
// Only GetByID is served from the cache. Misses are filled with
// StoreIfAbsent, so a fill never replaces an entry written by Update or
// DeleteByID. Update writes the new schema through and DeleteByID leaves a
// deletion marker for one TTL; when either write fails the key is deleted
// instead. Cache failures are logged and never fail the request. With a
// breaker, reads skip the backend while the circuit is open.
type CachedStore struct {
	next     Store
	backend  Backend
	ttl      time.Duration
	logger   *slog.Logger
	recorder CacheRecorder
	breaker  *circuit.Breaker

	// writeMu orders store writes with their cache writes within a process.
	writeMu sync.Mutex
}

type CacheOption func(*CachedStore)

func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *CachedStore) {
		c.logger = logger
	}
}

func WithCacheRecorder(r CacheRecorder) CacheOption {
	return func(c *CachedStore) {
		c.recorder = r
	}
}

func WithCacheBreaker(b *circuit.Breaker) CacheOption {
	return func(c *CachedStore) {
		c.breaker = b
	}
}

func NewCached(next Store, backend Backend, ttl time.Duration, opts ...CacheOption) *CachedStore {
	c := &CachedStore{
		next:    next,
		backend: backend,
		ttl:     ttl,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CachedStore) GetByID(ctx context.Context, id int64) (models.Schema, error) {
	if !c.breaker.Allow() {
		c.record("bypass")
		return c.next.GetByID(ctx, id)
	}

	key := cacheKey(id)
	data, ok, err := c.backend.Load(ctx, key)
	if err != nil {
		c.breaker.RecordFailure()
	} else {
		c.breaker.RecordSuccess()
	}
	switch {
	case err != nil:
		c.record("error")
		c.logger.WarnContext(ctx, "schema cache read failed", "error", err, "schema_id", id)
	case ok && bytes.Equal(data, deletedMarker):
		c.record("hit")
		return models.Schema{}, sentinel.ErrNotFound
	case ok:
		var schema models.Schema
		if err := json.Unmarshal(data, &schema); err == nil {
			c.record("hit")
			return schema, nil
		}
		c.record("error")
		c.logger.WarnContext(ctx, "discarding undecodable schema cache entry", "schema_id", id)
		if err := c.backend.Delete(ctx, key); err != nil {
			c.logger.WarnContext(ctx, "schema cache invalidation failed", "error", err, "schema_id", id)
		}
	default:
		c.record("miss")
	}

	schema, err := c.next.GetByID(ctx, id)
	if err != nil {
		return models.Schema{}, err
	}

	if payload, err := json.Marshal(schema); err == nil {
		if _, err := c.backend.StoreIfAbsent(ctx, key, payload, c.ttl); err != nil {
			c.logger.WarnContext(ctx, "schema cache write failed", "error", err, "schema_id", id)
		}
	}
	return schema, nil
}

func (c *CachedStore) GetAll(ctx context.Context, page crud.Page) ([]models.Schema, error) {
	return c.next.GetAll(ctx, page)
}

func (c *CachedStore) Create(ctx context.Context, schema models.Schema) (int64, error) {
	return c.next.Create(ctx, schema)
}

func (c *CachedStore) Update(ctx context.Context, schema models.Schema) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.next.Update(ctx, schema); err != nil {
		return err
	}
	id, ok := schema.RecordID()
	if !ok {
		return nil
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		c.invalidate(ctx, id, err)
		return nil
	}
	c.replace(ctx, id, payload)
	return nil
}

func (c *CachedStore) DeleteByID(ctx context.Context, id int64) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.next.DeleteByID(ctx, id); err != nil {
		return err
	}
	c.replace(ctx, id, deletedMarker)
	return nil
}

// replace overwrites the entry for id. A failed overwrite falls back to
// deleting the key so the next read goes to the store.
func (c *CachedStore) replace(ctx context.Context, id int64, payload []byte) {
	if err := c.backend.Store(ctx, cacheKey(id), payload, c.ttl); err != nil {
		c.invalidate(ctx, id, err)
	}
}

func (c *CachedStore) invalidate(ctx context.Context, id int64, cause error) {
	c.logger.WarnContext(ctx, "schema cache write failed", "error", cause, "schema_id", id)
	if err := c.backend.Delete(ctx, cacheKey(id)); err != nil {
		c.logger.ErrorContext(ctx, "schema cache invalidation failed", "error", err, "schema_id", id)
	}
}

func (c *CachedStore) record(result string) {
	if c.recorder != nil {
		c.recorder.RecordCacheLookup(result)
	}
}

func cacheKey(id int64) string {
	return cacheKeyPrefix + strconv.FormatInt(id, 10)
}

var _ Store = (*CachedStore)(nil)
