package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// Cache stores vectors by key
type Cache interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, vec []float32) error
}

// CacheKey derives a stable key for a model and text
func CacheKey(prefix, model, text string) string {
	sum := sha256.Sum256([]byte(model + "|" + text))
	return prefix + hex.EncodeToString(sum[:])
}

// CachedEmbedder consults a cache before delegating to the wrapped embedder.
// Cache failures are logged and never fail an embedding.
type CachedEmbedder struct {
	Embedder Embedder
	Cache    Cache
	Model    string
	Prefix   string
	log      zerolog.Logger
}

var _ Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps inner with cache
func NewCachedEmbedder(inner Embedder, cache Cache, model, prefix string, log zerolog.Logger) *CachedEmbedder {
	return &CachedEmbedder{Embedder: inner, Cache: cache, Model: model, Prefix: prefix, log: log}
}

// Embed returns the cached vector for text or computes and stores it
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := CacheKey(c.Prefix, c.Model, text)

	vec, ok, err := c.Cache.Get(ctx, key)
	if err != nil {
		c.log.Warn().Err(err).Msg("embedding cache read failed")
	} else if ok {
		return vec, nil
	}

	vec, err = c.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := c.Cache.Set(ctx, key, vec); err != nil {
		c.log.Warn().Err(err).Msg("embedding cache write failed")
	}
	return vec, nil
}

// RedisCache keeps vectors in Redis as JSON arrays
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Cache = (*RedisCache)(nil)

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

// Get loads a vector; a missing key is a miss, not an error
func (r *RedisCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get cached embedding: %w", err)
	}

	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached embedding: %w", err)
	}
	return vec, true, nil
}

// Set stores a vector with the configured TTL
func (r *RedisCache) Set(ctx context.Context, key string, vec []float32) error {
	data, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("failed to encode embedding: %w", err)
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache embedding: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (r *RedisCache) Close() error {
	return r.client.Close()
}
