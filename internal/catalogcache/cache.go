package catalogcache

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/viccon/sturdyc"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// KeyPrefix namespaces every page key.
const KeyPrefix = "books_page_"

// Key returns the cache key for a page number.
func Key(page int) string {
	return KeyPrefix + strconv.Itoa(page)
}

// Cache stores computed pages of type T keyed by page number.
// Values are kept serialized, so callers always receive a private copy.
type Cache[T any] struct {
	client *sturdyc.Client[[]byte]
}

// New creates a page cache backed by sturdyc.
func New[T any](cfg Config) (*Cache[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := sturdyc.New[[]byte](cfg.Capacity, cfg.NumShards, cfg.TTL, cfg.EvictionPercentage)
	return &Cache[T]{client: client}, nil
}

// GetOrCompute returns the cached page if present and unexpired. Otherwise it calls
// compute, stores the result and returns it. Errors are never cached.
// Concurrent misses for the same page may each compute; the last write wins.
func (c *Cache[T]) GetOrCompute(ctx context.Context, page int, compute func(context.Context) (T, error)) (T, error) {
	key := Key(page)

	if raw, ok := c.client.Get(key); ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
		log.Printf("catalogcache decode_failed key=%s", key)
		c.client.Delete(key)
	}

	v, err := compute(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return v, fmt.Errorf("encode page %d: %w", page, err)
	}
	c.client.Set(key, raw)
	return v, nil
}

// InvalidateAll evicts every resident page key, including pages past the current last page.
func (c *Cache[T]) InvalidateAll(ctx context.Context) error {
	evicted := 0
	for _, key := range c.client.ScanKeys() {
		if strings.HasPrefix(key, KeyPrefix) {
			c.client.Delete(key)
			evicted++
		}
	}
	log.Printf("catalogcache invalidated pages=%d", evicted)
	return nil
}

// Len returns the number of resident entries.
func (c *Cache[T]) Len() int {
	return c.client.Size()
}
