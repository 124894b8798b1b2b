package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/andresuchdata/freshstock/backend-go/internal/config"
	"github.com/andresuchdata/freshstock/backend-go/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	stockOverviewKeyPrefix = "stock_overview"
	stockOverviewGenPrefix = "stock_overview_gen"
	stockOverviewAllGenKey = stockOverviewGenPrefix + ":all"
	overviewScanBatchSize  = 100
)

// Generation is the invalidation count of one store's overview, plus the
// count of cache-wide invalidations. Every invalidation moves it forward.
type Generation struct {
	Store int64
	All   int64
}

var errStaleGeneration = errors.New("stock overview generation changed")

type StockOverviewCache interface {
	Get(ctx context.Context, storeID int64, day time.Time) ([]domain.StockOverviewItem, bool, error)
	// Generation is read before building an overview and handed to Set.
	Generation(ctx context.Context, storeID int64) (Generation, error)
	// Set stores items only while gen is still current; an overview built
	// before an invalidation is dropped.
	Set(ctx context.Context, storeID int64, day time.Time, gen Generation, items []domain.StockOverviewItem) error
	// Invalidate drops every cached day of a store.
	Invalidate(ctx context.Context, storeID int64) error
	InvalidateAll(ctx context.Context) error
}

type redisStockOverviewCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopStockOverviewCache struct{}

func NewStockOverviewCache(cfg config.CacheConfig) (StockOverviewCache, error) {
	if !cfg.Enabled {
		return &noopStockOverviewCache{}, nil
	}

	client, err := dialRedis(cfg)
	if err != nil {
		return nil, err
	}

	return &redisStockOverviewCache{
		client: client,
		ttl:    overviewTTL(cfg),
	}, nil
}

func NewNoopStockOverviewCache() StockOverviewCache {
	return &noopStockOverviewCache{}
}

func (c *redisStockOverviewCache) Get(ctx context.Context, storeID int64, day time.Time) ([]domain.StockOverviewItem, bool, error) {
	payload, err := c.client.Get(ctx, stockOverviewKey(storeID, day)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var items []domain.StockOverviewItem
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, false, fmt.Errorf("decode stock overview cache: %w", err)
	}

	return items, true, nil
}

func (c *redisStockOverviewCache) Generation(ctx context.Context, storeID int64) (Generation, error) {
	return readGeneration(ctx, c.client, storeID)
}

func (c *redisStockOverviewCache) Set(ctx context.Context, storeID int64, day time.Time, gen Generation, items []domain.StockOverviewItem) error {
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode stock overview cache: %w", err)
	}

	key := stockOverviewKey(storeID, day)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readGeneration(ctx, tx, storeID)
		if err != nil {
			return err
		}
		if current != gen {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, c.ttl)
			return nil
		})
		return err
	}, stockOverviewGenKey(storeID), stockOverviewAllGenKey)

	switch {
	case errors.Is(err, errStaleGeneration), errors.Is(err, redis.TxFailedErr):
		return nil
	case err != nil:
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Invalidate bumps the store generation before dropping keys, so a Set racing
// with it fails its WATCH.
func (c *redisStockOverviewCache) Invalidate(ctx context.Context, storeID int64) error {
	if err := c.client.Incr(ctx, stockOverviewGenKey(storeID)).Err(); err != nil {
		return fmt.Errorf("redis incr failed: %w", err)
	}
	return unlinkByPrefix(ctx, c.client, stockOverviewStorePrefix(storeID), overviewScanBatchSize)
}

func (c *redisStockOverviewCache) InvalidateAll(ctx context.Context) error {
	if err := c.client.Incr(ctx, stockOverviewAllGenKey).Err(); err != nil {
		return fmt.Errorf("redis incr failed: %w", err)
	}
	return unlinkByPrefix(ctx, c.client, stockOverviewKeyPrefix+":", overviewScanBatchSize)
}

// generationReader is satisfied by both *redis.Client and *redis.Tx.
type generationReader interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

func readGeneration(ctx context.Context, cmd generationReader, storeID int64) (Generation, error) {
	vals, err := cmd.MGet(ctx, stockOverviewGenKey(storeID), stockOverviewAllGenKey).Result()
	if err != nil {
		return Generation{}, fmt.Errorf("redis mget failed: %w", err)
	}
	counts, err := parseCounters(vals)
	if err != nil {
		return Generation{}, err
	}
	return Generation{Store: counts[0], All: counts[1]}, nil
}

// parseCounters reads INCR counters returned by MGET; missing keys count as 0.
func parseCounters(vals []interface{}) ([]int64, error) {
	counts := make([]int64, len(vals))
	for i, v := range vals {
		if v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected generation value %T", v)
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid generation value %q: %w", s, err)
		}
		counts[i] = n
	}
	return counts, nil
}

func (n *noopStockOverviewCache) Get(ctx context.Context, storeID int64, day time.Time) ([]domain.StockOverviewItem, bool, error) {
	return nil, false, nil
}

func (n *noopStockOverviewCache) Generation(ctx context.Context, storeID int64) (Generation, error) {
	return Generation{}, nil
}

func (n *noopStockOverviewCache) Set(ctx context.Context, storeID int64, day time.Time, gen Generation, items []domain.StockOverviewItem) error {
	return nil
}

func (n *noopStockOverviewCache) Invalidate(ctx context.Context, storeID int64) error {
	return nil
}

func (n *noopStockOverviewCache) InvalidateAll(ctx context.Context) error {
	return nil
}

// stockOverviewStorePrefix ends with a colon so store 1 never matches store 10.
func stockOverviewStorePrefix(storeID int64) string {
	return fmt.Sprintf("%s:%d:", stockOverviewKeyPrefix, storeID)
}

// stockOverviewGenKey lives outside the stock_overview: namespace so prefix
// invalidation never deletes it.
func stockOverviewGenKey(storeID int64) string {
	return fmt.Sprintf("%s:%d", stockOverviewGenPrefix, storeID)
}

func stockOverviewKey(storeID int64, day time.Time) string {
	return stockOverviewStorePrefix(storeID) + day.Format(domain.DateLayout)
}
