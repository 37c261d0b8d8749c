// Package recommend records which products are bought together and ranks
// suggestions from those counts. Scores live in Redis, one sorted set per
// product: member = related product id, score = number of paid orders that
// contained both.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/metrics"
)

var ErrInvalidLimit = errors.New("limit must be positive")

const (
	tempKeyPrefix       = "product:suggest:"
	DefaultAggregateTTL = 10 * time.Second
)

// Key is the sorted set holding the products bought together with productID.
func Key(productID string) string {
	return "product:" + productID + ":purchased_with"
}

type Recommender struct {
	rdb          redis.Cmdable
	catalog      catalog.Catalog
	aggregateTTL time.Duration
	logger       zerolog.Logger
}

func New(rdb redis.Cmdable, cat catalog.Catalog, aggregateTTL time.Duration, logger zerolog.Logger) *Recommender {
	if aggregateTTL <= 0 {
		aggregateTTL = DefaultAggregateTTL
	}
	return &Recommender{
		rdb:          rdb,
		catalog:      cat,
		aggregateTTL: aggregateTTL,
		logger:       logger.With().Str("component", "recommender").Logger(),
	}
}

// RecordCoPurchase increments the score of every ordered pair of distinct
// products by one. All increments go out in a single MULTI/EXEC. Fewer than
// two distinct products is a no-op.
func (r *Recommender) RecordCoPurchase(ctx context.Context, productIDs []string) error {
	ids := distinct(productIDs)
	if len(ids) < 2 {
		return nil
	}

	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, a := range ids {
			for _, b := range ids {
				if a == b {
					continue
				}
				pipe.ZIncrBy(ctx, Key(a), 1, b)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("record co-purchase: %w", err)
	}

	metrics.CoPurchaseOrders.Inc()
	metrics.CoPurchaseIncrements.Add(float64(len(ids) * (len(ids) - 1)))
	return nil
}

// SuggestIDs returns up to limit product ids ranked by descending score.
// With several seeds the seeds' sets are summed into a temporary key, the
// seeds themselves are removed, and the key is deleted in the same
// transaction. The key also carries an expiry in case the DEL never runs.
func (r *Recommender) SuggestIDs(ctx context.Context, seeds []string, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	seeds = distinct(seeds)

	switch len(seeds) {
	case 0:
		return []string{}, nil
	case 1:
		start := time.Now()
		ids, err := r.rdb.ZRevRange(ctx, Key(seeds[0]), 0, int64(limit-1)).Result()
		metrics.SuggestDuration.WithLabelValues("single").Observe(time.Since(start).Seconds())
		if err != nil {
			return nil, fmt.Errorf("read associations of %s: %w", seeds[0], err)
		}
		return ids, nil
	}

	keys := make([]string, len(seeds))
	members := make([]any, len(seeds))
	for i, id := range seeds {
		keys[i] = Key(id)
		members[i] = id
	}
	tmp := tempKeyPrefix + uuid.NewString()

	start := time.Now()
	var ranked *redis.StringSliceCmd
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZUnionStore(ctx, tmp, &redis.ZStore{Keys: keys})
		pipe.ZRem(ctx, tmp, members...)
		pipe.Expire(ctx, tmp, r.aggregateTTL)
		ranked = pipe.ZRevRange(ctx, tmp, 0, int64(limit-1))
		pipe.Del(ctx, tmp)
		return nil
	})
	metrics.SuggestDuration.WithLabelValues("multi").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("aggregate associations: %w", err)
	}
	return ranked.Val(), nil
}

// Suggest is SuggestIDs hydrated with one catalog lookup. Products the
// catalog no longer knows are dropped; the rest keep their rank.
func (r *Recommender) Suggest(ctx context.Context, seeds []string, limit int) ([]catalog.Product, error) {
	ids, err := r.SuggestIDs(ctx, seeds, limit)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []catalog.Product{}, nil
	}

	found, err := r.catalog.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate suggestions: %w", err)
	}

	out := make([]catalog.Product, 0, len(ids))
	for _, id := range ids {
		p, ok := found[id]
		if !ok {
			r.logger.Debug().Str("product_id", id).Msg("suggested product not in catalog")
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// distinct drops empty and repeated ids, keeping first-seen order.
func distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
