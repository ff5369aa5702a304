package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const catalogKeyPrefix = "catalog:product:"

// CachedTier is the cached shape of a discount tier.
type CachedTier struct {
	ID       uuid.UUID       `json:"id"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// CachedProduct holds what the price quote needs: base prices and the
// current tier set.
type CachedProduct struct {
	ID             uuid.UUID        `json:"id"`
	Name           string           `json:"name"`
	Price          decimal.Decimal  `json:"price"`
	OneSetQuantity *int             `json:"one_set_quantity"`
	OneSetPrice    *decimal.Decimal `json:"one_set_price"`
	Tiers          []CachedTier     `json:"tiers"`
}

// CatalogCache is a read-through cache for price quotes. Writers invalidate
// after commit; a nil client turns every call into a miss.
type CatalogCache interface {
	Get(ctx context.Context, productID uuid.UUID) (*CachedProduct, bool)
	Set(ctx context.Context, p *CachedProduct)
	Invalidate(ctx context.Context, productID uuid.UUID)
}

type redisCatalogCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCatalogCache(rdb *redis.Client, ttl time.Duration) CatalogCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &redisCatalogCache{rdb: rdb, ttl: ttl}
}

func (c *redisCatalogCache) Get(ctx context.Context, productID uuid.UUID) (*CachedProduct, bool) {
	if c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, catalogKeyPrefix+productID.String()).Bytes()
	if err != nil {
		return nil, false
	}
	var p CachedProduct
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, false
	}
	return &p, true
}

// Set is best effort: a failed write only costs a later miss.
func (c *redisCatalogCache) Set(ctx context.Context, p *CachedProduct) {
	if c.rdb == nil || p == nil {
		return
	}
	b, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, catalogKeyPrefix+p.ID.String(), b, c.ttl).Err(); err != nil {
		log.Debug().Err(err).Str("product_id", p.ID.String()).Msg("catalog cache: set failed")
	}
}

func (c *redisCatalogCache) Invalidate(ctx context.Context, productID uuid.UUID) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, catalogKeyPrefix+productID.String()).Err(); err != nil {
		log.Warn().Err(err).Str("product_id", productID.String()).Msg("catalog cache: invalidate failed")
	}
}
