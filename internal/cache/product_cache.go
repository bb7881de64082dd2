package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smirnovdl/shop-backend/internal/models"
)

const productTTL = 5 * time.Minute

// ProductCache is a read-through cache in front of the product table.
// A nil *ProductCache is valid and caches nothing, so callers degrade
// gracefully when redis is not configured.
type ProductCache struct {
	rdb *redis.Client
}

// New connects to redis at addr; empty addr or a failed ping returns
// nil and disables caching.
func New(addr string) *ProductCache {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil
	}
	return &ProductCache{rdb: client}
}

func (c *ProductCache) GetProduct(ctx context.Context, id uint) (*models.Product, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.rdb.Get(ctx, productKey(id)).Bytes()
	if err != nil {
		return nil, false
	}
	var p models.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, false
	}
	return &p, true
}

func (c *ProductCache) SetProduct(ctx context.Context, p *models.Product) {
	if c == nil {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, productKey(p.ID), data, productTTL)
}

func (c *ProductCache) InvalidateProduct(ctx context.Context, id uint) {
	if c == nil {
		return
	}
	c.rdb.Del(ctx, productKey(id))
}

func (c *ProductCache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}

func productKey(id uint) string {
	return fmt.Sprintf("product:%d", id)
}
