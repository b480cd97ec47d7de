// Package cache реализует read-through кеш каталога поверх Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	generationKey = "storefront:products:gen"
	keyPrefix     = "storefront:products:"
	defaultTTL    = 5 * time.Minute
)

// ProductRepository оборачивает domain.ProductRepository кешем в Redis.
// Ключи кеша привязаны к поколению каталога: запись и удаление идут в основное
// хранилище, после чего поколение увеличивается. Значение, прочитанное до записи,
// попадает под старое поколение и больше не читается, а истекает по TTL.
// Если инвалидация не удалась, устаревшие данные живут не дольше TTL.
// Ошибки Redis не ломают запрос: чтение уходит в хранилище напрямую.
type ProductRepository struct {
	next   domain.ProductRepository
	client redis.Cmdable
	ttl    time.Duration
	logger *log.Entry
}

var _ domain.ProductRepository = (*ProductRepository)(nil)

// NewProductRepository создаёт кеширующий декоратор.
func NewProductRepository(next domain.ProductRepository, client redis.Cmdable, ttl time.Duration, logger *log.Entry) *ProductRepository {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &ProductRepository{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger.WithField("component", "product_cache"),
	}
}

func listKey(gen int64) string {
	return keyPrefix + strconv.FormatInt(gen, 10) + ":all"
}

func productKey(gen int64, id string) string {
	return keyPrefix + strconv.FormatInt(gen, 10) + ":product:" + id
}

func (c *ProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	gen, ok := c.generation(ctx)
	var cached []domain.Product
	if ok && c.load(ctx, listKey(gen), &cached) {
		return cached, nil
	}

	products, err := c.next.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		products[i].Normalize()
	}
	if ok {
		c.store(ctx, listKey(gen), products)
	}
	return products, nil
}

func (c *ProductRepository) Get(ctx context.Context, id string) (domain.Product, error) {
	gen, ok := c.generation(ctx)
	var cached domain.Product
	if ok && c.load(ctx, productKey(gen, id), &cached) {
		cached.Normalize()
		return cached, nil
	}

	product, err := c.next.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	product.Normalize()
	if ok {
		c.store(ctx, productKey(gen, id), product)
	}
	return product, nil
}

func (c *ProductRepository) Upsert(ctx context.Context, product domain.Product) error {
	if err := c.next.Upsert(ctx, product); err != nil {
		return err
	}
	c.invalidate(ctx, product.ID)
	return nil
}

func (c *ProductRepository) Delete(ctx context.Context, id string) error {
	if err := c.next.Delete(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

// Ping проверяет соединение с Redis.
func (c *ProductRepository) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// generation возвращает текущее поколение каталога; false означает, что Redis недоступен.
func (c *ProductRepository) generation(ctx context.Context) (int64, bool) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		c.logger.WithError(err).Warn("redis get generation failed, bypassing cache")
		return 0, false
	}
	return gen, true
}

func (c *ProductRepository) load(ctx context.Context, key string, dst any) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("redis get failed, falling back to store")
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("cached value is corrupted")
		return false
	}
	return true
}

func (c *ProductRepository) store(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("marshal cache value failed")
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("redis set failed")
	}
}

// invalidate выполняется и после отмены запроса: запись в хранилище уже состоялась.
func (c *ProductRepository) invalidate(ctx context.Context, id string) {
	if err := c.client.Incr(context.WithoutCancel(ctx), generationKey).Err(); err != nil {
		c.logger.WithError(err).WithField("product_id", id).
			Errorf("cache invalidation failed, stale entries expire in %s", c.ttl)
	}
}
