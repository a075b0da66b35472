package shop

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rl1809/shopping-cart/internal/core/domain"
)

const (
	catalogKey        = "catalog:ids"
	productKeyPrefix  = "product:"
	stockKeyPrefix    = "stock:"
	purchaseKeyPrefix = "purchase:"
	idempotencyKeyTTL = 24 * time.Hour
)

// all-or-nothing: every line is checked before any stock is taken
var purchaseScript = redis.NewScript(`
for i, key in ipairs(KEYS) do
	local current = redis.call('GET', key)
	if not current then
		return 0
	end
	if tonumber(current) < tonumber(ARGV[i]) then
		return 0
	end
end

for i, key in ipairs(KEYS) do
	redis.call('DECRBY', key, ARGV[i])
end

return 1
`)

type RedisShop struct {
	client *redis.Client
}

func NewRedisShop(client *redis.Client) *RedisShop {
	return &RedisShop{client: client}
}

func (r *RedisShop) Seed(ctx context.Context, products []domain.Product) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, catalogKey)
		for _, p := range products {
			id := strconv.FormatInt(p.ID, 10)
			pipe.HSet(ctx, productKeyPrefix+id, "title", p.Title, "price", p.Price.String())
			pipe.Set(ctx, stockKeyPrefix+id, p.Inventory, 0)
			pipe.RPush(ctx, catalogKey, id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	return nil
}

func (r *RedisShop) FetchProducts(ctx context.Context) ([]domain.Product, error) {
	ids, err := r.client.LRange(ctx, catalogKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}

	pipe := r.client.Pipeline()
	details := make([]*redis.MapStringStringCmd, len(ids))
	stocks := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		details[i] = pipe.HGetAll(ctx, productKeyPrefix+id)
		stocks[i] = pipe.Get(ctx, stockKeyPrefix+id)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	products := make([]domain.Product, 0, len(ids))
	for i, id := range ids {
		p, err := decodeProduct(id, details[i].Val(), stocks[i])
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

func (r *RedisShop) SubmitPurchase(ctx context.Context, purchase domain.Purchase) error {
	ok, err := r.client.SetNX(ctx, purchaseKeyPrefix+purchase.ID, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return fmt.Errorf("idempotency check failed: %w", err)
	}
	if !ok {
		return ErrDuplicatePurchase
	}

	keys := make([]string, len(purchase.Lines))
	quantities := make([]interface{}, len(purchase.Lines))
	for i, line := range purchase.Lines {
		keys[i] = stockKeyPrefix + strconv.FormatInt(line.ProductID, 10)
		quantities[i] = line.Quantity
	}

	result, err := purchaseScript.Run(ctx, r.client, keys, quantities...).Int()
	if err != nil {
		return fmt.Errorf("stock decrement failed: %w", err)
	}
	if result != 1 {
		// declined purchases may be retried under the same id
		if err := r.client.Del(ctx, purchaseKeyPrefix+purchase.ID).Err(); err != nil {
			return errors.Join(ErrInsufficientStock, fmt.Errorf("release purchase key: %w", err))
		}
		return ErrInsufficientStock
	}
	return nil
}

func decodeProduct(id string, fields map[string]string, stock *redis.StringCmd) (domain.Product, error) {
	productID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return domain.Product{}, fmt.Errorf("product id %q: %w", id, err)
	}
	price, err := decimal.NewFromString(fields["price"])
	if err != nil {
		return domain.Product{}, fmt.Errorf("product %d price: %w", productID, err)
	}
	inventory, err := stock.Int()
	if err != nil {
		return domain.Product{}, fmt.Errorf("product %d stock: %w", productID, err)
	}

	return domain.Product{
		ID:        productID,
		Title:     fields["title"],
		Price:     price,
		Inventory: inventory,
	}, nil
}
