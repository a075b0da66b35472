package shop

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rl1809/shopping-cart/internal/core/domain"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func newPurchase(lines ...domain.CartLine) domain.Purchase {
	return domain.Purchase{ID: uuid.NewString(), Lines: lines}
}

func TestRedisShop_SeedAndFetch(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	shop := NewRedisShop(client)

	if err := shop.Seed(ctx, DemoProducts()); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	products, err := shop.FetchProducts(ctx)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(products) != 3 {
		t.Fatalf("expected 3 products, got %d", len(products))
	}
	if products[1].Title != "Nike Sportswear" {
		t.Errorf("expected catalog order kept, got %q", products[1].Title)
	}
	if !products[1].Price.Equal(decimal.RequireFromString("699.99")) {
		t.Errorf("expected price 699.99, got %s", products[1].Price)
	}
	if products[0].Inventory != 2 {
		t.Errorf("expected inventory 2, got %d", products[0].Inventory)
	}
}

func TestRedisShop_SubmitPurchase(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	shop := NewRedisShop(client)
	shop.Seed(ctx, DemoProducts())

	err := shop.SubmitPurchase(ctx, newPurchase(
		domain.CartLine{ProductID: 1, Quantity: 2},
		domain.CartLine{ProductID: 3, Quantity: 1},
	))
	if err != nil {
		t.Fatalf("purchase failed: %v", err)
	}

	if stock, _ := shop.Stock(ctx, 1); stock != 0 {
		t.Errorf("expected stock 0, got %d", stock)
	}
	if stock, _ := shop.Stock(ctx, 3); stock != 4 {
		t.Errorf("expected stock 4, got %d", stock)
	}
}

func TestRedisShop_SubmitPurchase_AllOrNothing(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	shop := NewRedisShop(client)
	shop.Seed(ctx, DemoProducts())

	// product 1 only has 2 units; product 2 must not be touched
	err := shop.SubmitPurchase(ctx, newPurchase(
		domain.CartLine{ProductID: 2, Quantity: 1},
		domain.CartLine{ProductID: 1, Quantity: 3},
	))
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	if stock, _ := shop.Stock(ctx, 2); stock != 10 {
		t.Errorf("expected stock 10, got %d", stock)
	}
}

func TestRedisShop_SubmitPurchase_Duplicate(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	shop := NewRedisShop(client)
	shop.Seed(ctx, DemoProducts())

	purchase := newPurchase(domain.CartLine{ProductID: 3, Quantity: 1})
	if err := shop.SubmitPurchase(ctx, purchase); err != nil {
		t.Fatalf("first purchase failed: %v", err)
	}
	if err := shop.SubmitPurchase(ctx, purchase); !errors.Is(err, ErrDuplicatePurchase) {
		t.Errorf("expected ErrDuplicatePurchase, got %v", err)
	}

	if stock, _ := shop.Stock(ctx, 3); stock != 4 {
		t.Errorf("expected stock 4, got %d", stock)
	}
}

// failDel rejects every DEL so a declined purchase cannot release its key.
type failDel struct{}

func (failDel) DialHook(next redis.DialHook) redis.DialHook { return next }

func (failDel) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if cmd.Name() == "del" {
			err := errors.New("del refused")
			cmd.SetErr(err)
			return err
		}
		return next(ctx, cmd)
	}
}

func (failDel) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestRedisShop_SubmitPurchase_ReleaseFailureReported(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	shop := NewRedisShop(client)
	shop.Seed(ctx, DemoProducts())
	client.AddHook(failDel{})

	err := shop.SubmitPurchase(ctx, newPurchase(domain.CartLine{ProductID: 1, Quantity: 3}))
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if !strings.Contains(err.Error(), "del refused") {
		t.Errorf("expected the failed key release to be reported, got %v", err)
	}
}

func TestRedisShop_SubmitPurchase_Concurrent(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	shop := NewRedisShop(client)
	shop.Seed(ctx, DemoProducts())

	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := shop.SubmitPurchase(ctx, newPurchase(domain.CartLine{ProductID: 2, Quantity: 1}))
			if err == nil {
				successCount.Add(1)
			}
		}()
	}

	wg.Wait()

	if successCount.Load() != 10 {
		t.Errorf("expected 10 successes, got %d", successCount.Load())
	}
	if stock, _ := shop.Stock(ctx, 2); stock != 0 {
		t.Errorf("expected stock 0, got %d", stock)
	}
}
