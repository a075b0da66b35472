package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/shopping-cart/internal/adapter/shop"
	"github.com/rl1809/shopping-cart/internal/core/domain"
	"github.com/rl1809/shopping-cart/internal/core/service"
)

const (
	totalRequests    = 500
	checkoutAttempts = 10
	failureRate      = 0.5
)

func main() {
	ctx := context.Background()

	log, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	backend := shop.NewMockShop(shop.DemoProducts(), 5*time.Millisecond, failureRate, nil)
	store := service.NewStore(backend, log.Named("store"))
	if err := <-store.LoadProducts(ctx); err != nil {
		log.Fatal("failed to load catalog", zap.Error(err))
	}

	initial := inventoryByID(store.Products())
	var totalStock int
	for _, n := range initial {
		totalStock += n
	}

	// Counters
	var successCount atomic.Int32
	var failCount atomic.Int32

	// Spawn concurrent adds spread over the catalog
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()

			if store.AddProductToCart(int64(n%3 + 1)) {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", totalStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Added:            %d\n", success)
	fmt.Printf("Rejected:         %d\n", fail)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Printf("Cart Total:       %s\n", store.CartTotal().StringFixed(2))
	fmt.Println("==========================================")

	failed := false
	check := func(ok bool, format string, args ...interface{}) {
		if ok {
			fmt.Printf("PASS: "+format+"\n", args...)
			return
		}
		failed = true
		fmt.Printf("FAIL: "+format+"\n", args...)
	}

	check(int(success) == totalStock, "added %d units for %d in stock", success, totalStock)

	current := inventoryByID(store.Products())
	inCart := make(map[int64]int)
	for _, line := range store.CartLines() {
		inCart[line.ProductID] = line.Quantity
	}
	for id, n := range initial {
		check(current[id] >= 0, "product %d inventory %d is not negative", id, current[id])
		check(current[id]+inCart[id] == n, "product %d: %d left + %d in cart == %d", id, current[id], inCart[id], n)
	}

	// Checkout until the simulated service accepts the purchase
	status := domain.CheckoutStatusNone
	for attempt := 1; attempt <= checkoutAttempts && status != domain.CheckoutStatusSuccess; attempt++ {
		status = <-store.Checkout(ctx)
		fmt.Printf("Checkout attempt %d: %s, %d lines held\n", attempt, status, len(store.CartLines()))
	}
	if status == domain.CheckoutStatusSuccess {
		check(len(store.CartLines()) == 0, "cart emptied after successful checkout")
	} else {
		fmt.Printf("SKIP: no checkout succeeded in %d attempts\n", checkoutAttempts)
	}

	if failed {
		os.Exit(1)
	}
}

func inventoryByID(products []domain.Product) map[int64]int {
	out := make(map[int64]int, len(products))
	for _, p := range products {
		out[p.ID] = p.Inventory
	}
	return out
}
