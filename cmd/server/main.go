package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rl1809/shopping-cart/internal/adapter/handler"
	"github.com/rl1809/shopping-cart/internal/adapter/shop"
	"github.com/rl1809/shopping-cart/internal/core/service"
	"github.com/rl1809/shopping-cart/internal/port"
	"github.com/rl1809/shopping-cart/pkg/config"
	"github.com/rl1809/shopping-cart/pkg/logger"
	"github.com/rl1809/shopping-cart/pkg/shutdown"
)

const healthInterval = time.Second

type shopBackend interface {
	port.ShopService
	port.CatalogSeeder
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Options{Service: "shopping-cart", Env: cfg.AppEnv, Level: cfg.LogLevel})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	backend, closeBackend, err := openBackend(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open shop backend", zap.String("backend", cfg.ShopBackend), zap.Error(err))
	}
	defer closeBackend()

	if err := backend.Seed(ctx, shop.DemoProducts()); err != nil {
		log.Fatal("failed to seed catalog", zap.Error(err))
	}
	log.Info("seeded demo catalog", zap.String("backend", cfg.ShopBackend))

	store := service.NewStore(backend, log.Named("store"),
		service.WithFetchTimeout(cfg.FetchTimeout),
		service.WithPurchaseTimeout(cfg.PurchaseTimeout),
	)
	loaded := store.LoadProducts(ctx)

	reporter := handler.NewHealthReporter(store)
	grpcServer := grpc.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, reporter.Server())

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: handler.NewHTTPHandler(store, log.Named("http")).Routes(),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := <-loaded; err != nil {
			log.Warn("initial catalog load failed, retry via /api/products/reload", zap.Error(err))
		}
		reporter.Refresh()
		reporter.Watch(gctx, healthInterval)
		return nil
	})

	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.GRPCPort)
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		log.Info("gRPC server listening", zap.String("addr", addr))
		return grpcServer.Serve(lis)
	})

	g.Go(func() error {
		log.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("HTTP shutdown", zap.Error(err))
		}
		log.Info("HTTP server stopped")

		grpcServer.GracefulStop()
		log.Info("gRPC server stopped")
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", zap.Error(err))
	}
	log.Info("bye")
}

func openBackend(ctx context.Context, cfg config.Config, log *zap.Logger) (shopBackend, func(), error) {
	switch cfg.ShopBackend {
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			PoolSize: 20,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		log.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
		return shop.NewRedisShop(rdb), func() { rdb.Close() }, nil

	case config.BackendMySQL:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open mysql: %w", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ping mysql: %w", err)
		}
		mysqlShop := shop.NewMySQLShop(db)
		if err := mysqlShop.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Info("connected to mysql")
		return mysqlShop, func() { db.Close() }, nil

	default:
		log.Info("using simulated shop",
			zap.Duration("latency", cfg.ShopLatency),
			zap.Float64("failure_rate", cfg.ShopFailureRate),
		)
		return shop.NewMockShop(nil, cfg.ShopLatency, cfg.ShopFailureRate, nil), func() {}, nil
	}
}
