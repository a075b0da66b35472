package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendMock  = "mock"
	BackendRedis = "redis"
	BackendMySQL = "mysql"
)

type Config struct {
	AppEnv   string
	LogLevel string

	HTTPPort int
	GRPCPort int

	ShopBackend     string
	RedisAddr       string
	MySQLDSN        string
	ShopLatency     time.Duration
	ShopFailureRate float64

	FetchTimeout    time.Duration
	PurchaseTimeout time.Duration
}

// Load reads an optional .env file, then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}

	var errs []error
	cfg := Config{
		AppEnv:   getEnv("APP_ENV", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		HTTPPort: getEnvInt("HTTP_PORT", 8080, &errs),
		GRPCPort: getEnvInt("GRPC_PORT", 50051, &errs),

		ShopBackend:     getEnv("SHOP_BACKEND", BackendMock),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		MySQLDSN:        getEnv("MYSQL_DSN", "root:root@tcp(localhost:3306)/shop?parseTime=true"),
		ShopLatency:     getEnvDuration("SHOP_LATENCY", 100*time.Millisecond, &errs),
		ShopFailureRate: getEnvFloat("SHOP_FAILURE_RATE", 0.5, &errs),

		FetchTimeout:    getEnvDuration("FETCH_TIMEOUT", 5*time.Second, &errs),
		PurchaseTimeout: getEnvDuration("PURCHASE_TIMEOUT", 5*time.Second, &errs),
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}

	switch cfg.ShopBackend {
	case BackendMock, BackendRedis, BackendMySQL:
	default:
		return Config{}, errors.New("SHOP_BACKEND must be one of mock, redis, mysql")
	}
	if cfg.ShopFailureRate < 0 || cfg.ShopFailureRate > 1 {
		return Config{}, errors.New("SHOP_FAILURE_RATE must be within [0, 1]")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func getEnvFloat(key string, def float64, errs *[]error) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}

func getEnvDuration(key string, def time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}
