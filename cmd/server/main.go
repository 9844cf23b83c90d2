package main

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"tradesim/internal/config"
	"tradesim/internal/handlers"
	"tradesim/internal/kvstore"
	"tradesim/internal/ledger"
	"tradesim/internal/market"
	"tradesim/internal/subscription"
	"tradesim/internal/watchlist"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	// Load .env file if it exists, but don't fail if it's missing (e.g. in production)
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatalf("open store: %v", err)
	}

	catalog := market.NewCatalog()
	subs := subscription.NewService(store, logger, cfg.Subscription.TrialDays)
	watch := watchlist.NewService(store, catalog, logger)

	paper := ledger.New(ledger.Config{
		Name:        "paper",
		InitialCash: decimal.NewFromFloat(cfg.Paper.InitialCash),
		Fees:        ledger.ZeroFees,
	}, store, catalog, logger)

	real := ledger.New(ledger.Config{
		Name:          "real",
		InitialCash:   decimal.Zero,
		Fees:          ledger.Commission(decimal.NewFromFloat(cfg.RealMoney.FeeFlat), decimal.NewFromFloat(cfg.RealMoney.FeeRate)),
		Eligibility:   subs.IsTradingAllowed,
		AllowDeposits: true,
	}, store, catalog, logger)

	h := handlers.NewHandler(paper, real, catalog, subs, watch, logger)

	r := gin.Default()
	h.Register(r)

	logger.Infof("server starting on :%s (storage: %s)", cfg.Server.Port, cfg.Storage.Backend)
	if err := r.Run(fmt.Sprintf(":%s", cfg.Server.Port)); err != nil {
		logger.Fatalf("server stopped: %v", err)
	}
}

func openStore(cfg *config.Config, logger *logrus.Logger) (kvstore.Store, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return kvstore.NewMemoryStore(), nil
	case "postgres":
		if cfg.Storage.PostgresURL == "" {
			return nil, fmt.Errorf("postgres backend requires POSTGRES_URL")
		}
		db, err := kvstore.OpenPostgres(cfg.Storage.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		return kvstore.NewPostgresStore(db, logger), nil
	case "redis":
		if cfg.Storage.RedisAddr == "" {
			return nil, fmt.Errorf("redis backend requires REDIS_ADDR")
		}
		client := redis.NewClient(&redis.Options{Addr: cfg.Storage.RedisAddr})
		return kvstore.NewRedisStore(client), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
