package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"tradesim/internal/kvstore"
	"tradesim/internal/ledger"
	"tradesim/internal/market"
)

// Seeds a demo user's paper account with a few trades so the API has data to
// show. Uses Postgres when POSTGRES_URL is set, otherwise prints against an
// in-memory store (useful as a dry run).
func main() {
	godotenv.Load()
	logger := logrus.New()

	var store kvstore.Store
	if dsn := os.Getenv("POSTGRES_URL"); dsn != "" {
		db, err := kvstore.OpenPostgres(dsn)
		if err != nil {
			log.Fatalf("failed to connect to db: %v", err)
		}
		defer db.Close()
		store = kvstore.NewPostgresStore(db, logger)
	} else {
		fmt.Println("POSTGRES_URL not set, seeding an in-memory store (dry run)")
		store = kvstore.NewMemoryStore()
	}

	catalog := market.NewCatalog()
	paper := ledger.New(ledger.Config{
		Name:        "paper",
		InitialCash: decimal.NewFromInt(100000),
		Fees:        ledger.ZeroFees,
	}, store, catalog, logger)

	ctx := context.Background()
	userID := "demo-user"

	trades := []struct {
		symbol string
		shares int64
		side   ledger.Side
	}{
		{"AAPL", 50, ledger.SideBuy},
		{"NVDA", 10, ledger.SideBuy},
		{"MSFT", 20, ledger.SideBuy},
		{"AAPL", 15, ledger.SideSell},
	}

	for _, tr := range trades {
		res, err := paper.ExecuteTrade(ctx, userID, tr.symbol, tr.shares, tr.side)
		if err != nil {
			log.Fatalf("trade failed: %v", err)
		}
		if !res.OK {
			log.Fatalf("trade rejected: %s", res.Message)
		}
		fmt.Println(res.Message)
	}

	snap, err := paper.Snapshot(ctx, userID)
	if err != nil {
		log.Fatalf("snapshot failed: %v", err)
	}
	fmt.Printf("Seeded %s: cash $%s, total value $%s\n",
		userID, snap.CashBalance.StringFixed(2), snap.TotalValue.StringFixed(2))
}
