package watchlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"tradesim/internal/kvstore"
	"tradesim/internal/market"
)

const resource = "watchlist"

var (
	ErrUnknownSymbol = errors.New("watchlist: unknown symbol")
	ErrDuplicate     = errors.New("watchlist: symbol already watched")
	ErrNotWatched    = errors.New("watchlist: symbol not on list")
)

// Item is a watched symbol. Quote fields are refreshed from the oracle on
// every read, not stored state.
type Item struct {
	ID            string          `json:"id"`
	Symbol        string          `json:"symbol"`
	CompanyName   string          `json:"company_name"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	CreatedAt     time.Time       `json:"created_at"`
}

type Service struct {
	store  kvstore.Store
	oracle market.Oracle
	log    *logrus.Logger
}

func NewService(store kvstore.Store, oracle market.Oracle, log *logrus.Logger) *Service {
	return &Service{store: store, oracle: oracle, log: log}
}

func (s *Service) List(ctx context.Context, userID string) ([]Item, error) {
	items, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range items {
		quote, ok := s.oracle.GetPrice(items[i].Symbol)
		if !ok {
			s.log.Warnf("no quote for watched symbol %s", items[i].Symbol)
			continue
		}
		items[i].CurrentPrice = quote.CurrentPrice
		items[i].Change = quote.Change
		items[i].ChangePercent = quote.ChangePercent
	}
	return items, nil
}

func (s *Service) Add(ctx context.Context, userID, symbol string) (Item, error) {
	quote, ok := s.oracle.GetPrice(symbol)
	if !ok {
		return Item{}, ErrUnknownSymbol
	}
	items, err := s.load(ctx, userID)
	if err != nil {
		return Item{}, err
	}
	for _, it := range items {
		if it.Symbol == quote.Symbol {
			return Item{}, ErrDuplicate
		}
	}
	item := Item{
		ID:            uuid.NewString(),
		Symbol:        quote.Symbol,
		CompanyName:   quote.CompanyName,
		CurrentPrice:  quote.CurrentPrice,
		Change:        quote.Change,
		ChangePercent: quote.ChangePercent,
		CreatedAt:     time.Now().UTC(),
	}
	items = append(items, item)
	if err := s.save(ctx, userID, items); err != nil {
		return Item{}, err
	}
	return item, nil
}

func (s *Service) Remove(ctx context.Context, userID, symbol string) error {
	items, err := s.load(ctx, userID)
	if err != nil {
		return err
	}
	sym := strings.ToUpper(symbol)
	filtered := items[:0]
	for _, it := range items {
		if it.Symbol != sym {
			filtered = append(filtered, it)
		}
	}
	if len(filtered) == len(items) {
		return ErrNotWatched
	}
	return s.save(ctx, userID, filtered)
}

func (s *Service) load(ctx context.Context, userID string) ([]Item, error) {
	data, err := s.store.Get(ctx, userID, resource)
	if errors.Is(err, kvstore.ErrNotFound) {
		return []Item{}, nil
	}
	if err != nil {
		return nil, err
	}
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode watchlist for %s: %w", userID, err)
	}
	return items, nil
}

func (s *Service) save(ctx context.Context, userID string, items []Item) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return s.store.Put(ctx, userID, resource, data)
}
