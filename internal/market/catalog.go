package market

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Quote is a snapshot of a listed stock's market data.
type Quote struct {
	Symbol        string          `json:"symbol"`
	CompanyName   string          `json:"company_name"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Volume        int64           `json:"volume"`
	MarketCap     int64           `json:"market_cap"`
}

// Oracle resolves the current market quote for a symbol. Read-only and
// deterministic for a given catalog snapshot.
type Oracle interface {
	GetPrice(symbol string) (Quote, bool)
}

var _ Oracle = (*Catalog)(nil)

// Catalog is a fixed in-memory universe of tradable stocks.
type Catalog struct {
	quotes map[string]Quote
}

func NewCatalog() *Catalog {
	c := &Catalog{quotes: make(map[string]Quote, len(defaultQuotes))}
	for _, q := range defaultQuotes {
		c.quotes[q.Symbol] = q
	}
	return c
}

func (c *Catalog) GetPrice(symbol string) (Quote, bool) {
	q, ok := c.quotes[strings.ToUpper(symbol)]
	return q, ok
}

// All returns every listed quote, sorted by symbol.
func (c *Catalog) All() []Quote {
	out := make([]Quote, 0, len(c.quotes))
	for _, q := range c.quotes {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Search matches symbols and company names by case-insensitive substring.
func (c *Catalog) Search(query string) []Quote {
	term := strings.ToLower(strings.TrimSpace(query))
	if term == "" {
		return nil
	}
	var out []Quote
	for _, q := range c.All() {
		if strings.Contains(strings.ToLower(q.Symbol), term) ||
			strings.Contains(strings.ToLower(q.CompanyName), term) {
			out = append(out, q)
		}
	}
	return out
}

func dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

var defaultQuotes = []Quote{
	{Symbol: "AAPL", CompanyName: "Apple Inc.", CurrentPrice: dec(175.00), Change: dec(2.50), ChangePercent: dec(1.45), Volume: 45000000, MarketCap: 2800000000000},
	{Symbol: "GOOGL", CompanyName: "Alphabet Inc.", CurrentPrice: dec(275.00), Change: dec(-1.25), ChangePercent: dec(-0.45), Volume: 25000000, MarketCap: 1700000000000},
	{Symbol: "MSFT", CompanyName: "Microsoft Corp.", CurrentPrice: dec(415.00), Change: dec(5.75), ChangePercent: dec(1.41), Volume: 30000000, MarketCap: 3100000000000},
	{Symbol: "TSLA", CompanyName: "Tesla Inc.", CurrentPrice: dec(255.00), Change: dec(-8.50), ChangePercent: dec(-3.23), Volume: 55000000, MarketCap: 800000000000},
	{Symbol: "AMZN", CompanyName: "Amazon.com Inc.", CurrentPrice: dec(145.00), Change: dec(1.80), ChangePercent: dec(1.26), Volume: 35000000, MarketCap: 1500000000000},
	{Symbol: "NVDA", CompanyName: "NVIDIA Corp.", CurrentPrice: dec(875.00), Change: dec(15.25), ChangePercent: dec(1.77), Volume: 40000000, MarketCap: 2200000000000},
	{Symbol: "META", CompanyName: "Meta Platforms Inc.", CurrentPrice: dec(485.00), Change: dec(8.20), ChangePercent: dec(1.72), Volume: 28000000, MarketCap: 1200000000000},
	{Symbol: "NFLX", CompanyName: "Netflix Inc.", CurrentPrice: dec(425.00), Change: dec(-3.50), ChangePercent: dec(-0.82), Volume: 15000000, MarketCap: 180000000000},
}
