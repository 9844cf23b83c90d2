package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding store mutation rules. These two functions are the only place
// position state changes, and each returns a fully updated slice so the
// caller persists all-or-nothing.

func findHolding(holdings []Holding, symbol string) int {
	for i := range holdings {
		if holdings[i].Symbol == symbol {
			return i
		}
	}
	return -1
}

// applyBuy creates a position at the fill price or folds the new lot into an
// existing one by recomputing the quantity-weighted average cost:
//
//	avg' = (oldShares*oldAvg + shares*price) / (oldShares + shares)
func applyBuy(holdings []Holding, symbol, company string, shares int64, price decimal.Decimal, now time.Time) []Holding {
	i := findHolding(holdings, symbol)
	if i < 0 {
		return append(holdings, Holding{
			Symbol:       symbol,
			CompanyName:  company,
			Shares:       shares,
			AveragePrice: price,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	existing := holdings[i]
	totalShares := existing.Shares + shares
	totalCost := existing.CostBasis().Add(decimal.NewFromInt(shares).Mul(price))
	holdings[i].Shares = totalShares
	holdings[i].AveragePrice = totalCost.Div(decimal.NewFromInt(totalShares))
	holdings[i].UpdatedAt = now
	return holdings
}

// applySell reduces or removes a position. The average price of the remaining
// shares never changes on a sell (average-cost accounting, not FIFO).
// Returns ok=false when the position is absent or too small.
func applySell(holdings []Holding, symbol string, shares int64, now time.Time) ([]Holding, bool) {
	i := findHolding(holdings, symbol)
	if i < 0 || holdings[i].Shares < shares {
		return holdings, false
	}
	if holdings[i].Shares == shares {
		return append(holdings[:i], holdings[i+1:]...), true
	}
	holdings[i].Shares -= shares
	holdings[i].UpdatedAt = now
	return holdings, true
}
