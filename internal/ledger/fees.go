package ledger

import "github.com/shopspring/decimal"

// FeeSchedule maps a trade's notional amount to its transaction cost.
type FeeSchedule func(notional decimal.Decimal) decimal.Decimal

// ZeroFees is the paper-trading schedule: every trade is free.
func ZeroFees(decimal.Decimal) decimal.Decimal {
	return decimal.Zero
}

// Commission returns a flat-plus-proportional schedule,
// e.g. Commission(0.99, 0.001) charges $0.99 per trade plus 0.1% of notional.
func Commission(flat, rate decimal.Decimal) FeeSchedule {
	return func(notional decimal.Decimal) decimal.Decimal {
		return flat.Add(notional.Mul(rate))
	}
}
