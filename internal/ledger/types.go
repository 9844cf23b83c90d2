package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Holding is one open position: shares held and their weighted average cost.
// AveragePrice only changes on buys; partial sells leave it untouched.
type Holding struct {
	Symbol       string          `json:"symbol"`
	CompanyName  string          `json:"company_name"`
	Shares       int64           `json:"shares"`
	AveragePrice decimal.Decimal `json:"average_price"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// CostBasis is the total amount paid for the position at average cost.
func (h Holding) CostBasis() decimal.Decimal {
	return decimal.NewFromInt(h.Shares).Mul(h.AveragePrice)
}

// HoldingView decorates a Holding with display fields derived from the live
// price at read time. None of these are persisted.
type HoldingView struct {
	Holding
	CurrentPrice    decimal.Decimal `json:"current_price"`
	CurrentValue    decimal.Decimal `json:"current_value"`
	GainLoss        decimal.Decimal `json:"gain_loss"`
	GainLossPercent decimal.Decimal `json:"gain_loss_percent"`
}

// Transaction is one executed trade. Records are immutable once written and
// the log is kept newest-first.
type Transaction struct {
	ID          string          `json:"id"`
	Symbol      string          `json:"symbol"`
	CompanyName string          `json:"company_name"`
	Side        Side            `json:"side"`
	Shares      int64           `json:"shares"`
	Price       decimal.Decimal `json:"price"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Fees        decimal.Decimal `json:"fees"`
	CreatedAt   time.Time       `json:"created_at"`
}

// account is the persisted cash record. InitialCash and TotalDeposits feed
// the gain/loss baseline; everything else about an account is derived.
type account struct {
	CashBalance   decimal.Decimal `json:"cash_balance"`
	InitialCash   decimal.Decimal `json:"initial_cash"`
	TotalDeposits decimal.Decimal `json:"total_deposits"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (a account) baseline() decimal.Decimal {
	return a.InitialCash.Add(a.TotalDeposits)
}

// Snapshot is the derived portfolio summary returned to callers.
type Snapshot struct {
	CashBalance          decimal.Decimal `json:"cash_balance"`
	TotalValue           decimal.Decimal `json:"total_value"`
	TotalGainLoss        decimal.Decimal `json:"total_gain_loss"`
	TotalGainLossPercent decimal.Decimal `json:"total_gain_loss_percent"`
}

// FailureReason classifies an expected business failure. These are outcomes,
// not errors; infrastructure faults travel separately as error values.
type FailureReason string

const (
	ReasonSymbolNotFound     FailureReason = "symbol_not_found"
	ReasonInsufficientFunds  FailureReason = "insufficient_funds"
	ReasonInsufficientShares FailureReason = "insufficient_shares"
	ReasonNotEligible        FailureReason = "not_eligible"
	ReasonInvalidQuantity    FailureReason = "invalid_quantity"
	ReasonInvalidAmount      FailureReason = "invalid_amount"
	ReasonDepositsDisabled   FailureReason = "deposits_disabled"
)

// TradeResult is the outcome of ExecuteTrade. On success Transaction is set;
// on failure Reason and Message describe why, and no state was touched.
type TradeResult struct {
	OK          bool          `json:"ok"`
	Reason      FailureReason `json:"reason,omitempty"`
	Message     string        `json:"message"`
	Transaction *Transaction  `json:"transaction,omitempty"`
}

func failure(reason FailureReason, msg string) TradeResult {
	return TradeResult{OK: false, Reason: reason, Message: msg}
}

// DepositResult is the outcome of AddFunds.
type DepositResult struct {
	OK       bool          `json:"ok"`
	Reason   FailureReason `json:"reason,omitempty"`
	Message  string        `json:"message"`
	Snapshot *Snapshot     `json:"snapshot,omitempty"`
}
