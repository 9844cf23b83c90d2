package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"tradesim/internal/kvstore"
	"tradesim/internal/market"
)

// EligibilityCheck gates trading for one account variant. A nil check means
// trading is always allowed.
type EligibilityCheck func(ctx context.Context, userID string) (bool, error)

// Config parameterizes one ledger variant. The paper and real-money ledgers
// are the same type with different funding and fee rules.
type Config struct {
	// Name prefixes every storage resource, e.g. "paper" or "real".
	Name string
	// InitialCash funds a newly created account (100000 paper, 0 real).
	InitialCash decimal.Decimal
	Fees        FeeSchedule
	Eligibility EligibilityCheck
	// AllowDeposits enables AddFunds (real-money only).
	AllowDeposits bool
}

// Ledger owns one account variant's cash, holdings and transaction log.
// All trade execution for a user is serialized through a per-user mutex so
// concurrent orders cannot interleave their reads of cash or position state.
type Ledger struct {
	cfg    Config
	store  kvstore.Store
	oracle market.Oracle
	log    *logrus.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(cfg Config, store kvstore.Store, oracle market.Oracle, log *logrus.Logger) *Ledger {
	if cfg.Fees == nil {
		cfg.Fees = ZeroFees
	}
	return &Ledger{
		cfg:    cfg,
		store:  store,
		oracle: oracle,
		log:    log,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (l *Ledger) userLock(userID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	return m
}

func (l *Ledger) resource(kind string) string {
	return l.cfg.Name + ":" + kind
}

func (l *Ledger) loadAccount(ctx context.Context, userID string) (account, error) {
	data, err := l.store.Get(ctx, userID, l.resource("account"))
	if errors.Is(err, kvstore.ErrNotFound) {
		now := time.Now().UTC()
		return account{
			CashBalance: l.cfg.InitialCash,
			InitialCash: l.cfg.InitialCash,
			CreatedAt:   now,
			UpdatedAt:   now,
		}, nil
	}
	if err != nil {
		return account{}, err
	}
	var a account
	if err := json.Unmarshal(data, &a); err != nil {
		return account{}, fmt.Errorf("decode %s account for %s: %w", l.cfg.Name, userID, err)
	}
	return a, nil
}

func (l *Ledger) saveAccount(ctx context.Context, userID string, a account) error {
	a.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return l.store.Put(ctx, userID, l.resource("account"), data)
}

func (l *Ledger) loadHoldings(ctx context.Context, userID string) ([]Holding, error) {
	data, err := l.store.Get(ctx, userID, l.resource("holdings"))
	if errors.Is(err, kvstore.ErrNotFound) {
		return []Holding{}, nil
	}
	if err != nil {
		return nil, err
	}
	var hs []Holding
	if err := json.Unmarshal(data, &hs); err != nil {
		return nil, fmt.Errorf("decode %s holdings for %s: %w", l.cfg.Name, userID, err)
	}
	return hs, nil
}

func (l *Ledger) saveHoldings(ctx context.Context, userID string, hs []Holding) error {
	data, err := json.Marshal(hs)
	if err != nil {
		return err
	}
	return l.store.Put(ctx, userID, l.resource("holdings"), data)
}

func (l *Ledger) loadTransactions(ctx context.Context, userID string) ([]Transaction, error) {
	data, err := l.store.Get(ctx, userID, l.resource("transactions"))
	if errors.Is(err, kvstore.ErrNotFound) {
		return []Transaction{}, nil
	}
	if err != nil {
		return nil, err
	}
	var txs []Transaction
	if err := json.Unmarshal(data, &txs); err != nil {
		return nil, fmt.Errorf("decode %s transactions for %s: %w", l.cfg.Name, userID, err)
	}
	return txs, nil
}

func (l *Ledger) saveTransactions(ctx context.Context, userID string, txs []Transaction) error {
	data, err := json.Marshal(txs)
	if err != nil {
		return err
	}
	return l.store.Put(ctx, userID, l.resource("transactions"), data)
}

// ExecuteTrade fills a market order at the oracle's current price. Business
// failures (unknown symbol, insufficient funds or shares, ineligible account,
// bad quantity) come back inside the TradeResult with no state touched; only
// storage faults surface as errors.
func (l *Ledger) ExecuteTrade(ctx context.Context, userID, symbol string, shares int64, side Side) (TradeResult, error) {
	if side != SideBuy && side != SideSell {
		return TradeResult{}, fmt.Errorf("unknown trade side %q", side)
	}
	if shares <= 0 {
		return failure(ReasonInvalidQuantity, "share quantity must be a positive whole number"), nil
	}

	if l.cfg.Eligibility != nil {
		allowed, err := l.cfg.Eligibility(ctx, userID)
		if err != nil {
			return TradeResult{}, fmt.Errorf("eligibility check: %w", err)
		}
		if !allowed {
			return failure(ReasonNotEligible, "real money trading is not enabled for this account"), nil
		}
	}

	quote, ok := l.oracle.GetPrice(symbol)
	if !ok {
		return failure(ReasonSymbolNotFound, fmt.Sprintf("unknown symbol %s", symbol)), nil
	}

	lock := l.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	acct, err := l.loadAccount(ctx, userID)
	if err != nil {
		return TradeResult{}, err
	}
	holdings, err := l.loadHoldings(ctx, userID)
	if err != nil {
		return TradeResult{}, err
	}
	txs, err := l.loadTransactions(ctx, userID)
	if err != nil {
		return TradeResult{}, err
	}

	totalAmount := decimal.NewFromInt(shares).Mul(quote.CurrentPrice)
	fees := l.cfg.Fees(totalAmount)
	now := time.Now().UTC()

	var message string
	switch side {
	case SideBuy:
		required := totalAmount.Add(fees)
		if acct.CashBalance.LessThan(required) {
			return failure(ReasonInsufficientFunds,
				fmt.Sprintf("buying %d %s requires $%s but only $%s is available",
					shares, quote.Symbol, required.StringFixed(2), acct.CashBalance.StringFixed(2))), nil
		}
		acct.CashBalance = acct.CashBalance.Sub(required)
		holdings = applyBuy(holdings, quote.Symbol, quote.CompanyName, shares, quote.CurrentPrice, now)
		message = fmt.Sprintf("bought %d shares of %s for $%s", shares, quote.Symbol, totalAmount.StringFixed(2))
	case SideSell:
		updated, ok := applySell(holdings, quote.Symbol, shares, now)
		if !ok {
			return failure(ReasonInsufficientShares,
				fmt.Sprintf("not enough %s shares to sell %d", quote.Symbol, shares)), nil
		}
		holdings = updated
		acct.CashBalance = acct.CashBalance.Add(totalAmount.Sub(fees))
		message = fmt.Sprintf("sold %d shares of %s for $%s", shares, quote.Symbol, totalAmount.Sub(fees).StringFixed(2))
	}

	tx := Transaction{
		ID:          uuid.NewString(),
		Symbol:      quote.Symbol,
		CompanyName: quote.CompanyName,
		Side:        side,
		Shares:      shares,
		Price:       quote.CurrentPrice,
		TotalAmount: totalAmount,
		Fees:        fees,
		CreatedAt:   now,
	}
	txs = append([]Transaction{tx}, txs...)

	if err := l.saveHoldings(ctx, userID, holdings); err != nil {
		return TradeResult{}, err
	}
	if err := l.saveAccount(ctx, userID, acct); err != nil {
		return TradeResult{}, err
	}
	if err := l.saveTransactions(ctx, userID, txs); err != nil {
		return TradeResult{}, err
	}

	l.log.WithFields(logrus.Fields{
		"ledger": l.cfg.Name,
		"user":   userID,
		"symbol": quote.Symbol,
		"side":   side,
		"shares": shares,
	}).Info("trade executed")

	return TradeResult{OK: true, Message: message, Transaction: &tx}, nil
}

// AddFunds credits the cash balance directly, outside the trade flow.
// Only ledgers configured with AllowDeposits accept it.
func (l *Ledger) AddFunds(ctx context.Context, userID string, amount decimal.Decimal) (DepositResult, error) {
	if !l.cfg.AllowDeposits {
		return DepositResult{Reason: ReasonDepositsDisabled, Message: "this account does not accept deposits"}, nil
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return DepositResult{Reason: ReasonInvalidAmount, Message: "deposit amount must be positive"}, nil
	}

	lock := l.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	acct, err := l.loadAccount(ctx, userID)
	if err != nil {
		return DepositResult{}, err
	}
	acct.CashBalance = acct.CashBalance.Add(amount)
	acct.TotalDeposits = acct.TotalDeposits.Add(amount)
	if err := l.saveAccount(ctx, userID, acct); err != nil {
		return DepositResult{}, err
	}

	snap, err := l.snapshotLocked(ctx, userID, acct)
	if err != nil {
		return DepositResult{}, err
	}
	l.log.Infof("deposited $%s into %s account for %s", amount.StringFixed(2), l.cfg.Name, userID)
	return DepositResult{
		OK:       true,
		Message:  fmt.Sprintf("deposited $%s", amount.StringFixed(2)),
		Snapshot: &snap,
	}, nil
}

// Holdings returns the user's open positions decorated with live-price
// display fields. Symbols missing from the oracle are returned without them.
func (l *Ledger) Holdings(ctx context.Context, userID string) ([]HoldingView, error) {
	holdings, err := l.loadHoldings(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]HoldingView, 0, len(holdings))
	for _, h := range holdings {
		v := HoldingView{Holding: h}
		if quote, ok := l.oracle.GetPrice(h.Symbol); ok {
			v.CurrentPrice = quote.CurrentPrice
			v.CurrentValue = decimal.NewFromInt(h.Shares).Mul(quote.CurrentPrice)
			v.GainLoss = v.CurrentValue.Sub(h.CostBasis())
			if basis := h.CostBasis(); basis.IsPositive() {
				v.GainLossPercent = v.GainLoss.Div(basis).Mul(decimal.NewFromInt(100))
			}
		} else {
			l.log.Warnf("no quote for held symbol %s", h.Symbol)
		}
		views = append(views, v)
	}
	return views, nil
}

// Transactions returns the full trade history, newest first.
func (l *Ledger) Transactions(ctx context.Context, userID string) ([]Transaction, error) {
	return l.loadTransactions(ctx, userID)
}

// Snapshot derives the portfolio summary from current state: total value is
// cash plus holdings marked to the oracle's prices, gain/loss is measured
// against initial funding plus all deposits.
func (l *Ledger) Snapshot(ctx context.Context, userID string) (Snapshot, error) {
	lock := l.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	acct, err := l.loadAccount(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	return l.snapshotLocked(ctx, userID, acct)
}

func (l *Ledger) snapshotLocked(ctx context.Context, userID string, acct account) (Snapshot, error) {
	holdings, err := l.loadHoldings(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	total := acct.CashBalance
	for _, h := range holdings {
		quote, ok := l.oracle.GetPrice(h.Symbol)
		if !ok {
			l.log.Warnf("no quote for held symbol %s", h.Symbol)
			continue
		}
		total = total.Add(decimal.NewFromInt(h.Shares).Mul(quote.CurrentPrice))
	}
	snap := Snapshot{
		CashBalance: acct.CashBalance,
		TotalValue:  total,
	}
	baseline := acct.baseline()
	snap.TotalGainLoss = total.Sub(baseline)
	if baseline.IsPositive() {
		snap.TotalGainLossPercent = snap.TotalGainLoss.Div(baseline).Mul(decimal.NewFromInt(100))
	}
	return snap, nil
}
