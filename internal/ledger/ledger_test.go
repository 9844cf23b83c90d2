package ledger

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"tradesim/internal/kvstore"
	"tradesim/internal/market"
)

// fakeOracle lets tests move prices between trades.
type fakeOracle struct {
	mu      sync.Mutex
	prices  map[string]decimal.Decimal
	lookups int
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{prices: map[string]decimal.Decimal{
		"AAPL": decimal.NewFromInt(160),
		"MSFT": decimal.NewFromInt(415),
	}}
}

func (o *fakeOracle) set(symbol string, price int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prices[symbol] = decimal.NewFromInt(price)
}

func (o *fakeOracle) GetPrice(symbol string) (market.Quote, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.lookups++
	p, ok := o.prices[symbol]
	if !ok {
		return market.Quote{}, false
	}
	return market.Quote{Symbol: symbol, CompanyName: symbol + " Inc.", CurrentPrice: p}, true
}

// countingStore records writes so tests can prove a failed trade touched
// nothing.
type countingStore struct {
	kvstore.Store
	mu   sync.Mutex
	puts int
}

func (s *countingStore) Put(ctx context.Context, userID, resource string, data []byte) error {
	s.mu.Lock()
	s.puts++
	s.mu.Unlock()
	return s.Store.Put(ctx, userID, resource, data)
}

type failingStore struct{}

var errStorageDown = errors.New("storage unavailable")

func (failingStore) Get(ctx context.Context, userID, resource string) ([]byte, error) {
	return nil, errStorageDown
}
func (failingStore) Put(ctx context.Context, userID, resource string, data []byte) error {
	return errStorageDown
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newPaperLedger(oracle market.Oracle, store kvstore.Store) *Ledger {
	return New(Config{
		Name:        "paper",
		InitialCash: decimal.NewFromInt(100000),
		Fees:        ZeroFees,
	}, store, oracle, quietLogger())
}

func TestExecuteTradeWorkedScenario(t *testing.T) {
	// 100000 cash: buy 50 AAPL @160, buy 50 @200, sell 40 @190.
	ctx := context.Background()
	oracle := newFakeOracle()
	l := newPaperLedger(oracle, kvstore.NewMemoryStore())
	user := "u1"

	res, err := l.ExecuteTrade(ctx, user, "AAPL", 50, SideBuy)
	require.NoError(t, err)
	require.True(t, res.OK, res.Message)
	snap, err := l.Snapshot(ctx, user)
	require.NoError(t, err)
	require.True(t, snap.CashBalance.Equal(decimal.NewFromInt(92000)),
		"want cash 92000, got %s", snap.CashBalance)

	oracle.set("AAPL", 200)
	res, err = l.ExecuteTrade(ctx, user, "AAPL", 50, SideBuy)
	require.NoError(t, err)
	require.True(t, res.OK)
	holdings, err := l.Holdings(ctx, user)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	require.Equal(t, int64(100), holdings[0].Shares)
	require.True(t, holdings[0].AveragePrice.Equal(decimal.NewFromInt(180)),
		"want avg 180, got %s", holdings[0].AveragePrice)
	snap, err = l.Snapshot(ctx, user)
	require.NoError(t, err)
	require.True(t, snap.CashBalance.Equal(decimal.NewFromInt(82000)))

	oracle.set("AAPL", 190)
	res, err = l.ExecuteTrade(ctx, user, "AAPL", 40, SideSell)
	require.NoError(t, err)
	require.True(t, res.OK)
	holdings, err = l.Holdings(ctx, user)
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	require.Equal(t, int64(60), holdings[0].Shares)
	require.True(t, holdings[0].AveragePrice.Equal(decimal.NewFromInt(180)),
		"sell must not move average cost")
	snap, err = l.Snapshot(ctx, user)
	require.NoError(t, err)
	require.True(t, snap.CashBalance.Equal(decimal.NewFromInt(89600)),
		"want cash 89600, got %s", snap.CashBalance)
}

func TestExecuteTradeCommissionFees(t *testing.T) {
	// 10 shares @100: notional 1000, fees 0.99 + 1.00 = 1.99.
	ctx := context.Background()
	oracle := newFakeOracle()
	oracle.set("AAPL", 100)
	l := New(Config{
		Name:        "real",
		InitialCash: decimal.NewFromInt(2000),
		Fees:        Commission(decimal.NewFromFloat(0.99), decimal.NewFromFloat(0.001)),
	}, kvstore.NewMemoryStore(), oracle, quietLogger())

	res, err := l.ExecuteTrade(ctx, "u1", "AAPL", 10, SideBuy)
	require.NoError(t, err)
	require.True(t, res.OK)
	require.True(t, res.Transaction.Fees.Equal(decimal.NewFromFloat(1.99)),
		"want fees 1.99, got %s", res.Transaction.Fees)

	snap, err := l.Snapshot(ctx, "u1")
	require.NoError(t, err)
	require.True(t, snap.CashBalance.Equal(decimal.NewFromFloat(998.01)),
		"want cash 998.01, got %s", snap.CashBalance)

	// Sell credits notional minus fees.
	res, err = l.ExecuteTrade(ctx, "u1", "AAPL", 10, SideSell)
	require.NoError(t, err)
	require.True(t, res.OK)
	snap, err = l.Snapshot(ctx, "u1")
	require.NoError(t, err)
	require.True(t, snap.CashBalance.Equal(decimal.NewFromFloat(1996.02)),
		"want cash 1996.02, got %s", snap.CashBalance)
}

func TestExecuteTradeInsufficientFundsLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	oracle := newFakeOracle()
	store := &countingStore{Store: kvstore.NewMemoryStore()}
	l := New(Config{
		Name:        "paper",
		InitialCash: decimal.NewFromInt(100),
		Fees:        ZeroFees,
	}, store, oracle, quietLogger())

	res, err := l.ExecuteTrade(ctx, "u1", "AAPL", 10, SideBuy) // needs 1600
	require.NoError(t, err)
	require.False(t, res.OK)
	require.Equal(t, ReasonInsufficientFunds, res.Reason)
	require.Nil(t, res.Transaction)
	require.Equal(t, 0, store.puts, "failed trade must not write anything")

	holdings, err := l.Holdings(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, holdings)
	txs, err := l.Transactions(ctx, "u1")
	require.NoError(t, err)
	require.Empty(t, txs)
	snap, err := l.Snapshot(ctx, "u1")
	require.NoError(t, err)
	require.True(t, snap.CashBalance.Equal(decimal.NewFromInt(100)))
}

func TestExecuteTradeInsufficientShares(t *testing.T) {
	ctx := context.Background()
	oracle := newFakeOracle()
	store := &countingStore{Store: kvstore.NewMemoryStore()}
	l := newPaperLedger(oracle, store)

	res, err := l.ExecuteTrade(ctx, "u1", "AAPL", 10, SideBuy)
	require.NoError(t, err)
	require.True(t, res.OK)
	putsAfterBuy := store.puts

	res, err = l.ExecuteTrade(ctx, "u1", "AAPL", 11, SideSell)
	require.NoError(t, err)
	require.False(t, res.OK)
	require.Equal(t, ReasonInsufficientShares, res.Reason)
	require.Equal(t, putsAfterBuy, store.puts)

	// Selling a symbol never held fails the same way.
	res, err = l.ExecuteTrade(ctx, "u1", "MSFT", 1, SideSell)
	require.NoError(t, err)
	require.Equal(t, ReasonInsufficientShares, res.Reason)
}

func TestExecuteTradeUnknownSymbol(t *testing.T) {
	ctx := context.Background()
	l := newPaperLedger(newFakeOracle(), kvstore.NewMemoryStore())
	res, err := l.ExecuteTrade(ctx, "u1", "ZZZZ", 1, SideBuy)
	require.NoError(t, err)
	require.False(t, res.OK)
	require.Equal(t, ReasonSymbolNotFound, res.Reason)
}

func TestExecuteTradeInvalidQuantity(t *testing.T) {
	ctx := context.Background()
	l := newPaperLedger(newFakeOracle(), kvstore.NewMemoryStore())
	for _, shares := range []int64{0, -5} {
		res, err := l.ExecuteTrade(ctx, "u1", "AAPL", shares, SideBuy)
		require.NoError(t, err)
		require.Equal(t, ReasonInvalidQuantity, res.Reason)
	}
}

func TestExecuteTradeUnknownSide(t *testing.T) {
	ctx := context.Background()
	l := newPaperLedger(newFakeOracle(), kvstore.NewMemoryStore())
	_, err := l.ExecuteTrade(ctx, "u1", "AAPL", 1, Side("short"))
	require.Error(t, err)
}

func TestExecuteTradeNotEligibleShortCircuits(t *testing.T) {
	ctx := context.Background()
	oracle := newFakeOracle()
	store := &countingStore{Store: kvstore.NewMemoryStore()}
	l := New(Config{
		Name:        "real",
		InitialCash: decimal.Zero,
		Fees:        Commission(decimal.NewFromFloat(0.99), decimal.NewFromFloat(0.001)),
		Eligibility: func(ctx context.Context, userID string) (bool, error) { return false, nil },
	}, store, oracle, quietLogger())

	res, err := l.ExecuteTrade(ctx, "u1", "AAPL", 1, SideBuy)
	require.NoError(t, err)
	require.False(t, res.OK)
	require.Equal(t, ReasonNotEligible, res.Reason)
	require.Equal(t, 0, store.puts)
	require.Equal(t, 0, oracle.lookups, "ineligible trade must not reach the oracle")
}

func TestExecuteTradeStorageFaultPropagates(t *testing.T) {
	ctx := context.Background()
	l := newPaperLedger(newFakeOracle(), failingStore{})
	_, err := l.ExecuteTrade(ctx, "u1", "AAPL", 1, SideBuy)
	require.ErrorIs(t, err, errStorageDown)
}

func TestTransactionLogAppendOnlyNewestFirst(t *testing.T) {
	ctx := context.Background()
	oracle := newFakeOracle()
	l := newPaperLedger(oracle, kvstore.NewMemoryStore())
	user := "u1"

	symbols := []string{"AAPL", "MSFT", "AAPL"}
	for i, sym := range symbols {
		res, err := l.ExecuteTrade(ctx, user, sym, 1, SideBuy)
		require.NoError(t, err)
		require.True(t, res.OK)
		txs, err := l.Transactions(ctx, user)
		require.NoError(t, err)
		require.Len(t, txs, i+1, "each trade appends exactly one entry")
		require.Equal(t, sym, txs[0].Symbol, "newest entry must be first")
	}

	txs, err := l.Transactions(ctx, user)
	require.NoError(t, err)
	first := txs[len(txs)-1]
	require.Equal(t, "AAPL", first.Symbol, "oldest entry stays in place")
	for i := 0; i < len(txs)-1; i++ {
		require.False(t, txs[i].CreatedAt.Before(txs[i+1].CreatedAt))
	}
}

func TestAddFunds(t *testing.T) {
	ctx := context.Background()
	oracle := newFakeOracle()
	l := New(Config{
		Name:          "real",
		InitialCash:   decimal.Zero,
		Fees:          ZeroFees,
		AllowDeposits: true,
	}, kvstore.NewMemoryStore(), oracle, quietLogger())

	res, err := l.AddFunds(ctx, "u1", decimal.NewFromInt(5000))
	require.NoError(t, err)
	require.True(t, res.OK)
	require.True(t, res.Snapshot.CashBalance.Equal(decimal.NewFromInt(5000)))

	// Deposits raise the gain/loss baseline, not the gain.
	require.True(t, res.Snapshot.TotalGainLoss.IsZero(),
		"deposit alone must not register as gain, got %s", res.Snapshot.TotalGainLoss)

	res, err = l.AddFunds(ctx, "u1", decimal.NewFromInt(-1))
	require.NoError(t, err)
	require.False(t, res.OK)
	require.Equal(t, ReasonInvalidAmount, res.Reason)

	res, err = l.AddFunds(ctx, "u1", decimal.Zero)
	require.NoError(t, err)
	require.Equal(t, ReasonInvalidAmount, res.Reason)
}

func TestAddFundsDisabledOnPaperLedger(t *testing.T) {
	ctx := context.Background()
	l := newPaperLedger(newFakeOracle(), kvstore.NewMemoryStore())
	res, err := l.AddFunds(ctx, "u1", decimal.NewFromInt(100))
	require.NoError(t, err)
	require.False(t, res.OK)
	require.Equal(t, ReasonDepositsDisabled, res.Reason)
}

func TestSnapshotGainLoss(t *testing.T) {
	ctx := context.Background()
	oracle := newFakeOracle()
	oracle.set("AAPL", 100)
	l := newPaperLedger(oracle, kvstore.NewMemoryStore())

	res, err := l.ExecuteTrade(ctx, "u1", "AAPL", 100, SideBuy)
	require.NoError(t, err)
	require.True(t, res.OK)

	// Price doubles: 10000 invested becomes 20000, total 110000 on a
	// 100000 baseline.
	oracle.set("AAPL", 200)
	snap, err := l.Snapshot(ctx, "u1")
	require.NoError(t, err)
	require.True(t, snap.TotalValue.Equal(decimal.NewFromInt(110000)), "got %s", snap.TotalValue)
	require.True(t, snap.TotalGainLoss.Equal(decimal.NewFromInt(10000)), "got %s", snap.TotalGainLoss)
	require.True(t, snap.TotalGainLossPercent.Equal(decimal.NewFromInt(10)), "got %s", snap.TotalGainLossPercent)
}

func TestHoldingsViewDerivesGainLoss(t *testing.T) {
	ctx := context.Background()
	oracle := newFakeOracle()
	oracle.set("AAPL", 100)
	l := newPaperLedger(oracle, kvstore.NewMemoryStore())

	_, err := l.ExecuteTrade(ctx, "u1", "AAPL", 10, SideBuy)
	require.NoError(t, err)

	oracle.set("AAPL", 150)
	views, err := l.Holdings(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.True(t, views[0].CurrentValue.Equal(decimal.NewFromInt(1500)))
	require.True(t, views[0].GainLoss.Equal(decimal.NewFromInt(500)))
	require.True(t, views[0].GainLossPercent.Equal(decimal.NewFromInt(50)))
	// Stored position is untouched by the read.
	require.True(t, views[0].AveragePrice.Equal(decimal.NewFromInt(100)))
}

func TestConcurrentBuysCannotOverdraw(t *testing.T) {
	ctx := context.Background()
	oracle := newFakeOracle()
	oracle.set("AAPL", 175)
	l := New(Config{
		Name:        "paper",
		InitialCash: decimal.NewFromInt(1000),
		Fees:        ZeroFees,
	}, kvstore.NewMemoryStore(), oracle, quietLogger())

	const workers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := l.ExecuteTrade(ctx, "u1", "AAPL", 1, SideBuy)
			if err != nil {
				errs[i] = err
				return
			}
			if res.OK {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	// 1000 / 175 = 5 full shares at most.
	require.Equal(t, 5, succeeded)
	snap, err := l.Snapshot(ctx, "u1")
	require.NoError(t, err)
	require.True(t, snap.CashBalance.Equal(decimal.NewFromInt(125)),
		"want cash 125, got %s", snap.CashBalance)
	require.False(t, snap.CashBalance.IsNegative())
	txs, err := l.Transactions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, txs, 5)
}
