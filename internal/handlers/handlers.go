package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"tradesim/internal/ledger"
	"tradesim/internal/market"
	"tradesim/internal/subscription"
	"tradesim/internal/watchlist"
)

type Handler struct {
	paper   *ledger.Ledger
	real    *ledger.Ledger
	catalog *market.Catalog
	subs    *subscription.Service
	watch   *watchlist.Service
	log     *logrus.Logger
}

func NewHandler(paper, real *ledger.Ledger, catalog *market.Catalog, subs *subscription.Service, watch *watchlist.Service, log *logrus.Logger) *Handler {
	return &Handler{paper: paper, real: real, catalog: catalog, subs: subs, watch: watch, log: log}
}

// Register wires every route onto the engine.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	r.GET("/stocks", h.ListStocks)
	r.GET("/stocks/search", h.SearchStocks)
	r.GET("/stocks/:symbol", h.GetStock)

	r.POST("/paper/trades", h.trade(h.paper))
	r.GET("/paper/portfolio/:userId", h.portfolio(h.paper))
	r.GET("/paper/holdings/:userId", h.holdings(h.paper))
	r.GET("/paper/transactions/:userId", h.transactions(h.paper))

	r.POST("/real/trades", h.trade(h.real))
	r.POST("/real/funds", h.AddFunds)
	r.GET("/real/portfolio/:userId", h.portfolio(h.real))
	r.GET("/real/holdings/:userId", h.holdings(h.real))
	r.GET("/real/transactions/:userId", h.transactions(h.real))

	r.GET("/subscription/:userId", h.GetSubscription)
	r.POST("/subscription/:userId/trial", h.StartTrial)
	r.POST("/subscription/:userId/upgrade", h.Upgrade)

	r.GET("/watchlist/:userId", h.GetWatchlist)
	r.POST("/watchlist", h.AddToWatchlist)
	r.DELETE("/watchlist/:userId/:symbol", h.RemoveFromWatchlist)
}

type TradeRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Symbol string `json:"symbol" binding:"required"`
	Shares int64  `json:"shares"`
	Side   string `json:"side" binding:"required,oneof=buy sell"`
}

// statusFor maps business failure reasons onto HTTP statuses.
func statusFor(reason ledger.FailureReason) int {
	switch reason {
	case ledger.ReasonSymbolNotFound:
		return http.StatusNotFound
	case ledger.ReasonNotEligible, ledger.ReasonDepositsDisabled:
		return http.StatusForbidden
	case ledger.ReasonInsufficientFunds, ledger.ReasonInsufficientShares:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

func (h *Handler) trade(l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TradeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			h.log.Warnf("invalid trade body: %v", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		res, err := l.ExecuteTrade(c.Request.Context(), req.UserID, req.Symbol, req.Shares, ledger.Side(req.Side))
		if err != nil {
			h.log.Errorf("execute trade failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "trade failed"})
			return
		}
		if !res.OK {
			c.JSON(statusFor(res.Reason), gin.H{"error": string(res.Reason), "message": res.Message})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": res.Message, "transaction": res.Transaction})
	}
}

type AddFundsRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Amount string `json:"amount" binding:"required"`
}

func (h *Handler) AddFunds(c *gin.Context) {
	var req AddFundsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("invalid funds body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount format"})
		return
	}
	res, err := h.real.AddFunds(c.Request.Context(), req.UserID, amount)
	if err != nil {
		h.log.Errorf("add funds failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "deposit failed"})
		return
	}
	if !res.OK {
		c.JSON(statusFor(res.Reason), gin.H{"error": string(res.Reason), "message": res.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": res.Message, "portfolio": res.Snapshot})
}

func (h *Handler) portfolio(l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("userId")
		snap, err := l.Snapshot(c.Request.Context(), userID)
		if err != nil {
			h.log.Errorf("get snapshot failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
		holdings, err := l.Holdings(c.Request.Context(), userID)
		if err != nil {
			h.log.Errorf("get holdings failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"portfolio": snap, "holdings": holdings})
	}
}

func (h *Handler) holdings(l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		holdings, err := l.Holdings(c.Request.Context(), c.Param("userId"))
		if err != nil {
			h.log.Errorf("get holdings failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
		c.JSON(http.StatusOK, holdings)
	}
}

func (h *Handler) transactions(l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		txs, err := l.Transactions(c.Request.Context(), c.Param("userId"))
		if err != nil {
			h.log.Errorf("get transactions failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
			return
		}
		c.JSON(http.StatusOK, txs)
	}
}

func (h *Handler) ListStocks(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.All())
}

func (h *Handler) SearchStocks(c *gin.Context) {
	results := h.catalog.Search(c.Query("q"))
	if results == nil {
		results = []market.Quote{}
	}
	c.JSON(http.StatusOK, results)
}

func (h *Handler) GetStock(c *gin.Context) {
	quote, ok := h.catalog.GetPrice(c.Param("symbol"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "symbol not found"})
		return
	}
	c.JSON(http.StatusOK, quote)
}

func (h *Handler) GetSubscription(c *gin.Context) {
	userID := c.Param("userId")
	sub, err := h.subs.Get(c.Request.Context(), userID)
	if err != nil {
		h.log.Errorf("get subscription failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	days, err := h.subs.TrialDaysRemaining(c.Request.Context(), userID)
	if err != nil {
		h.log.Errorf("trial days failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscription": sub, "trial_days_remaining": days})
}

func (h *Handler) StartTrial(c *gin.Context) {
	sub, err := h.subs.StartTrial(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.log.Errorf("start trial failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h *Handler) Upgrade(c *gin.Context) {
	sub, err := h.subs.UpgradeToPremium(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.log.Errorf("upgrade failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h *Handler) GetWatchlist(c *gin.Context) {
	items, err := h.watch.List(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.log.Errorf("get watchlist failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, items)
}

type WatchRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Symbol string `json:"symbol" binding:"required"`
}

func (h *Handler) AddToWatchlist(c *gin.Context) {
	var req WatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	item, err := h.watch.Add(c.Request.Context(), req.UserID, req.Symbol)
	switch {
	case errors.Is(err, watchlist.ErrUnknownSymbol):
		c.JSON(http.StatusNotFound, gin.H{"error": "symbol not found"})
	case errors.Is(err, watchlist.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": "already watched"})
	case err != nil:
		h.log.Errorf("add to watchlist failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
	default:
		c.JSON(http.StatusCreated, item)
	}
}

func (h *Handler) RemoveFromWatchlist(c *gin.Context) {
	err := h.watch.Remove(c.Request.Context(), c.Param("userId"), c.Param("symbol"))
	switch {
	case errors.Is(err, watchlist.ErrNotWatched):
		c.JSON(http.StatusNotFound, gin.H{"error": "not on watchlist"})
	case err != nil:
		h.log.Errorf("remove from watchlist failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "removed"})
	}
}
