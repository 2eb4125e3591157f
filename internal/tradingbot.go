package internal

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/BrenoFariasdaSilva/MercadoBitcoin-TradingEngine/config"
	"github.com/BrenoFariasdaSilva/MercadoBitcoin-TradingEngine/internal/domain"
	"github.com/BrenoFariasdaSilva/MercadoBitcoin-TradingEngine/internal/services/strategy"
	"github.com/BrenoFariasdaSilva/MercadoBitcoin-TradingEngine/internal/services/valuator"
)

// Pricer provides the current price of the trading pair.
type Pricer interface {
	GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error)
}

// Trader submits market orders through the exchange gateway.
type Trader interface {
	BuyByCost(ctx context.Context, cost decimal.Decimal) (*domain.PlacedOrder, error)
	SellByQty(ctx context.Context, qty decimal.Decimal) (*domain.PlacedOrder, error)
}

// AccountState reads live account state.
type AccountState interface {
	AvailableBalance(ctx context.Context, symbol string) decimal.Decimal
	AllOrders(ctx context.Context) ([]domain.Order, error)
}

// TradingBot drives the monitoring loop: each cycle it fetches the current
// price, derives the average purchase price, evaluates buy then sell rules
// and executes at most one triggered action.
//
// The mutex is held across evaluate, submit and mark-executed so a
// multi-threaded host cannot race two submissions past the dedupe check.
type TradingBot struct {
	pair     domain.Pair
	rules    domain.RuleSet
	interval time.Duration

	pricer   Pricer
	trader   Trader
	accounts AccountState
	engine   *strategy.Engine
	l        *zap.Logger

	mu       sync.Mutex
	avgPrice decimal.Decimal
	avgKnown bool
}

// NewTradingBot creates a trading bot instance.
func NewTradingBot(conf config.Config, pricer Pricer, trader Trader, accounts AccountState,
	engine *strategy.Engine, l *zap.Logger) *TradingBot {
	return &TradingBot{
		pair:     conf.Pair,
		rules:    conf.Rules,
		interval: conf.PollInterval,
		pricer:   pricer,
		trader:   trader,
		accounts: accounts,
		engine:   engine,
		l:        l.With(zap.String("pair", conf.Pair.String())),
	}
}

// Run executes the monitoring loop until the context is cancelled. A stop is
// observed between cycles; an in-flight request runs to completion first.
func (b *TradingBot) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	b.l.Info("starting trading loop", zap.Duration("poll_interval", b.interval))

	for {
		select {
		case <-ctx.Done():
			b.l.Info("stopping trading loop")
			return ctx.Err()
		case <-ticker.C:
			b.tick(ctx)
		}
	}
}

// tick runs one evaluation cycle. Nothing here is fatal: every failure logs
// and yields to the next cycle.
func (b *TradingBot) tick(ctx context.Context) {
	price, err := b.pricer.GetPrice(ctx, b.pair)
	if err != nil {
		b.l.Warn("failed to fetch current price", zap.Error(err))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	avg, ok := b.averagePriceLocked(ctx)
	if !ok {
		b.l.Debug("no purchase history yet, skipping evaluation",
			zap.String("price", price.String()))
		return
	}

	b.l.Debug("evaluating rules",
		zap.String("price", price.String()),
		zap.String("avg_price", avg.String()),
		zap.String("deviation", strategy.Deviation(price, avg).String()))

	if action := b.engine.EvaluateBuy(price, avg); action != nil {
		b.executeBuy(ctx, action)
		return
	}
	if action := b.engine.EvaluateSell(price, avg); action != nil {
		b.executeSell(ctx, action)
	}
}

// executeBuy sizes a market buy against the available fiat balance and
// submits it. On success the rule key is marked executed and the average
// price is refreshed immediately, since the position just changed. On any
// failure no state is touched, so the rule may retry next cycle.
// Caller holds b.mu.
func (b *TradingBot) executeBuy(ctx context.Context, action *domain.RuleAction) bool {
	available := b.accounts.AvailableBalance(ctx, b.pair.Fiat)
	if !available.IsPositive() {
		b.l.Warn("insufficient fiat balance for buy",
			zap.String("symbol", b.pair.Fiat),
			zap.String("available", available.String()))
		return false
	}

	cost := available.Mul(action.Fraction)
	if cost.LessThan(b.rules.MinOrderNotional) {
		b.l.Warn("buy cost below minimum order notional",
			zap.String("cost", cost.String()),
			zap.String("minimum", b.rules.MinOrderNotional.String()))
		return false
	}

	b.l.Info("executing buy",
		zap.String("cost", cost.String()),
		zap.String("fraction", action.Fraction.String()),
		zap.String("reason", action.Reason))

	placed, err := b.trader.BuyByCost(ctx, cost)
	if err != nil {
		b.l.Error("buy order failed", zap.Error(err))
		return false
	}

	b.l.Info("buy order placed",
		zap.String("order_id", placed.OrderID),
		zap.String("rule_key", action.Key))

	b.engine.MarkExecuted(action.Key)
	b.refreshAveragePriceLocked(ctx)
	return true
}

// executeSell sizes a market sell against the available crypto balance and
// submits it. The cached average price is left alone: it is derived from buy
// executions only, so a sell cannot change it.
// Caller holds b.mu.
func (b *TradingBot) executeSell(ctx context.Context, action *domain.RuleAction) bool {
	available := b.accounts.AvailableBalance(ctx, b.pair.Crypto)
	if !available.IsPositive() {
		b.l.Warn("insufficient crypto balance for sell",
			zap.String("symbol", b.pair.Crypto),
			zap.String("available", available.String()))
		return false
	}

	qty := available.Mul(action.Fraction)
	if qty.LessThan(b.rules.MinOrderQty) {
		b.l.Warn("sell quantity below minimum",
			zap.String("qty", qty.String()),
			zap.String("minimum", b.rules.MinOrderQty.String()))
		return false
	}

	b.l.Info("executing sell",
		zap.String("qty", qty.String()),
		zap.String("fraction", action.Fraction.String()),
		zap.String("reason", action.Reason))

	placed, err := b.trader.SellByQty(ctx, qty)
	if err != nil {
		b.l.Error("sell order failed", zap.Error(err))
		return false
	}

	b.l.Info("sell order placed",
		zap.String("order_id", placed.OrderID),
		zap.String("rule_key", action.Key))

	b.engine.MarkExecuted(action.Key)
	return true
}

// AveragePrice returns the cached average purchase price, computing it on
// first use. The boolean is false while no buy history exists.
func (b *TradingBot) AveragePrice(ctx context.Context) (decimal.Decimal, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.averagePriceLocked(ctx)
}

func (b *TradingBot) averagePriceLocked(ctx context.Context) (decimal.Decimal, bool) {
	if !b.avgKnown {
		b.refreshAveragePriceLocked(ctx)
	}
	return b.avgPrice, b.avgKnown
}

// refreshAveragePriceLocked recomputes the average purchase price from the
// full order history. On failure the previously cached value is kept.
func (b *TradingBot) refreshAveragePriceLocked(ctx context.Context) bool {
	orders, err := b.accounts.AllOrders(ctx)
	if err != nil {
		b.l.Warn("failed to fetch order history for average price", zap.Error(err))
		return false
	}

	avg, err := valuator.AveragePrice(orders, b.pair.Symbol())
	if err != nil {
		if errors.Is(err, valuator.ErrNoExecutions) {
			b.l.Debug("no buy executions found for average price")
		} else {
			b.l.Warn("failed to compute average price", zap.Error(err))
		}
		return false
	}

	b.avgPrice = avg
	b.avgKnown = true
	b.l.Debug("average price refreshed", zap.String("avg_price", avg.String()))
	return true
}
