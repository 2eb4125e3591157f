// Package strategy implements the percentage-deviation rule engine.
package strategy

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/BrenoFariasdaSilva/MercadoBitcoin-TradingEngine/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Engine evaluates the current price against the average purchase price and
// returns at most one action per evaluation per direction. Rules that have
// already fired for the same truncated average price are suppressed for the
// process lifetime.
//
// Engine is not safe for concurrent use; the trading bot serializes access.
type Engine struct {
	rules    domain.RuleSet
	executed map[string]struct{}
	l        *zap.Logger
}

// NewEngine creates an Engine for the given rule set. The executed-key set is
// injectable for testing; pass nil to start empty.
func NewEngine(rules domain.RuleSet, executed map[string]struct{}, l *zap.Logger) (*Engine, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	if executed == nil {
		executed = make(map[string]struct{})
	}
	return &Engine{rules: rules, executed: executed, l: l}, nil
}

// Deviation returns (current - avg) / avg, or zero when avg is zero. The
// zero-average case is a degenerate no-signal state, not an error.
func Deviation(current, avg decimal.Decimal) decimal.Decimal {
	if avg.IsZero() {
		return decimal.Zero
	}
	return current.Sub(avg).Div(avg)
}

// EvaluateBuy returns the most aggressive buy tier whose threshold the
// deviation meets, or nil. A matching tier whose key already executed yields
// nil; lower tiers are not consulted.
func (e *Engine) EvaluateBuy(current, avg decimal.Decimal) *domain.RuleAction {
	deviation := Deviation(current, avg)

	for _, tier := range e.rules.BuyTiers {
		if deviation.LessThan(tier.Threshold) {
			continue
		}

		key := buyKey(tier.Tier, avg)
		if e.Executed(key) {
			e.l.Debug("buy rule already executed",
				zap.String("key", key),
				zap.String("deviation", deviation.String()))
			return nil
		}

		return &domain.RuleAction{
			Action:   domain.ActionBuy,
			Tier:     tier.Tier,
			Fraction: tier.Fraction,
			Reason:   reason(deviation, tier.Threshold),
			Key:      key,
		}
	}
	return nil
}

// EvaluateSell returns the sell action when the deviation meets the sell
// threshold and its key has not executed yet.
func (e *Engine) EvaluateSell(current, avg decimal.Decimal) *domain.RuleAction {
	deviation := Deviation(current, avg)

	if deviation.LessThan(e.rules.SellThreshold) {
		return nil
	}

	key := sellKey(avg)
	if e.Executed(key) {
		e.l.Debug("sell rule already executed",
			zap.String("key", key),
			zap.String("deviation", deviation.String()))
		return nil
	}

	return &domain.RuleAction{
		Action:   domain.ActionSell,
		Fraction: e.rules.SellFraction,
		Reason:   reason(deviation, e.rules.SellThreshold),
		Key:      key,
	}
}

// MarkExecuted records a key so its rule never fires again.
func (e *Engine) MarkExecuted(key string) {
	e.executed[key] = struct{}{}
}

// Executed reports whether a key has already fired.
func (e *Engine) Executed(key string) bool {
	_, ok := e.executed[key]
	return ok
}

// Rules returns the engine's rule set.
func (e *Engine) Rules() domain.RuleSet {
	return e.rules
}

// Keys bucket by the integer part of the average price: truncation toward
// zero, so minor price jitter does not re-trigger the same rule.

func buyKey(tier int, avg decimal.Decimal) string {
	return fmt.Sprintf("buy_%d_%d", tier, avg.IntPart())
}

func sellKey(avg decimal.Decimal) string {
	return fmt.Sprintf("sell_%d", avg.IntPart())
}

func reason(deviation, threshold decimal.Decimal) string {
	return fmt.Sprintf("price %s%% above average (threshold: %s%%)",
		deviation.Mul(hundred).StringFixed(2), threshold.Mul(hundred).StringFixed(0))
}
