package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// BuyTier ties a price-deviation threshold to the fraction of the fiat
// balance to spend when it triggers.
type BuyTier struct {
	// Tier number used in dedupe keys; higher tiers are more aggressive.
	Tier int
	// Threshold deviation above average price, 0.25 means 25%.
	Threshold decimal.Decimal
	// Fraction of the available fiat balance to spend, 0.50 means 50%.
	Fraction decimal.Decimal
}

// RuleSet is the immutable trading rule configuration passed into the rule
// engine. Buy tiers are ordered by descending threshold so the most
// aggressive matching tier wins exclusively.
type RuleSet struct {
	BuyTiers []BuyTier

	// SellThreshold deviation above average price that triggers a sell.
	SellThreshold decimal.Decimal
	// SellFraction fraction of the crypto position to sell.
	SellFraction decimal.Decimal

	// MinOrderNotional smallest allowed buy cost, in fiat units.
	MinOrderNotional decimal.Decimal
	// MinOrderQty smallest allowed sell quantity, in crypto units.
	MinOrderQty decimal.Decimal
}

// DefaultRuleSet returns the stock rule table: buy 50% at +25%, 20% at +20%,
// 10% at +10%; sell 20% of the position at +100%.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		BuyTiers: []BuyTier{
			{Tier: 3, Threshold: decimal.NewFromFloat(0.25), Fraction: decimal.NewFromFloat(0.50)},
			{Tier: 2, Threshold: decimal.NewFromFloat(0.20), Fraction: decimal.NewFromFloat(0.20)},
			{Tier: 1, Threshold: decimal.NewFromFloat(0.10), Fraction: decimal.NewFromFloat(0.10)},
		},
		SellThreshold:    decimal.NewFromInt(1),
		SellFraction:     decimal.NewFromFloat(0.20),
		MinOrderNotional: decimal.NewFromInt(10),
		MinOrderQty:      decimal.NewFromFloat(0.00001),
	}
}

// Validate checks the rule set is usable by the engine.
func (r *RuleSet) Validate() error {
	if len(r.BuyTiers) == 0 {
		return fmt.Errorf("rule set has no buy tiers")
	}
	prev := decimal.Decimal{}
	for i, tier := range r.BuyTiers {
		if !tier.Threshold.IsPositive() {
			return fmt.Errorf("buy tier %d has non-positive threshold %s", tier.Tier, tier.Threshold)
		}
		if !tier.Fraction.IsPositive() || tier.Fraction.GreaterThan(decimal.NewFromInt(1)) {
			return fmt.Errorf("buy tier %d has invalid fraction %s", tier.Tier, tier.Fraction)
		}
		if i > 0 && tier.Threshold.GreaterThanOrEqual(prev) {
			return fmt.Errorf("buy tiers must be ordered by descending threshold, got %s after %s",
				tier.Threshold, prev)
		}
		prev = tier.Threshold
	}
	if !r.SellThreshold.IsPositive() {
		return fmt.Errorf("sell threshold must be positive, got %s", r.SellThreshold)
	}
	if !r.SellFraction.IsPositive() || r.SellFraction.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("invalid sell fraction %s", r.SellFraction)
	}
	return nil
}

// RuleAction is a triggered trading decision produced by the rule engine.
type RuleAction struct {
	Action Action
	// Tier that matched; 0 for sell actions.
	Tier int
	// Fraction of the relevant balance to trade.
	Fraction decimal.Decimal
	// Reason human-readable explanation for logs.
	Reason string
	// Key deduplication token; once marked executed the same key never
	// fires again for the process lifetime.
	Key string
}
