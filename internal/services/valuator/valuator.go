// Package valuator derives the average purchase price of a position from the
// raw order and execution history.
package valuator

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/BrenoFariasdaSilva/MercadoBitcoin-TradingEngine/internal/domain"
)

// ErrNoExecutions means no qualifying buy executions exist for the
// instrument. Callers must treat this as insufficient history, not a fault.
var ErrNoExecutions = errors.New("no buy executions for instrument")

// AveragePrice returns the quantity-weighted mean price over all buy-side
// executions of the given instrument. Sell orders and orders of other
// instruments never contribute. Executions with missing or non-numeric price
// or quantity are skipped.
func AveragePrice(orders []domain.Order, instrument string) (decimal.Decimal, error) {
	totalCost := decimal.Zero
	totalQty := decimal.Zero

	for _, order := range orders {
		if order.Instrument != instrument || order.Side != domain.SideBuy {
			continue
		}

		for _, execution := range order.Executions {
			price, err := decimal.NewFromString(execution.Price)
			if err != nil {
				continue
			}
			qty, err := decimal.NewFromString(execution.Qty)
			if err != nil {
				continue
			}

			totalCost = totalCost.Add(price.Mul(qty))
			totalQty = totalQty.Add(qty)
		}
	}

	if !totalQty.IsPositive() {
		return decimal.Decimal{}, ErrNoExecutions
	}
	return totalCost.Div(totalQty), nil
}
