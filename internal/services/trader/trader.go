// Package trader submits market orders through the exchange gateway.
package trader

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/BrenoFariasdaSilva/MercadoBitcoin-TradingEngine/internal/clients"
	"github.com/BrenoFariasdaSilva/MercadoBitcoin-TradingEngine/internal/domain"
)

type orderPlacer interface {
	PlaceOrder(ctx context.Context, accountID, symbol string, req clients.PlaceOrderRequest) (*domain.PlacedOrder, error)
}

type accountIDProvider interface {
	AccountID(ctx context.Context) (string, error)
}

// MercadoBitcoinTrader places market orders for a single trading pair.
type MercadoBitcoinTrader struct {
	client   orderPlacer
	accounts accountIDProvider
	pair     domain.Pair
}

func New(client orderPlacer, accounts accountIDProvider, pair domain.Pair) *MercadoBitcoinTrader {
	return &MercadoBitcoinTrader{client: client, accounts: accounts, pair: pair}
}

// BuyByCost submits a market buy sized by the fiat amount to spend.
func (t *MercadoBitcoinTrader) BuyByCost(ctx context.Context, cost decimal.Decimal) (*domain.PlacedOrder, error) {
	accountID, err := t.accounts.AccountID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "account id not available")
	}

	placed, err := t.client.PlaceOrder(ctx, accountID, t.pair.Symbol(), clients.PlaceOrderRequest{
		Side:       domain.SideBuy,
		Type:       domain.OrderTypeMarket,
		Cost:       cost.String(),
		ExternalID: uuid.New().String(),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to place market buy for %s", t.pair.String())
	}
	return placed, nil
}

// SellByQty submits a market sell sized by the crypto quantity to sell.
func (t *MercadoBitcoinTrader) SellByQty(ctx context.Context, qty decimal.Decimal) (*domain.PlacedOrder, error) {
	accountID, err := t.accounts.AccountID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "account id not available")
	}

	placed, err := t.client.PlaceOrder(ctx, accountID, t.pair.Symbol(), clients.PlaceOrderRequest{
		Side:       domain.SideSell,
		Type:       domain.OrderTypeMarket,
		Qty:        qty.String(),
		ExternalID: uuid.New().String(),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to place market sell for %s", t.pair.String())
	}
	return placed, nil
}
