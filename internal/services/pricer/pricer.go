// Package pricer provides the current market price of a trading pair.
package pricer

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/BrenoFariasdaSilva/MercadoBitcoin-TradingEngine/internal/domain"
)

type tickerGetter interface {
	GetTicker(ctx context.Context, symbol string) (*domain.Ticker, error)
}

// MercadoBitcoinPricer reads the last traded price from the public ticker.
type MercadoBitcoinPricer struct {
	client tickerGetter
}

func NewMercadoBitcoinPricer(client tickerGetter) *MercadoBitcoinPricer {
	return &MercadoBitcoinPricer{client: client}
}

func (p *MercadoBitcoinPricer) GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	ticker, err := p.client.GetTicker(ctx, pair.Symbol())
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(err, "ticker request failed for %s", pair.String())
	}

	if ticker.Last == "" {
		return decimal.Decimal{}, errors.Errorf("exchange returned empty last price for %s", pair.String())
	}

	price, err := decimal.NewFromString(ticker.Last)
	if err != nil {
		return decimal.Decimal{}, errors.Wrapf(err, "unparseable last price %q for %s", ticker.Last, pair.String())
	}
	return price, nil
}
