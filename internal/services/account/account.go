// Package account manages exchange account state: account selection,
// balances and order history.
package account

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/BrenoFariasdaSilva/MercadoBitcoin-TradingEngine/internal/domain"
)

// ErrNoData means the gateway answered but had nothing usable.
var ErrNoData = errors.New("no data found")

type gateway interface {
	GetAccounts(ctx context.Context) ([]domain.Account, error)
	GetBalances(ctx context.Context, accountID string) ([]domain.Balance, error)
	GetAllOrders(ctx context.Context, accountID string) (*domain.OrderList, error)
	GetOrders(ctx context.Context, accountID, symbol string) ([]domain.Order, error)
}

// Service reads account state through the gateway. The first available
// account is selected and cached unless SetAccountID overrides it.
type Service struct {
	gw gateway
	l  *zap.Logger

	mu        sync.Mutex
	accountID string
}

func New(gw gateway, l *zap.Logger) *Service {
	return &Service{gw: gw, l: l}
}

// SetAccountID pins the account to use instead of the first available one.
func (s *Service) SetAccountID(id string) {
	s.mu.Lock()
	s.accountID = id
	s.mu.Unlock()
}

// AccountID returns the cached account id, selecting the first available
// account on first use.
func (s *Service) AccountID(ctx context.Context) (string, error) {
	s.mu.Lock()
	cached := s.accountID
	s.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	accounts, err := s.gw.GetAccounts(ctx)
	if err != nil {
		return "", errors.Wrap(err, "failed to list accounts")
	}
	if len(accounts) == 0 || accounts[0].ID == "" {
		return "", errors.Wrap(ErrNoData, "no accounts available")
	}

	s.mu.Lock()
	s.accountID = accounts[0].ID
	s.mu.Unlock()

	return accounts[0].ID, nil
}

// Balances returns all balances of the selected account.
func (s *Service) Balances(ctx context.Context) ([]domain.Balance, error) {
	accountID, err := s.AccountID(ctx)
	if err != nil {
		return nil, err
	}
	return s.gw.GetBalances(ctx, accountID)
}

// Balance returns the balance of one currency, or ErrNoData when the account
// holds no entry for it.
func (s *Service) Balance(ctx context.Context, symbol string) (*domain.Balance, error) {
	balances, err := s.Balances(ctx)
	if err != nil {
		return nil, err
	}

	for i := range balances {
		if balances[i].Symbol == symbol {
			return &balances[i], nil
		}
	}
	return nil, errors.Wrapf(ErrNoData, "no balance for %s", symbol)
}

// AvailableBalance returns the spendable amount of a currency. Any failure,
// missing entry or malformed amount yields zero.
func (s *Service) AvailableBalance(ctx context.Context, symbol string) decimal.Decimal {
	balance, err := s.Balance(ctx, symbol)
	if err != nil {
		s.l.Debug("available balance unavailable", zap.String("symbol", symbol), zap.Error(err))
		return decimal.Zero
	}
	return balance.AvailableAmount()
}

// TotalBalance returns the total amount of a currency, zero on any failure.
func (s *Service) TotalBalance(ctx context.Context, symbol string) decimal.Decimal {
	balance, err := s.Balance(ctx, symbol)
	if err != nil {
		s.l.Debug("total balance unavailable", zap.String("symbol", symbol), zap.Error(err))
		return decimal.Zero
	}
	return balance.TotalAmount()
}

// AllOrders returns the full order history of the selected account.
func (s *Service) AllOrders(ctx context.Context) ([]domain.Order, error) {
	accountID, err := s.AccountID(ctx)
	if err != nil {
		return nil, err
	}

	list, err := s.gw.GetAllOrders(ctx, accountID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch order history")
	}
	return list.Items, nil
}

// OrdersForSymbol returns the account's orders for one instrument.
func (s *Service) OrdersForSymbol(ctx context.Context, symbol string) ([]domain.Order, error) {
	accountID, err := s.AccountID(ctx)
	if err != nil {
		return nil, err
	}
	return s.gw.GetOrders(ctx, accountID, symbol)
}
