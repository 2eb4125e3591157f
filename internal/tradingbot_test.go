package internal

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BrenoFariasdaSilva/MercadoBitcoin-TradingEngine/config"
	"github.com/BrenoFariasdaSilva/MercadoBitcoin-TradingEngine/internal/domain"
	"github.com/BrenoFariasdaSilva/MercadoBitcoin-TradingEngine/internal/services/strategy"
)

type fakePricer struct {
	price decimal.Decimal
	err   error
}

func (p *fakePricer) GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	return p.price, p.err
}

type fakeTrader struct {
	buyCosts  []decimal.Decimal
	sellQtys  []decimal.Decimal
	failOrder bool
}

func (t *fakeTrader) BuyByCost(ctx context.Context, cost decimal.Decimal) (*domain.PlacedOrder, error) {
	if t.failOrder {
		return nil, errors.New("exchange rejected order")
	}
	t.buyCosts = append(t.buyCosts, cost)
	return &domain.PlacedOrder{OrderID: "order-1"}, nil
}

func (t *fakeTrader) SellByQty(ctx context.Context, qty decimal.Decimal) (*domain.PlacedOrder, error) {
	if t.failOrder {
		return nil, errors.New("exchange rejected order")
	}
	t.sellQtys = append(t.sellQtys, qty)
	return &domain.PlacedOrder{OrderID: "order-2"}, nil
}

type fakeAccounts struct {
	balances  map[string]decimal.Decimal
	orders    []domain.Order
	ordersErr error
}

func (a *fakeAccounts) AvailableBalance(ctx context.Context, symbol string) decimal.Decimal {
	return a.balances[symbol]
}

func (a *fakeAccounts) AllOrders(ctx context.Context) ([]domain.Order, error) {
	return a.orders, a.ordersErr
}

func buyOrder(instrument, price, qty string) domain.Order {
	return domain.Order{
		Instrument: instrument,
		Side:       domain.SideBuy,
		Executions: []domain.Execution{{Price: price, Qty: qty}},
	}
}

func newTestBot(t *testing.T, pricer Pricer, trader Trader, accounts AccountState) *TradingBot {
	t.Helper()

	conf := config.Config{
		Pair:  domain.Pair{Crypto: "BTC", Fiat: "BRL"},
		Rules: domain.DefaultRuleSet(),
	}
	engine, err := strategy.NewEngine(conf.Rules, nil, zap.NewNop())
	require.NoError(t, err)

	return NewTradingBot(conf, pricer, trader, accounts, engine, zap.NewNop())
}

func TestExecuteBuyInsufficientBalance(t *testing.T) {
	trader := &fakeTrader{}
	accounts := &fakeAccounts{balances: map[string]decimal.Decimal{}}
	bot := newTestBot(t, &fakePricer{}, trader, accounts)

	action := &domain.RuleAction{
		Action: domain.ActionBuy, Tier: 1,
		Fraction: decimal.NewFromFloat(0.10), Key: "buy_1_100",
	}
	require.False(t, bot.executeBuy(context.Background(), action))
	require.Empty(t, trader.buyCosts)
	require.False(t, bot.engine.Executed(action.Key))
}

func TestExecuteBuyBelowMinimumNotional(t *testing.T) {
	trader := &fakeTrader{}
	accounts := &fakeAccounts{balances: map[string]decimal.Decimal{
		"BRL": decimal.NewFromInt(50),
	}}
	bot := newTestBot(t, &fakePricer{}, trader, accounts)

	// 50 * 0.10 = 5, below the 10 BRL minimum
	action := &domain.RuleAction{
		Action: domain.ActionBuy, Tier: 1,
		Fraction: decimal.NewFromFloat(0.10), Key: "buy_1_100",
	}
	require.False(t, bot.executeBuy(context.Background(), action))
	require.Empty(t, trader.buyCosts)
	require.False(t, bot.engine.Executed(action.Key))
}

func TestExecuteBuySuccessMarksKeyAndRefreshesAverage(t *testing.T) {
	trader := &fakeTrader{}
	accounts := &fakeAccounts{
		balances: map[string]decimal.Decimal{"BRL": decimal.NewFromInt(1000)},
		orders:   []domain.Order{buyOrder("BTC-BRL", "100", "1"), buyOrder("BTC-BRL", "200", "1")},
	}
	bot := newTestBot(t, &fakePricer{}, trader, accounts)

	avg, known := bot.AveragePrice(context.Background())
	require.True(t, known)
	require.True(t, decimal.NewFromInt(150).Equal(avg))

	// the position changes on the exchange as a result of the buy
	action := &domain.RuleAction{
		Action: domain.ActionBuy, Tier: 2,
		Fraction: decimal.NewFromFloat(0.20), Key: "buy_2_150",
	}
	accounts.orders = append(accounts.orders, buyOrder("BTC-BRL", "300", "2"))

	require.True(t, bot.executeBuy(context.Background(), action))
	require.Len(t, trader.buyCosts, 1)
	require.True(t, decimal.NewFromInt(200).Equal(trader.buyCosts[0]))
	require.True(t, bot.engine.Executed(action.Key))

	// forced refresh: (100 + 200 + 600) / 4 = 225
	avg, known = bot.AveragePrice(context.Background())
	require.True(t, known)
	require.True(t, decimal.NewFromInt(225).Equal(avg))
}

func TestExecuteBuyOrderFailureLeavesStateUntouched(t *testing.T) {
	trader := &fakeTrader{failOrder: true}
	accounts := &fakeAccounts{
		balances: map[string]decimal.Decimal{"BRL": decimal.NewFromInt(1000)},
		orders:   []domain.Order{buyOrder("BTC-BRL", "100", "1")},
	}
	bot := newTestBot(t, &fakePricer{}, trader, accounts)

	action := &domain.RuleAction{
		Action: domain.ActionBuy, Tier: 1,
		Fraction: decimal.NewFromFloat(0.10), Key: "buy_1_100",
	}
	require.False(t, bot.executeBuy(context.Background(), action))
	// the rule may retry next cycle
	require.False(t, bot.engine.Executed(action.Key))
}

func TestExecuteSellBelowMinimumQty(t *testing.T) {
	trader := &fakeTrader{}
	accounts := &fakeAccounts{balances: map[string]decimal.Decimal{
		"BTC": decimal.NewFromFloat(0.00002),
	}}
	bot := newTestBot(t, &fakePricer{}, trader, accounts)

	// 0.00002 * 0.20 = 0.000004, below the 0.00001 minimum
	action := &domain.RuleAction{
		Action: domain.ActionSell,
		Fraction: decimal.NewFromFloat(0.20), Key: "sell_100",
	}
	require.False(t, bot.executeSell(context.Background(), action))
	require.Empty(t, trader.sellQtys)
	require.False(t, bot.engine.Executed(action.Key))
}

func TestExecuteSellSuccessKeepsAveragePrice(t *testing.T) {
	trader := &fakeTrader{}
	accounts := &fakeAccounts{
		balances: map[string]decimal.Decimal{"BTC": decimal.NewFromInt(1)},
		orders:   []domain.Order{buyOrder("BTC-BRL", "100", "1")},
	}
	bot := newTestBot(t, &fakePricer{}, trader, accounts)

	avg, known := bot.AveragePrice(context.Background())
	require.True(t, known)
	require.True(t, decimal.NewFromInt(100).Equal(avg))

	action := &domain.RuleAction{
		Action: domain.ActionSell,
		Fraction: decimal.NewFromFloat(0.20), Key: "sell_100",
	}
	require.True(t, bot.executeSell(context.Background(), action))
	require.Len(t, trader.sellQtys, 1)
	require.True(t, decimal.NewFromFloat(0.2).Equal(trader.sellQtys[0]))
	require.True(t, bot.engine.Executed(action.Key))

	// selling does not change the cost basis
	avg, known = bot.AveragePrice(context.Background())
	require.True(t, known)
	require.True(t, decimal.NewFromInt(100).Equal(avg))
}

func TestTickBuysOnDeviation(t *testing.T) {
	trader := &fakeTrader{}
	accounts := &fakeAccounts{
		balances: map[string]decimal.Decimal{"BRL": decimal.NewFromInt(1000)},
		orders:   []domain.Order{buyOrder("BTC-BRL", "100", "1"), buyOrder("BTC-BRL", "200", "1")},
	}
	// avg = 150, price 190 => deviation ~26.7%: most aggressive tier wins
	bot := newTestBot(t, &fakePricer{price: decimal.NewFromInt(190)}, trader, accounts)

	bot.tick(context.Background())

	require.Len(t, trader.buyCosts, 1)
	require.True(t, decimal.NewFromInt(500).Equal(trader.buyCosts[0]))
	require.True(t, bot.engine.Executed("buy_3_150"))

	// same cycle conditions again: the executed key suppresses a second buy
	bot.tick(context.Background())
	require.Len(t, trader.buyCosts, 1)
}

func TestTickSellsOnDoubledPrice(t *testing.T) {
	trader := &fakeTrader{}
	accounts := &fakeAccounts{
		balances: map[string]decimal.Decimal{"BTC": decimal.NewFromInt(2)},
		orders:   []domain.Order{buyOrder("BTC-BRL", "100", "1")},
	}
	bot := newTestBot(t, &fakePricer{price: decimal.NewFromInt(200)}, trader, accounts)

	// a doubled price also matches the top buy tier, which is evaluated
	// first; only once that key is suppressed does the sell rule get a turn
	bot.engine.MarkExecuted("buy_3_100")

	bot.tick(context.Background())

	require.Len(t, trader.sellQtys, 1)
	require.True(t, decimal.NewFromFloat(0.4).Equal(trader.sellQtys[0]))
	require.True(t, bot.engine.Executed("sell_100"))
}

func TestTickWithoutHistoryTakesNoAction(t *testing.T) {
	trader := &fakeTrader{}
	accounts := &fakeAccounts{
		balances: map[string]decimal.Decimal{"BRL": decimal.NewFromInt(1000)},
	}
	bot := newTestBot(t, &fakePricer{price: decimal.NewFromInt(190)}, trader, accounts)

	bot.tick(context.Background())

	require.Empty(t, trader.buyCosts)
	require.Empty(t, trader.sellQtys)
}

func TestTickPriceFailureSkipsCycle(t *testing.T) {
	trader := &fakeTrader{}
	accounts := &fakeAccounts{
		balances: map[string]decimal.Decimal{"BRL": decimal.NewFromInt(1000)},
		orders:   []domain.Order{buyOrder("BTC-BRL", "100", "1")},
	}
	bot := newTestBot(t, &fakePricer{err: errors.New("exchange unreachable")}, trader, accounts)

	bot.tick(context.Background())

	require.Empty(t, trader.buyCosts)
	require.Empty(t, trader.sellQtys)
}
