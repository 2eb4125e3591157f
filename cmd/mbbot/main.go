// Command mbbot runs the Mercado Bitcoin rule-based trading bot.
// It monitors the configured trading pair and places market buy/sell orders
// when the current price deviates from the average purchase price by the
// configured thresholds.
//
// Usage:
//
//	mbbot --config config.yaml
//	mbbot (uses defaults: BTC-BRL, stock rule table)
//
// Required environment variables (a .env file is honored):
//
//	MB_API_KEY, MB_API_SECRET
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BrenoFariasdaSilva/MercadoBitcoin-TradingEngine/config"
	"github.com/BrenoFariasdaSilva/MercadoBitcoin-TradingEngine/internal"
	"github.com/BrenoFariasdaSilva/MercadoBitcoin-TradingEngine/internal/clients"
	"github.com/BrenoFariasdaSilva/MercadoBitcoin-TradingEngine/internal/services/account"
	"github.com/BrenoFariasdaSilva/MercadoBitcoin-TradingEngine/internal/services/pricer"
	"github.com/BrenoFariasdaSilva/MercadoBitcoin-TradingEngine/internal/services/strategy"
	"github.com/BrenoFariasdaSilva/MercadoBitcoin-TradingEngine/internal/services/trader"
	"github.com/BrenoFariasdaSilva/MercadoBitcoin-TradingEngine/internal/setup"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	auth := clients.NewAuthenticator(cfg.APIKey, cfg.APISecret, resolveBaseURL(cfg), cfg.RequestTimeout)
	client := clients.NewClient(auth, clients.Options{
		BaseURL:     cfg.BaseURL,
		Timeout:     cfg.RequestTimeout,
		MaxAttempts: cfg.RetryAttempts,
		RetryDelay:  cfg.RetryDelay,
	}, logger)

	accounts := account.New(client, logger)
	currentPricer := pricer.NewMercadoBitcoinPricer(client)
	currentTrader := trader.New(client, accounts, cfg.Pair)

	engine, err := strategy.NewEngine(cfg.Rules, nil, logger)
	if err != nil {
		logger.Fatal("failed to create rule engine", zap.Error(err))
	}

	bot := internal.NewTradingBot(cfg, currentPricer, currentTrader, accounts, engine, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := auth.Authenticate(ctx); err != nil {
		logger.Fatal("initial authentication failed", zap.Error(err))
	}

	printSummary(ctx, cfg, accounts, bot, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return bot.Run(ctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("trading bot stopped with error", zap.Error(err))
	}
	logger.Info("trading bot stopped")
}

func printSummary(ctx context.Context, cfg config.Config, accounts *account.Service,
	bot *internal.TradingBot, logger *zap.Logger) {
	balances, err := accounts.Balances(ctx)
	if err != nil {
		logger.Warn("failed to fetch balances for startup summary", zap.Error(err))
	}
	avgPrice, avgKnown := bot.AveragePrice(ctx)
	fmt.Println(setup.Summary(cfg, balances, avgPrice, avgKnown))
}

func resolveBaseURL(cfg config.Config) string {
	if cfg.BaseURL != "" {
		return cfg.BaseURL
	}
	return clients.DefaultBaseURL
}
