// Package config loads the bot configuration from environment variables and
// an optional yaml file.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/BrenoFariasdaSilva/MercadoBitcoin-TradingEngine/internal/domain"
)

const (
	defaultPair           = "BTC-BRL"
	defaultPollInterval   = 30 * time.Second
	defaultRequestTimeout = 30 * time.Second
	defaultRetryAttempts  = 3
	defaultRetryDelay     = 2 * time.Second
)

// Config is the resolved bot configuration.
type Config struct {
	APIKey    string
	APISecret string
	BaseURL   string

	Pair           domain.Pair
	PollInterval   time.Duration
	RequestTimeout time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration

	Rules domain.RuleSet
}

type yamlBuyTier struct {
	Tier      int    `yaml:"tier"`
	Threshold string `yaml:"threshold"`
	Fraction  string `yaml:"fraction"`
}

type yamlRules struct {
	BuyTiers         []yamlBuyTier `yaml:"buy_tiers"`
	SellThreshold    string        `yaml:"sell_threshold"`
	SellFraction     string        `yaml:"sell_fraction"`
	MinOrderNotional string        `yaml:"min_order_notional"`
	MinOrderQty      string        `yaml:"min_order_qty"`
}

type yamlConfig struct {
	Pair              string     `yaml:"pair"`
	BaseURL           string     `yaml:"base_url,omitempty"`
	PollIntervalSec   int64      `yaml:"poll_interval_sec,omitempty"`
	RequestTimeoutSec int64      `yaml:"request_timeout_sec,omitempty"`
	RetryAttempts     int        `yaml:"retry_attempts,omitempty"`
	RetryDelaySec     int64      `yaml:"retry_delay_sec,omitempty"`
	Rules             *yamlRules `yaml:"rules,omitempty"`
}

// Get resolves the configuration. Credentials always come from the
// MB_API_KEY and MB_API_SECRET environment variables; everything else comes
// from the yaml file named by --config, falling back to defaults.
func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	flag.Parse()

	return load(*configPath)
}

func load(path string) (Config, error) {
	cfg := Config{
		APIKey:         os.Getenv("MB_API_KEY"),
		APISecret:      os.Getenv("MB_API_SECRET"),
		BaseURL:        os.Getenv("MB_BASE_URL"),
		PollInterval:   defaultPollInterval,
		RequestTimeout: defaultRequestTimeout,
		RetryAttempts:  defaultRetryAttempts,
		RetryDelay:     defaultRetryDelay,
		Rules:          domain.DefaultRuleSet(),
	}

	pair, err := pairFromString(defaultPair)
	if err != nil {
		return Config{}, err
	}
	cfg.Pair = pair

	if path != "" {
		if err := applyYaml(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyYaml(cfg *Config, path string) error {
	f, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(f, &yc); err != nil {
		return fmt.Errorf("failed to parse yaml config %s: %w", path, err)
	}

	if yc.Pair != "" {
		pair, err := pairFromString(yc.Pair)
		if err != nil {
			return fmt.Errorf("incorrect 'pair' param in yaml config: %s, error: %w", yc.Pair, err)
		}
		cfg.Pair = pair
	}
	if yc.BaseURL != "" {
		cfg.BaseURL = yc.BaseURL
	}
	if yc.PollIntervalSec > 0 {
		cfg.PollInterval = time.Duration(yc.PollIntervalSec) * time.Second
	}
	if yc.RequestTimeoutSec > 0 {
		cfg.RequestTimeout = time.Duration(yc.RequestTimeoutSec) * time.Second
	}
	if yc.RetryAttempts > 0 {
		cfg.RetryAttempts = yc.RetryAttempts
	}
	if yc.RetryDelaySec > 0 {
		cfg.RetryDelay = time.Duration(yc.RetryDelaySec) * time.Second
	}

	if yc.Rules != nil {
		rules, err := rulesFromYaml(yc.Rules)
		if err != nil {
			return err
		}
		cfg.Rules = rules
	}
	return nil
}

func rulesFromYaml(yr *yamlRules) (domain.RuleSet, error) {
	rules := domain.DefaultRuleSet()

	if len(yr.BuyTiers) > 0 {
		tiers := make([]domain.BuyTier, 0, len(yr.BuyTiers))
		for _, t := range yr.BuyTiers {
			threshold, err := decimal.NewFromString(t.Threshold)
			if err != nil {
				return domain.RuleSet{}, fmt.Errorf("incorrect 'threshold' in buy tier %d: %w", t.Tier, err)
			}
			fraction, err := decimal.NewFromString(t.Fraction)
			if err != nil {
				return domain.RuleSet{}, fmt.Errorf("incorrect 'fraction' in buy tier %d: %w", t.Tier, err)
			}
			tiers = append(tiers, domain.BuyTier{Tier: t.Tier, Threshold: threshold, Fraction: fraction})
		}
		rules.BuyTiers = tiers
	}

	var err error
	if yr.SellThreshold != "" {
		if rules.SellThreshold, err = decimal.NewFromString(yr.SellThreshold); err != nil {
			return domain.RuleSet{}, fmt.Errorf("incorrect 'sell_threshold' param: %w", err)
		}
	}
	if yr.SellFraction != "" {
		if rules.SellFraction, err = decimal.NewFromString(yr.SellFraction); err != nil {
			return domain.RuleSet{}, fmt.Errorf("incorrect 'sell_fraction' param: %w", err)
		}
	}
	if yr.MinOrderNotional != "" {
		if rules.MinOrderNotional, err = decimal.NewFromString(yr.MinOrderNotional); err != nil {
			return domain.RuleSet{}, fmt.Errorf("incorrect 'min_order_notional' param: %w", err)
		}
	}
	if yr.MinOrderQty != "" {
		if rules.MinOrderQty, err = decimal.NewFromString(yr.MinOrderQty); err != nil {
			return domain.RuleSet{}, fmt.Errorf("incorrect 'min_order_qty' param: %w", err)
		}
	}
	return rules, nil
}

func (c *Config) validate() error {
	if c.APIKey == "" || c.APISecret == "" {
		return fmt.Errorf("MB_API_KEY and MB_API_SECRET environment variables must be set")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	return c.Rules.Validate()
}

func pairFromString(pairStr string) (domain.Pair, error) {
	parts := strings.Split(pairStr, "-")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return domain.Pair{}, fmt.Errorf("invalid pair param %q, expected format like BTC-BRL", pairStr)
	}
	return domain.Pair{Crypto: parts[0], Fiat: parts[1]}, nil
}
