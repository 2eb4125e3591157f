// Package setup renders the startup console summary.
package setup

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/BrenoFariasdaSilva/MercadoBitcoin-TradingEngine/config"
	"github.com/BrenoFariasdaSilva/MercadoBitcoin-TradingEngine/internal/domain"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(0, 2).
			Bold(true).
			MarginBottom(1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(subtle)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			Padding(1)
)

// Summary renders the configuration, balances and average purchase price
// shown once at startup.
func Summary(cfg config.Config, balances []domain.Balance, avgPrice decimal.Decimal, avgKnown bool) string {
	var sb strings.Builder

	sb.WriteString(sectionStyle.Render("Trading rules") + "\n")
	sb.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("pair:"), cfg.Pair.Symbol()))
	sb.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("poll interval:"), cfg.PollInterval))
	for _, tier := range cfg.Rules.BuyTiers {
		sb.WriteString(fmt.Sprintf("%s buy %s%% of fiat at +%s%%\n",
			labelStyle.Render(fmt.Sprintf("tier %d:", tier.Tier)),
			tier.Fraction.Mul(decimal.NewFromInt(100)).StringFixed(0),
			tier.Threshold.Mul(decimal.NewFromInt(100)).StringFixed(0)))
	}
	sb.WriteString(fmt.Sprintf("%s sell %s%% of position at +%s%%\n",
		labelStyle.Render("sell:"),
		cfg.Rules.SellFraction.Mul(decimal.NewFromInt(100)).StringFixed(0),
		cfg.Rules.SellThreshold.Mul(decimal.NewFromInt(100)).StringFixed(0)))

	sb.WriteString("\n" + sectionStyle.Render("Balances") + "\n")
	if len(balances) == 0 {
		sb.WriteString(labelStyle.Render("no balances available") + "\n")
	}
	for _, b := range balances {
		sb.WriteString(fmt.Sprintf("%s available=%s total=%s\n",
			labelStyle.Render(b.Symbol+":"), b.Available, b.Total))
	}

	sb.WriteString("\n" + sectionStyle.Render("Position") + "\n")
	if avgKnown {
		sb.WriteString(fmt.Sprintf("%s %s %s\n",
			labelStyle.Render("average purchase price:"), avgPrice.StringFixed(2), cfg.Pair.Fiat))
	} else {
		sb.WriteString(labelStyle.Render(fmt.Sprintf("no %s purchase history found", cfg.Pair.Crypto)) + "\n")
	}

	header := headerStyle.Render("Mercado Bitcoin Trading Bot")
	return header + "\n" + boxStyle.Render(strings.TrimRight(sb.String(), "\n"))
}
