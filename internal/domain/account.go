package domain

import "github.com/shopspring/decimal"

// Account identifies one exchange account.
type Account struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Currency string `json:"currency,omitempty"`
	Type     string `json:"type,omitempty"`
}

// Balance holds one currency's funds for an account. Amounts arrive as
// numeric strings.
type Balance struct {
	Symbol    string `json:"symbol"`
	Available string `json:"available"`
	Total     string `json:"total"`
}

// AvailableAmount parses the available funds, coercing malformed text to zero.
func (b *Balance) AvailableAmount() decimal.Decimal {
	return parseAmount(b.Available)
}

// TotalAmount parses the total funds, coercing malformed text to zero.
func (b *Balance) TotalAmount() decimal.Decimal {
	return parseAmount(b.Total)
}

func parseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
