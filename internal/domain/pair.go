// Package domain defines core data structures used throughout the trading bot.
package domain

import "fmt"

// Pair cryptocurrency trading pair.
type Pair struct {
	// Crypto base currency symbol, e.g. BTC.
	Crypto string
	// Fiat quote currency symbol, e.g. BRL.
	Fiat string
}

// String returns the string representation.
func (p *Pair) String() string {
	return fmt.Sprintf("%s/%s", p.Crypto, p.Fiat)
}

// Symbol returns the exchange instrument symbol, e.g. "BTC-BRL".
func (p *Pair) Symbol() string {
	return fmt.Sprintf("%s-%s", p.Crypto, p.Fiat)
}
