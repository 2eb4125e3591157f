package domain

// Order sides and types as the exchange API spells them.
const (
	SideBuy  = "buy"
	SideSell = "sell"

	OrderTypeMarket = "market"
	OrderTypeLimit  = "limit"
)

// Execution is a single fill of an order. Price and Qty arrive as the
// exchange's numeric strings and are parsed where consumed; malformed
// values are skipped, never fatal.
type Execution struct {
	ID    string `json:"id,omitempty"`
	Price string `json:"price"`
	Qty   string `json:"qty"`
}

// Order as reported by the exchange. Immutable once retrieved.
type Order struct {
	ID         string      `json:"id"`
	Instrument string      `json:"instrument"`
	Side       string      `json:"side"`
	Type       string      `json:"type,omitempty"`
	Status     string      `json:"status,omitempty"`
	Executions []Execution `json:"executions"`
}

// OrderList is the envelope the exchange wraps the full order history in.
type OrderList struct {
	Items []Order `json:"items"`
}

// PlacedOrder is the synchronous response to an order submission.
type PlacedOrder struct {
	OrderID string `json:"orderId"`
}
