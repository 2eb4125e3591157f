package domain

// Ticker is the public market summary for one instrument.
type Ticker struct {
	Pair string `json:"pair"`
	High string `json:"high"`
	Low  string `json:"low"`
	Vol  string `json:"vol"`
	Last string `json:"last"`
	Buy  string `json:"buy"`
	Sell string `json:"sell"`
	Date int64  `json:"date"`
}

// Orderbook is the public book snapshot. Levels are [price, qty] string pairs.
type Orderbook struct {
	Asks      [][]string `json:"asks"`
	Bids      [][]string `json:"bids"`
	Timestamp int64      `json:"timestamp"`
}
