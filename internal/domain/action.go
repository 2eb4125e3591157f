package domain

// Action represents the type of trading action to be performed.
type Action int

const (
	ActionBuy Action = iota
	ActionSell
)

// String returns the string representation of the action.
func (a Action) String() string {
	switch a {
	case ActionBuy:
		return "buy"
	case ActionSell:
		return "sell"
	default:
		return "unknown"
	}
}
