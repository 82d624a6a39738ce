package report

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ReturnRule is an opt-in reporting adjustment: orders whose shipment status
// contains Marker are booked at Amount (usually a fixed negative value).
// It is never part of parsing and is off unless configured.
type ReturnRule struct {
	Marker string
	Amount decimal.Decimal
}

// Matches reports whether the rule applies to o.
func (r ReturnRule) Matches(o Order) bool {
	if r.Marker == "" || o.Shipment == Unspecified {
		return false
	}
	return strings.Contains(strings.ToLower(o.Shipment), strings.ToLower(r.Marker))
}

// Apply returns a copy of orders with the rule applied.
func (r ReturnRule) Apply(orders []Order) []Order {
	out := make([]Order, len(orders))
	for i, o := range orders {
		if r.Matches(o) {
			o.Amount = r.Amount
		}
		out[i] = o
	}
	return out
}
