package core

import "github.com/shopspring/decimal"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Category string
	Amount   decimal.Decimal
}

// Summary is the per-category expense total for a month, in the order the
// store produced it.
type Summary struct {
	Month      Month
	ByCategory []CategoryAmount
}

// Total returns the sum over all categories.
func (s Summary) Total() decimal.Decimal {
	total := decimal.Zero
	for _, c := range s.ByCategory {
		total = total.Add(c.Amount)
	}
	return total
}
