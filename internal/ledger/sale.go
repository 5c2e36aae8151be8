package ledger

import (
	"github.com/shopspring/decimal"

	"mercadinho/backend/internal/domain"
)

type Totals struct {
	Total     decimal.Decimal
	TotalCost decimal.Decimal
	Profit    decimal.Decimal
}

// SaleTotals sums price and cost over the items; profit is always total minus cost.
func SaleTotals(items []domain.SaleItem) Totals {
	total := decimal.Zero
	cost := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
		cost = cost.Add(item.LineCost())
	}
	return Totals{Total: total, TotalCost: cost, Profit: total.Sub(cost)}
}
