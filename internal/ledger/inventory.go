// Package ledger holds the stock and credit rules shared by sales, reversals,
// payments and stock intake. Functions mutate the slices and values they are
// given; callers own locking and persistence.
package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"mercadinho/backend/internal/domain"
	"mercadinho/backend/internal/xid"
)

var ErrInsufficientStock = errors.New("insufficient stock")

const DefaultMinStock = 5

var hundred = decimal.NewFromInt(100)

// CheckSaleConsumption verifies every product in items has enough stock,
// summing quantities when a product appears on more than one line.
// Items whose product no longer exists are ignored.
func CheckSaleConsumption(products []domain.Product, items []domain.SaleItem) error {
	wanted := make(map[string]int, len(items))
	order := make([]string, 0, len(items))
	for _, item := range items {
		if item.Quantity < 1 {
			return domain.Invalid("quantity", "must be at least 1")
		}
		if _, seen := wanted[item.ProductID]; !seen {
			order = append(order, item.ProductID)
		}
		wanted[item.ProductID] += item.Quantity
	}

	for _, productID := range order {
		idx := indexByID(products, productID)
		if idx < 0 {
			continue
		}
		if wanted[productID] > products[idx].Stock {
			return fmt.Errorf("%w: %s has %d, requested %d", ErrInsufficientStock, products[idx].Name, products[idx].Stock, wanted[productID])
		}
	}
	return nil
}

// ApplySaleConsumption decrements stock for every sold item. Nothing is
// changed when any product lacks stock.
func ApplySaleConsumption(products []domain.Product, items []domain.SaleItem) error {
	if err := CheckSaleConsumption(products, items); err != nil {
		return err
	}
	for _, item := range items {
		if idx := indexByID(products, item.ProductID); idx >= 0 {
			products[idx].Stock -= item.Quantity
		}
	}
	return nil
}

// ReverseSaleConsumption puts sold quantities back on the shelf. Calling it
// twice for the same sale restocks twice.
func ReverseSaleConsumption(products []domain.Product, items []domain.SaleItem) {
	for _, item := range items {
		if idx := indexByID(products, item.ProductID); idx >= 0 {
			products[idx].Stock += item.Quantity
		}
	}
}

type IntakeResult struct {
	Matched    int
	Created    int
	Skipped    int
	TotalValue decimal.Decimal
	Touched    []string
}

// SuggestedSalePrice applies the margin over cost, rounded to cents.
func SuggestedSalePrice(cost decimal.Decimal, marginPercent decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Add(marginPercent.Div(hundred))
	return cost.Mul(factor).Round(2)
}

// NormalizeScannedProduct returns the candidate with a per-unit cost. When the
// document only shows the line total, the unit cost is total divided by quantity.
func NormalizeScannedProduct(item domain.ScannedProduct) (domain.ScannedProduct, bool) {
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" || item.Quantity < 1 {
		return item, false
	}
	if item.CostPrice.IsZero() && item.TotalPrice.IsPositive() {
		item.CostPrice = item.TotalPrice.Div(decimal.NewFromInt(int64(item.Quantity))).Round(2)
	}
	if item.CostPrice.IsNegative() {
		return item, false
	}
	if !item.Category.Valid() {
		item.Category = domain.CategoryOutros
	}
	item.TotalPrice = decimal.Decimal{}
	return item, true
}

// ApplyStockIntake merges invoice lines into the catalog. A line matches an
// existing product by case-insensitive name; matched products gain stock, take
// the new unit cost and only ever see their sale price raised. Unmatched lines
// become new products priced at cost plus marginPercent. Malformed lines are
// skipped; every other line is applied independently.
func ApplyStockIntake(products []domain.Product, scanned []domain.ScannedProduct, marginPercent decimal.Decimal, now time.Time) ([]domain.Product, IntakeResult) {
	result := IntakeResult{TotalValue: decimal.Zero}

	for _, raw := range scanned {
		item, ok := NormalizeScannedProduct(raw)
		if !ok {
			result.Skipped++
			continue
		}

		suggested := SuggestedSalePrice(item.CostPrice, marginPercent)
		result.TotalValue = result.TotalValue.Add(item.CostPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		updatedAt := now

		if idx := FindByName(products, item.Name); idx >= 0 {
			p := &products[idx]
			p.Stock += item.Quantity
			p.CostPrice = item.CostPrice
			p.SalePrice = decimal.Max(p.SalePrice, suggested)
			p.LastUpdated = &updatedAt
			result.Matched++
			result.Touched = append(result.Touched, p.ID)
			continue
		}

		created := domain.Product{
			ID:          xid.New("p"),
			Name:        item.Name,
			Category:    item.Category,
			CostPrice:   item.CostPrice,
			SalePrice:   suggested,
			Stock:       item.Quantity,
			MinStock:    DefaultMinStock,
			LastUpdated: &updatedAt,
		}
		products = append(products, created)
		result.Created++
		result.Touched = append(result.Touched, created.ID)
	}

	return products, result
}

func indexByID(products []domain.Product, id string) int {
	for i := range products {
		if products[i].ID == id {
			return i
		}
	}
	return -1
}

// FindByName returns the index of the product whose name matches name
// ignoring case and surrounding spaces, or -1. Manual entry and stock intake
// share this rule so the catalog never holds two spellings of one product.
func FindByName(products []domain.Product, name string) int {
	name = strings.TrimSpace(name)
	for i := range products {
		if strings.EqualFold(strings.TrimSpace(products[i].Name), name) {
			return i
		}
	}
	return -1
}
