// Package snapshot converts the application state to and from the backup
// document shared by file export and cloud backup.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mercadinho/backend/internal/domain"
)

const Version = "1.0"

var ErrInvalidBackupFormat = errors.New("invalid backup format")

type Document struct {
	Products   []domain.Product  `json:"products"`
	Sales      []domain.Sale     `json:"sales"`
	Expenses   []domain.Expense  `json:"expenses"`
	Customers  []domain.Customer `json:"customers"`
	Version    string            `json:"version"`
	ExportDate string            `json:"exportDate"`
}

// Serialize copies the persistent collections and stamps version and export time.
// Settings and the open cart are not part of a backup.
func Serialize(state domain.State, now time.Time) Document {
	dup := state.Clone()
	return Document{
		Products:   nonNil(dup.Products),
		Sales:      nonNil(dup.Sales),
		Expenses:   nonNil(dup.Expenses),
		Customers:  nonNil(dup.Customers),
		Version:    Version,
		ExportDate: now.UTC().Format(time.RFC3339),
	}
}

func Marshal(doc Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// Restore parses a backup document into a fresh state. Documents without
// products or sales are rejected; expenses and customers default to empty so
// older exports stay readable.
func Restore(raw []byte) (domain.State, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return domain.State{}, fmt.Errorf("%w: %v", ErrInvalidBackupFormat, err)
	}
	for _, required := range []string{"products", "sales"} {
		value, ok := fields[required]
		if !ok || isNull(value) {
			return domain.State{}, fmt.Errorf("%w: missing %s", ErrInvalidBackupFormat, required)
		}
	}

	var state domain.State
	if err := decodeField(fields, "products", &state.Products); err != nil {
		return domain.State{}, err
	}
	if err := decodeField(fields, "sales", &state.Sales); err != nil {
		return domain.State{}, err
	}
	if err := decodeField(fields, "expenses", &state.Expenses); err != nil {
		return domain.State{}, err
	}
	if err := decodeField(fields, "customers", &state.Customers); err != nil {
		return domain.State{}, err
	}

	state.Products = nonNil(state.Products)
	state.Sales = nonNil(state.Sales)
	state.Expenses = nonNil(state.Expenses)
	state.Customers = nonNil(state.Customers)

	if err := validateState(state); err != nil {
		return domain.State{}, fmt.Errorf("%w: %v", ErrInvalidBackupFormat, err)
	}
	return state, nil
}

func decodeField(fields map[string]json.RawMessage, name string, dest any) error {
	value, ok := fields[name]
	if !ok || isNull(value) {
		return nil
	}
	if err := json.Unmarshal(value, dest); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidBackupFormat, name, err)
	}
	return nil
}

func validateState(state domain.State) error {
	seen := make(map[string]struct{})
	unique := func(kind string, id string) error {
		key := kind + ":" + id
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate %s id %q", kind, id)
		}
		seen[key] = struct{}{}
		return nil
	}

	for i, p := range state.Products {
		if err := domain.Validate(p); err != nil {
			return fmt.Errorf("products[%d]: %w", i, err)
		}
		if err := unique("product", p.ID); err != nil {
			return err
		}
	}
	for i, c := range state.Customers {
		if err := domain.Validate(c); err != nil {
			return fmt.Errorf("customers[%d]: %w", i, err)
		}
		if c.CurrentDebt.GreaterThan(c.CreditLimit) {
			return fmt.Errorf("customers[%d]: currentDebt %s exceeds creditLimit %s", i, c.CurrentDebt, c.CreditLimit)
		}
		if err := unique("customer", c.ID); err != nil {
			return err
		}
	}
	for i, s := range state.Sales {
		if err := domain.Validate(s); err != nil {
			return fmt.Errorf("sales[%d]: %w", i, err)
		}
		if s.PaymentMethod.IsCreditAccount() != (s.CustomerID != "") {
			return fmt.Errorf("sales[%d]: customerId must be set only for %s sales", i, domain.PaymentFiado)
		}
		if !s.Profit.Equal(s.Total.Sub(s.TotalCost)) {
			return fmt.Errorf("sales[%d]: profit %s must equal total %s minus totalCost %s", i, s.Profit, s.Total, s.TotalCost)
		}
		if err := unique("sale", s.ID); err != nil {
			return err
		}
	}
	for i, e := range state.Expenses {
		if err := domain.Validate(e); err != nil {
			return fmt.Errorf("expenses[%d]: %w", i, err)
		}
		if err := unique("expense", e.ID); err != nil {
			return err
		}
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
