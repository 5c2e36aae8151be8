package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"mercadinho/backend/internal/domain"
)

var (
	ErrCreditLimitExceeded = errors.New("credit limit exceeded")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
)

// CheckCredit reports whether amount fits under the customer's limit.
func CheckCredit(customer domain.Customer, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	if customer.CurrentDebt.Add(amount).GreaterThan(customer.CreditLimit) {
		return fmt.Errorf("%w: limit %s, current debt %s, requested %s",
			ErrCreditLimitExceeded,
			customer.CreditLimit.StringFixed(2),
			customer.CurrentDebt.StringFixed(2),
			amount.StringFixed(2),
		)
	}
	return nil
}

// ExtendCredit charges amount to the customer's account. The customer is left
// untouched when the limit would be exceeded.
func ExtendCredit(customer *domain.Customer, amount decimal.Decimal) error {
	if err := CheckCredit(*customer, amount); err != nil {
		return err
	}
	customer.CurrentDebt = customer.CurrentDebt.Add(amount)
	return nil
}

// RetractCredit undoes a charge, never taking the debt below zero.
func RetractCredit(customer *domain.Customer, amount decimal.Decimal) {
	customer.CurrentDebt = decimal.Max(decimal.Zero, customer.CurrentDebt.Sub(amount))
}

// RegisterPayment reduces the debt by at most the outstanding amount and
// returns what was applied. Anything paid beyond the debt is not kept.
func RegisterPayment(customer *domain.Customer, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	reduction := decimal.Min(customer.CurrentDebt, amount)
	if reduction.IsNegative() {
		reduction = decimal.Zero
	}
	customer.CurrentDebt = customer.CurrentDebt.Sub(reduction)
	customer.TotalPaid = customer.TotalPaid.Add(reduction)
	return reduction, nil
}

func AvailableCredit(customer domain.Customer) decimal.Decimal {
	return decimal.Max(decimal.Zero, customer.CreditLimit.Sub(customer.CurrentDebt))
}
