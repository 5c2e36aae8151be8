package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/ttacon/libphonenumber"

	"mercadinho/backend/internal/domain"
	"mercadinho/backend/internal/ledger"
	"mercadinho/backend/internal/store"
	"mercadinho/backend/internal/xid"
)

func (s *Service) ListCustomers() []domain.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()

	customers := make([]domain.Customer, len(s.state.Customers))
	copy(customers, s.state.Customers)
	return customers
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	if err := domain.Validate(req); err != nil {
		return domain.Customer{}, err
	}
	if err := s.validatePhone(req.Phone); err != nil {
		return domain.Customer{}, err
	}

	customer := domain.Customer{
		ID:          xid.New("c"),
		Name:        req.Name,
		Phone:       req.Phone,
		CreditLimit: req.CreditLimit,
		CurrentDebt: decimal.Zero,
		TotalPaid:   decimal.Zero,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Customers = append(s.state.Customers, customer)
	s.persistLocked(ctx, store.KeyCustomers)

	s.audit("customer_create", logrus.Fields{"customer_id": customer.ID, "limit": customer.CreditLimit.StringFixed(2)})
	return customer, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, customerID string, req domain.CustomerUpdateRequest) (domain.Customer, error) {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
	}
	if req.Phone != nil {
		phone := strings.TrimSpace(*req.Phone)
		req.Phone = &phone
		if err := s.validatePhone(phone); err != nil {
			return domain.Customer{}, err
		}
	}
	if err := domain.Validate(req); err != nil {
		return domain.Customer{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.state.FindCustomer(customerID)
	if idx < 0 {
		return domain.Customer{}, fmt.Errorf("customer %s: %w", customerID, ErrNotFound)
	}
	updated := s.state.Customers[idx]
	if req.Name != nil {
		updated.Name = *req.Name
	}
	if req.Phone != nil {
		updated.Phone = *req.Phone
	}
	if req.CreditLimit != nil {
		if req.CreditLimit.LessThan(updated.CurrentDebt) {
			return domain.Customer{}, domain.Invalid("creditLimit", "must not be below the current debt of "+updated.CurrentDebt.StringFixed(2))
		}
		updated.CreditLimit = *req.CreditLimit
	}

	s.state.Customers[idx] = updated
	s.persistLocked(ctx, store.KeyCustomers)
	return updated, nil
}

func (s *Service) DeleteCustomer(ctx context.Context, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.state.FindCustomer(customerID)
	if idx < 0 {
		return fmt.Errorf("customer %s: %w", customerID, ErrNotFound)
	}
	if s.state.Customers[idx].CurrentDebt.IsPositive() {
		return fmt.Errorf("%w: %s owes %s", ErrCustomerHasDebt, s.state.Customers[idx].Name, s.state.Customers[idx].CurrentDebt.StringFixed(2))
	}
	s.state.Customers = append(s.state.Customers[:idx:idx], s.state.Customers[idx+1:]...)
	s.persistLocked(ctx, store.KeyCustomers)

	s.audit("customer_delete", logrus.Fields{"customer_id": customerID})
	return nil
}

// RegisterPayment applies at most the outstanding debt. The rest of the amount
// is reported as discarded; the account never goes into credit.
func (s *Service) RegisterPayment(ctx context.Context, customerID string, req domain.PaymentRequest) (domain.PaymentResult, error) {
	if err := domain.Validate(req); err != nil {
		return domain.PaymentResult{}, err
	}

	var result domain.PaymentResult
	err := s.run(ctx, OpRegisterPayment, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		idx := s.state.FindCustomer(customerID)
		if idx < 0 {
			return fmt.Errorf("customer %s: %w", customerID, ErrNotFound)
		}
		applied, err := ledger.RegisterPayment(&s.state.Customers[idx], req.Amount)
		if err != nil {
			return domain.Invalid("amount", err.Error())
		}
		s.persistLocked(ctx, store.KeyCustomers)

		result = domain.PaymentResult{
			Customer:  s.state.Customers[idx],
			Applied:   applied,
			Discarded: req.Amount.Sub(applied),
		}
		return nil
	})
	if err != nil {
		return domain.PaymentResult{}, err
	}

	if result.Discarded.IsPositive() {
		s.logger.WithFields(logrus.Fields{
			"module":      "service",
			"customer_id": customerID,
			"discarded":   result.Discarded.StringFixed(2),
		}).Warn("payment exceeded debt, excess discarded")
	}
	s.audit("register_payment", logrus.Fields{"customer_id": customerID, "applied": result.Applied.StringFixed(2)})
	return result, nil
}

func (s *Service) validatePhone(phone string) error {
	if phone == "" {
		return nil
	}
	parsed, err := libphonenumber.Parse(phone, s.phoneRegion)
	if err != nil || !libphonenumber.IsValidNumber(parsed) {
		return domain.Invalid("phone", "is not a valid phone number")
	}
	return nil
}
