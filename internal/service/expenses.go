package service

import (
	"context"
	"fmt"
	"strings"

	"mercadinho/backend/internal/domain"
	"mercadinho/backend/internal/store"
	"mercadinho/backend/internal/xid"
)

// ListExpenses keeps the stored order, newest first. An empty type lists all.
func (s *Service) ListExpenses(expenseType domain.ExpenseType) ([]domain.Expense, error) {
	if expenseType != "" && !expenseType.Valid() {
		return nil, domain.Invalid("type", fmt.Sprintf("has unsupported value %s", expenseType))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	expenses := make([]domain.Expense, 0, len(s.state.Expenses))
	for _, e := range s.state.Expenses {
		if expenseType == "" || e.Type == expenseType {
			expenses = append(expenses, e)
		}
	}
	return expenses, nil
}

func (s *Service) CreateExpense(ctx context.Context, req domain.ExpenseRequest) (domain.Expense, error) {
	req, err := normalizeExpenseRequest(req)
	if err != nil {
		return domain.Expense{}, err
	}

	expense := domain.Expense{
		ID:          xid.New("e"),
		Date:        s.now().UTC(),
		DueDate:     req.DueDate,
		Description: req.Description,
		Amount:      req.Amount,
		Type:        req.Type,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Expenses = append([]domain.Expense{expense}, s.state.Expenses...)
	s.persistLocked(ctx, store.KeyExpenses)
	return expense, nil
}

// UpdateExpense replaces the editable fields and keeps the paid flag.
func (s *Service) UpdateExpense(ctx context.Context, expenseID string, req domain.ExpenseRequest) (domain.Expense, error) {
	req, err := normalizeExpenseRequest(req)
	if err != nil {
		return domain.Expense{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.state.FindExpense(expenseID)
	if idx < 0 {
		return domain.Expense{}, fmt.Errorf("expense %s: %w", expenseID, ErrNotFound)
	}
	e := &s.state.Expenses[idx]
	e.Description = req.Description
	e.Amount = req.Amount
	e.DueDate = req.DueDate
	e.Type = req.Type

	s.persistLocked(ctx, store.KeyExpenses)
	return *e, nil
}

func (s *Service) ToggleExpensePaid(ctx context.Context, expenseID string) (domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.state.FindExpense(expenseID)
	if idx < 0 {
		return domain.Expense{}, fmt.Errorf("expense %s: %w", expenseID, ErrNotFound)
	}
	s.state.Expenses[idx].IsPaid = !s.state.Expenses[idx].IsPaid
	s.persistLocked(ctx, store.KeyExpenses)
	return s.state.Expenses[idx], nil
}

func (s *Service) DeleteExpense(ctx context.Context, expenseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.state.FindExpense(expenseID)
	if idx < 0 {
		return fmt.Errorf("expense %s: %w", expenseID, ErrNotFound)
	}
	s.state.Expenses = append(s.state.Expenses[:idx:idx], s.state.Expenses[idx+1:]...)
	s.persistLocked(ctx, store.KeyExpenses)
	return nil
}

func normalizeExpenseRequest(req domain.ExpenseRequest) (domain.ExpenseRequest, error) {
	req.Description = strings.TrimSpace(req.Description)
	req.DueDate = strings.TrimSpace(req.DueDate)
	if req.Type == "" {
		req.Type = domain.ExpenseFixed
	}
	if err := domain.Validate(req); err != nil {
		return domain.ExpenseRequest{}, err
	}
	return req, nil
}
