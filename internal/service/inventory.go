package service

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"mercadinho/backend/internal/domain"
	"mercadinho/backend/internal/ledger"
	"mercadinho/backend/internal/store"
	"mercadinho/backend/internal/xid"
)

// ImportStock merges reviewed invoice lines into the catalog and, when asked,
// books the purchase as an unpaid stock expense due today.
func (s *Service) ImportStock(ctx context.Context, req domain.ImportStockRequest) (domain.ImportStockResponse, error) {
	if err := domain.Validate(req); err != nil {
		return domain.ImportStockResponse{}, err
	}

	var resp domain.ImportStockResponse
	err := s.run(ctx, OpImportStock, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		margin := s.state.Settings.DefaultMarginPercent
		if req.MarginPercent != nil {
			margin = *req.MarginPercent
		}

		now := s.now()
		products, result := ledger.ApplyStockIntake(s.state.Products, req.Items, margin, now.UTC())
		if result.Matched+result.Created == 0 {
			return domain.Invalid("items", "has no valid invoice lines")
		}
		s.state.Products = products

		resp = domain.ImportStockResponse{
			Matched:    result.Matched,
			Created:    result.Created,
			Skipped:    result.Skipped,
			TotalValue: result.TotalValue,
			Products:   make([]domain.Product, 0, len(result.Touched)),
		}
		for _, id := range result.Touched {
			if idx := s.state.FindProduct(id); idx >= 0 {
				resp.Products = append(resp.Products, domain.CloneProduct(s.state.Products[idx]))
			}
		}

		keys := []string{store.KeyProducts}
		if req.RegisterExpense && result.TotalValue.IsPositive() {
			local := now.In(s.location)
			expense := domain.Expense{
				ID:          xid.New("e"),
				Date:        now.UTC(),
				DueDate:     local.Format(domain.DateLayout),
				Description: "Estoque: NF " + local.Format("02/01/2006"),
				Amount:      result.TotalValue.Round(2),
				Type:        domain.ExpenseStock,
			}
			s.state.Expenses = append([]domain.Expense{expense}, s.state.Expenses...)
			resp.Expense = &expense
			keys = append(keys, store.KeyExpenses)
		}

		s.persistLocked(ctx, keys...)
		return nil
	})
	if err != nil {
		return domain.ImportStockResponse{}, err
	}

	s.audit("import_stock", logrus.Fields{
		"matched": resp.Matched,
		"created": resp.Created,
		"skipped": resp.Skipped,
		"value":   resp.TotalValue.StringFixed(2),
	})
	return resp, nil
}

// ScanInvoice returns the invoice lines for review. Nothing is stored.
func (s *Service) ScanInvoice(ctx context.Context, image []byte, mimeType string) ([]domain.ScannedProduct, error) {
	if len(image) == 0 {
		return nil, domain.Invalid("file", "is required")
	}

	var items []domain.ScannedProduct
	err := s.run(ctx, OpScanInvoice, func() error {
		raw, err := s.extractor.ExtractProducts(ctx, image, mimeType)
		if err != nil {
			return err
		}
		items = make([]domain.ScannedProduct, 0, len(raw))
		for _, candidate := range raw {
			if normalized, ok := ledger.NormalizeScannedProduct(candidate); ok {
				items = append(items, normalized)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Service) ScanExpense(ctx context.Context, image []byte, mimeType string) (domain.ScannedExpense, error) {
	if len(image) == 0 {
		return domain.ScannedExpense{}, domain.Invalid("file", "is required")
	}

	var expense domain.ScannedExpense
	err := s.run(ctx, OpScanExpense, func() error {
		var err error
		expense, err = s.extractor.ExtractExpense(ctx, image, mimeType)
		return err
	})
	if err != nil {
		return domain.ScannedExpense{}, err
	}
	if expense.Amount.IsNegative() {
		expense.Amount = decimal.Zero
	}
	if !expense.Type.Valid() {
		expense.Type = domain.ExpenseFixed
	}
	if expense.DueDate == "" {
		expense.DueDate = s.today()
	}
	return expense, nil
}

// IdentifyProduct matches a product photo against the catalog. A nil product
// means the photo was not recognized.
func (s *Service) IdentifyProduct(ctx context.Context, image []byte, mimeType string) (*domain.Product, error) {
	if len(image) == 0 {
		return nil, domain.Invalid("file", "is required")
	}

	catalog := s.State().Products
	var match *domain.Product
	err := s.run(ctx, OpIdentifyProduct, func() error {
		var err error
		match, err = s.extractor.IdentifyProduct(ctx, image, mimeType, catalog)
		return err
	})
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, nil
	}

	// The catalog may have changed while the model was thinking.
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.state.FindProduct(match.ID)
	if idx < 0 {
		return nil, nil
	}
	current := domain.CloneProduct(s.state.Products[idx])
	return &current, nil
}
