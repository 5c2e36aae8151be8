package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"mercadinho/backend/internal/domain"
	"mercadinho/backend/internal/ledger"
	"mercadinho/backend/internal/store"
	"mercadinho/backend/internal/xid"
)

func (s *Service) Cart() domain.CartResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartLocked()
}

// AddToCart snapshots the product's current price and cost on a new line or
// raises the quantity of the existing one.
func (s *Service) AddToCart(req domain.CartLineRequest) (domain.CartResponse, error) {
	if err := domain.Validate(req); err != nil {
		return domain.CartResponse{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.state.FindProduct(req.ProductID)
	if idx < 0 {
		return domain.CartResponse{}, fmt.Errorf("product %s: %w", req.ProductID, ErrNotFound)
	}
	product := s.state.Products[idx]

	line := s.cartLineLocked(req.ProductID)
	inCart := 0
	if line >= 0 {
		inCart = s.cart[line].Quantity
	}
	if product.Stock <= 0 || inCart+req.Quantity > product.Stock {
		return domain.CartResponse{}, fmt.Errorf("%w: %s has %d, requested %d", ledger.ErrInsufficientStock, product.Name, product.Stock, inCart+req.Quantity)
	}

	if line >= 0 {
		s.cart[line].Quantity += req.Quantity
	} else {
		s.cart = append(s.cart, domain.SaleItem{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  req.Quantity,
			Price:     product.SalePrice,
			Cost:      product.CostPrice,
		})
	}
	return s.cartLocked(), nil
}

func (s *Service) SetCartQuantity(productID string, req domain.CartQuantityRequest) (domain.CartResponse, error) {
	if err := domain.Validate(req); err != nil {
		return domain.CartResponse{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	line := s.cartLineLocked(productID)
	if line < 0 {
		return domain.CartResponse{}, fmt.Errorf("cart line %s: %w", productID, ErrNotFound)
	}
	if idx := s.state.FindProduct(productID); idx >= 0 && req.Quantity > s.state.Products[idx].Stock {
		p := s.state.Products[idx]
		return domain.CartResponse{}, fmt.Errorf("%w: %s has %d, requested %d", ledger.ErrInsufficientStock, p.Name, p.Stock, req.Quantity)
	}
	s.cart[line].Quantity = req.Quantity
	return s.cartLocked(), nil
}

func (s *Service) RemoveFromCart(productID string) (domain.CartResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	line := s.cartLineLocked(productID)
	if line < 0 {
		return domain.CartResponse{}, fmt.Errorf("cart line %s: %w", productID, ErrNotFound)
	}
	s.cart = append(s.cart[:line], s.cart[line+1:]...)
	return s.cartLocked(), nil
}

func (s *Service) ClearCart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = nil
}

func (s *Service) cartLineLocked(productID string) int {
	for i := range s.cart {
		if s.cart[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (s *Service) cartLocked() domain.CartResponse {
	items := make([]domain.SaleItem, len(s.cart))
	copy(items, s.cart)
	totals := ledger.SaleTotals(items)
	return domain.CartResponse{Items: items, Total: totals.Total, TotalCost: totals.TotalCost}
}

// FinalizeSale turns the cart into a sale. Every check runs before the first
// mutation, so a rejected sale leaves stock, debt, sales and cart untouched.
func (s *Service) FinalizeSale(ctx context.Context, req domain.FinalizeSaleRequest) (domain.Sale, error) {
	var sale domain.Sale
	err := s.run(ctx, OpFinalizeSale, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		if len(s.cart) == 0 {
			return ErrEmptyCart
		}
		if err := domain.Validate(req); err != nil {
			return err
		}

		items := make([]domain.SaleItem, len(s.cart))
		copy(items, s.cart)
		totals := ledger.SaleTotals(items)

		customerIdx := -1
		if req.PaymentMethod.IsCreditAccount() {
			if req.CustomerID == "" {
				return ErrMissingCustomer
			}
			customerIdx = s.state.FindCustomer(req.CustomerID)
			if customerIdx < 0 {
				return fmt.Errorf("customer %s: %w", req.CustomerID, ErrNotFound)
			}
			if err := ledger.CheckCredit(s.state.Customers[customerIdx], totals.Total); err != nil {
				return err
			}
		}
		if err := ledger.CheckSaleConsumption(s.state.Products, items); err != nil {
			return err
		}

		if customerIdx >= 0 {
			if err := ledger.ExtendCredit(&s.state.Customers[customerIdx], totals.Total); err != nil {
				return err
			}
		}
		if err := ledger.ApplySaleConsumption(s.state.Products, items); err != nil {
			return err
		}

		sale = domain.Sale{
			ID:            xid.New("s"),
			Date:          s.now().UTC(),
			Items:         items,
			Total:         totals.Total,
			TotalCost:     totals.TotalCost,
			Profit:        totals.Profit,
			PaymentMethod: req.PaymentMethod,
		}
		if customerIdx >= 0 {
			sale.CustomerID = req.CustomerID
		}
		s.state.Sales = append([]domain.Sale{sale}, s.state.Sales...)
		s.cart = nil

		keys := []string{store.KeyProducts, store.KeySales}
		if customerIdx >= 0 {
			keys = append(keys, store.KeyCustomers)
		}
		s.persistLocked(ctx, keys...)
		sale = domain.CloneSale(sale)
		return nil
	})
	if err != nil {
		return domain.Sale{}, err
	}

	s.audit("finalize_sale", logrus.Fields{
		"sale_id":  sale.ID,
		"total":    sale.Total.StringFixed(2),
		"payment":  sale.PaymentMethod,
		"customer": sale.CustomerID,
	})
	return sale, nil
}

// ReverseSale restocks the sold items, retracts the charge of a credit sale
// and only then drops the sale record.
func (s *Service) ReverseSale(ctx context.Context, saleID string) error {
	var reversed domain.Sale
	err := s.run(ctx, OpReverseSale, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		idx := s.state.FindSale(saleID)
		if idx < 0 {
			return fmt.Errorf("sale %s: %w", saleID, ErrNotFound)
		}
		reversed = s.state.Sales[idx]

		ledger.ReverseSaleConsumption(s.state.Products, reversed.Items)
		keys := []string{store.KeyProducts, store.KeySales}
		if reversed.PaymentMethod.IsCreditAccount() && reversed.CustomerID != "" {
			if cIdx := s.state.FindCustomer(reversed.CustomerID); cIdx >= 0 {
				ledger.RetractCredit(&s.state.Customers[cIdx], reversed.Total)
				keys = append(keys, store.KeyCustomers)
			}
		}
		s.state.Sales = append(s.state.Sales[:idx:idx], s.state.Sales[idx+1:]...)

		s.persistLocked(ctx, keys...)
		return nil
	})
	if err != nil {
		return err
	}

	s.audit("reverse_sale", logrus.Fields{"sale_id": saleID, "total": reversed.Total.StringFixed(2)})
	return nil
}

// ListSales returns the sales of the period, newest first.
func (s *Service) ListSales(period domain.Period) []domain.Sale {
	s.mu.Lock()
	defer s.mu.Unlock()

	sales := make([]domain.Sale, 0)
	for _, sale := range s.state.Sales {
		if period.Contains(sale.Date) {
			sales = append(sales, domain.CloneSale(sale))
		}
	}
	sort.SliceStable(sales, func(i, j int) bool { return sales[i].Date.After(sales[j].Date) })
	return sales
}
