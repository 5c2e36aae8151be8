package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"mercadinho/backend/internal/domain"
	"mercadinho/backend/internal/ledger"
	"mercadinho/backend/internal/store"
	"mercadinho/backend/internal/xid"
)

// ListProducts returns the catalog sorted by name, optionally filtered by a
// case-insensitive name fragment.
func (s *Service) ListProducts(search string) []domain.Product {
	search = strings.ToLower(strings.TrimSpace(search))

	s.mu.Lock()
	defer s.mu.Unlock()

	products := make([]domain.Product, 0, len(s.state.Products))
	for _, p := range s.state.Products {
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		products = append(products, domain.CloneProduct(p))
	}
	sort.SliceStable(products, func(i, j int) bool {
		return strings.ToLower(products[i].Name) < strings.ToLower(products[j].Name)
	})
	return products
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Category == "" {
		req.Category = domain.CategoryOutros
	}
	if err := domain.Validate(req); err != nil {
		return domain.Product{}, err
	}

	now := s.now().UTC()
	product := domain.Product{
		ID:          xid.New("p"),
		Name:        req.Name,
		Category:    req.Category,
		CostPrice:   req.CostPrice,
		SalePrice:   req.SalePrice,
		Stock:       req.Stock,
		MinStock:    req.MinStock,
		LastUpdated: &now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkNameFreeLocked(product.Name, ""); err != nil {
		return domain.Product{}, err
	}
	s.state.Products = append(s.state.Products, product)
	s.persistLocked(ctx, store.KeyProducts)

	s.audit("product_create", logrus.Fields{"product_id": product.ID, "stock": product.Stock})
	return domain.CloneProduct(product), nil
}

func (s *Service) UpdateProduct(ctx context.Context, productID string, req domain.ProductUpdateRequest) (domain.Product, error) {
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
	}
	if err := domain.Validate(req); err != nil {
		return domain.Product{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.state.FindProduct(productID)
	if idx < 0 {
		return domain.Product{}, fmt.Errorf("product %s: %w", productID, ErrNotFound)
	}

	updated := domain.CloneProduct(s.state.Products[idx])
	if req.Name != nil {
		if err := s.checkNameFreeLocked(*req.Name, productID); err != nil {
			return domain.Product{}, err
		}
		updated.Name = *req.Name
	}
	if req.Category != nil {
		updated.Category = *req.Category
	}
	if req.CostPrice != nil {
		updated.CostPrice = *req.CostPrice
	}
	if req.SalePrice != nil {
		updated.SalePrice = *req.SalePrice
	}
	if req.Stock != nil {
		updated.Stock = *req.Stock
	}
	if req.MinStock != nil {
		updated.MinStock = *req.MinStock
	}
	now := s.now().UTC()
	updated.LastUpdated = &now

	s.state.Products[idx] = updated
	s.persistLocked(ctx, store.KeyProducts)
	return domain.CloneProduct(updated), nil
}

// DeleteProduct removes the product from the catalog and the cart. Past
// sales keep their own copy of the line.
func (s *Service) DeleteProduct(ctx context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.state.FindProduct(productID)
	if idx < 0 {
		return fmt.Errorf("product %s: %w", productID, ErrNotFound)
	}
	s.state.Products = append(s.state.Products[:idx:idx], s.state.Products[idx+1:]...)
	if line := s.cartLineLocked(productID); line >= 0 {
		s.cart = append(s.cart[:line], s.cart[line+1:]...)
	}
	s.persistLocked(ctx, store.KeyProducts)

	s.audit("product_delete", logrus.Fields{"product_id": productID})
	return nil
}

// checkNameFreeLocked rejects a name already used by another product. exceptID
// lets a product keep or recase its own name.
func (s *Service) checkNameFreeLocked(name string, exceptID string) error {
	idx := ledger.FindByName(s.state.Products, name)
	if idx < 0 || s.state.Products[idx].ID == exceptID {
		return nil
	}
	return domain.Invalid("name", fmt.Sprintf("is already used by product %s (%s)", s.state.Products[idx].ID, s.state.Products[idx].Name))
}
