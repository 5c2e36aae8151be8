// Package extraction turns photos of invoices, bills and products into
// candidate records using a generative vision model.
package extraction

import (
	"context"
	"errors"
	"fmt"

	"mercadinho/backend/internal/domain"
)

var ErrExternalService = errors.New("external service error")

type Extractor interface {
	ExtractProducts(ctx context.Context, image []byte, mimeType string) ([]domain.ScannedProduct, error)
	ExtractExpense(ctx context.Context, image []byte, mimeType string) (domain.ScannedExpense, error)
	// IdentifyProduct returns nil when no catalog entry matches the photo.
	IdentifyProduct(ctx context.Context, image []byte, mimeType string, catalog []domain.Product) (*domain.Product, error)
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Disabled is used when no API key is configured.
type Disabled struct{}

var errDisabled = fmt.Errorf("%w: extraction service is not configured", ErrExternalService)

func (Disabled) ExtractProducts(context.Context, []byte, string) ([]domain.ScannedProduct, error) {
	return nil, errDisabled
}

func (Disabled) ExtractExpense(context.Context, []byte, string) (domain.ScannedExpense, error) {
	return domain.ScannedExpense{}, errDisabled
}

func (Disabled) IdentifyProduct(context.Context, []byte, string, []domain.Product) (*domain.Product, error) {
	return nil, errDisabled
}

func (Disabled) GenerateText(context.Context, string) (string, error) {
	return "", errDisabled
}
