// Package insights asks the text model for a short business summary of the
// store and caches the answer per data window.
package insights

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"mercadinho/backend/internal/cache"
	"mercadinho/backend/internal/domain"
)

const FallbackText = "Não foi possível gerar insights no momento."

type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

type Engine struct {
	generator TextGenerator
	cache     cache.InsightsCache
	cacheTTL  time.Duration
	keyPrefix string
	logger    logrus.FieldLogger
}

func NewEngine(generator TextGenerator, cacheStore cache.InsightsCache, cacheTTL time.Duration, keyPrefix string, logger logrus.FieldLogger) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopInsightsCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 15 * time.Minute
	}

	return &Engine{
		generator: generator,
		cache:     cacheStore,
		cacheTTL:  cacheTTL,
		keyPrefix: keyPrefix,
		logger:    logger,
	}
}

type productLine struct {
	Name     string `json:"name"`
	Stock    int    `json:"stock"`
	MinStock int    `json:"minStock"`
	Margin   string `json:"margin"`
}

type summary struct {
	Products   []productLine
	SalesCount int
	SalesTotal decimal.Decimal
	Expenses   decimal.Decimal
}

// Generate never fails. Adapter errors produce FallbackText, which is not cached.
func (e *Engine) Generate(ctx context.Context, products []domain.Product, sales []domain.Sale, expenses []domain.Expense) domain.InsightsResponse {
	sum := summarize(products, sales, expenses)
	prompt := buildPrompt(sum)
	key := e.keyPrefix + "insights:" + digest(prompt)

	if cached, ok, err := e.cache.Get(ctx, key); err == nil && ok {
		cached.Cached = true
		return *cached
	} else if err != nil {
		e.logger.WithFields(logrus.Fields{"module": "insights", "error": err.Error()}).Warn("insights cache read failed")
	}

	text, err := e.generator.GenerateText(ctx, prompt)
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil {
			e.logger.WithFields(logrus.Fields{"module": "insights", "error": err.Error()}).Warn("insights generation failed")
		}
		return domain.InsightsResponse{Text: FallbackText}
	}

	resp := domain.InsightsResponse{Text: text}
	if err := e.cache.Set(ctx, key, &resp, e.cacheTTL); err != nil {
		e.logger.WithFields(logrus.Fields{"module": "insights", "error": err.Error()}).Warn("insights cache write failed")
	}
	return resp
}

func summarize(products []domain.Product, sales []domain.Sale, expenses []domain.Expense) summary {
	lines := make([]productLine, 0, len(products))
	for _, p := range products {
		lines = append(lines, productLine{
			Name:     p.Name,
			Stock:    p.Stock,
			MinStock: p.MinStock,
			Margin:   marginPercent(p).StringFixed(2) + "%",
		})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].Name < lines[j].Name })

	sum := summary{Products: lines, SalesCount: len(sales), SalesTotal: decimal.Zero, Expenses: decimal.Zero}
	for _, s := range sales {
		sum.SalesTotal = sum.SalesTotal.Add(s.Total)
	}
	for _, e := range expenses {
		sum.Expenses = sum.Expenses.Add(e.Amount)
	}
	return sum
}

// marginPercent is the margin over the sale price, zero for unpriced products.
func marginPercent(p domain.Product) decimal.Decimal {
	if !p.SalePrice.IsPositive() {
		return decimal.Zero
	}
	return p.SalePrice.Sub(p.CostPrice).Div(p.SalePrice).Mul(decimal.NewFromInt(100))
}

func buildPrompt(sum summary) string {
	productsJSON, _ := json.Marshal(sum.Products)

	var b strings.Builder
	b.WriteString("Analise os seguintes dados de um mini-mercado e forneça insights estratégicos (em português):\n\n")
	fmt.Fprintf(&b, "Produtos: %s\n", productsJSON)
	fmt.Fprintf(&b, "Vendas Totais: %d transações, Total: R$ %s\n", sum.SalesCount, sum.SalesTotal.StringFixed(2))
	fmt.Fprintf(&b, "Despesas: R$ %s\n\n", sum.Expenses.StringFixed(2))
	b.WriteString("Por favor, retorne um resumo com:\n")
	b.WriteString("1. Itens críticos de estoque.\n")
	b.WriteString("2. Produtos com margens baixas ou altas.\n")
	b.WriteString("3. Uma dica para aumentar a lucratividade este mês.\n")
	return b.String()
}

func digest(prompt string) string {
	hash := sha1.Sum([]byte(prompt))
	return hex.EncodeToString(hash[:])
}
