package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"mercadinho/backend/internal/domain"
)

type Gemini struct {
	apiKey       string
	model        string
	baseURL      string
	client       *http.Client
	logger       logrus.FieldLogger
	maxImageSide int
	now          func() time.Time
}

type GeminiOption func(*Gemini)

func WithHTTPClient(client *http.Client) GeminiOption {
	return func(g *Gemini) {
		g.client = client
	}
}

func WithMaxImageSide(pixels int) GeminiOption {
	return func(g *Gemini) {
		g.maxImageSide = pixels
	}
}

func NewGemini(apiKey string, model string, baseURL string, logger logrus.FieldLogger, opts ...GeminiOption) *Gemini {
	g := &Gemini{
		apiKey:       apiKey,
		model:        model,
		baseURL:      strings.TrimRight(baseURL, "/"),
		client:       &http.Client{Timeout: 60 * time.Second},
		logger:       logger,
		maxImageSide: defaultMaxImageSide,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

const invoicePrompt = `Extraia a lista de produtos desta Nota Fiscal (NF).
REGRAS CRÍTICAS DE CÁLCULO:
1. 'quantity': Identifique a quantidade total de unidades. Se constar "45UN", a quantidade é 45.
2. 'costPrice': Este deve ser o VALOR UNITÁRIO de custo. Se a NF apresentar apenas o VALOR TOTAL do item, divida esse valor total pela quantidade para encontrar o preço unitário.
Exemplo: Se a NF diz "Cerveja Latão 12UN - Total R$ 60,00", retorne quantity: 12 e costPrice: 5.00.

Campos necessários:
- 'name': Nome descritivo do produto.
- 'costPrice': Preço de custo UNITÁRIO (numérico).
- 'quantity': Quantidade total comprada (numérico).
- 'category': Uma destas categorias: %s.

Retorne APENAS um array JSON válido.`

const expensePrompt = `Analise este arquivo de conta (luz, água, aluguel, NF de fornecedor, etc).
Extraia os seguintes campos:
- 'description': O que é a despesa (ex: Conta de Luz, Fornecedor X).
- 'amount': Valor total a pagar.
- 'dueDate': Data de vencimento no formato YYYY-MM-DD. Se não houver, use a data de hoje.
- 'type': Identifique se é 'Fixa' ou 'Estoque'. NFs de mercadoria são 'Estoque'.

Retorne APENAS o JSON.`

const identifyPrompt = `Analise a imagem deste produto de supermercado.
Temos a seguinte lista de produtos cadastrados no estoque:
%s

Qual produto da lista melhor corresponde à imagem?
Retorne o ID do produto ou nulo se for impossível identificar.
Retorne APENAS o JSON: {"productId": "ID_AQUI"} ou {"productId": null}`

func (g *Gemini) ExtractProducts(ctx context.Context, image []byte, mimeType string) ([]domain.ScannedProduct, error) {
	categories := []string{
		string(domain.CategoryBebidas), string(domain.CategoryAlimentos), string(domain.CategoryLimpeza),
		string(domain.CategoryHigiene), string(domain.CategoryOutros),
	}
	schema := map[string]any{
		"type": "ARRAY",
		"items": map[string]any{
			"type": "OBJECT",
			"properties": map[string]any{
				"name":       map[string]any{"type": "STRING"},
				"costPrice":  map[string]any{"type": "NUMBER"},
				"totalPrice": map[string]any{"type": "NUMBER"},
				"quantity":   map[string]any{"type": "NUMBER"},
				"category":   map[string]any{"type": "STRING"},
			},
			"required": []string{"name", "costPrice", "quantity"},
		},
	}

	text, err := g.generate(ctx, fmt.Sprintf(invoicePrompt, strings.Join(categories, ", ")), image, mimeType, schema)
	if err != nil {
		return nil, err
	}

	var raw []struct {
		Name       string          `json:"name"`
		CostPrice  decimal.Decimal `json:"costPrice"`
		TotalPrice decimal.Decimal `json:"totalPrice"`
		Quantity   decimal.Decimal `json:"quantity"`
		Category   string          `json:"category"`
	}
	if err := json.Unmarshal([]byte(orDefault(text, "[]")), &raw); err != nil {
		return nil, fmt.Errorf("%w: unreadable invoice response: %v", ErrExternalService, err)
	}

	items := make([]domain.ScannedProduct, 0, len(raw))
	for _, r := range raw {
		items = append(items, domain.ScannedProduct{
			Name:       strings.TrimSpace(r.Name),
			CostPrice:  r.CostPrice,
			TotalPrice: r.TotalPrice,
			Quantity:   int(r.Quantity.Round(0).IntPart()),
			Category:   domain.Category(strings.TrimSpace(r.Category)),
		})
	}
	return items, nil
}

func (g *Gemini) ExtractExpense(ctx context.Context, image []byte, mimeType string) (domain.ScannedExpense, error) {
	schema := map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"description": map[string]any{"type": "STRING"},
			"amount":      map[string]any{"type": "NUMBER"},
			"dueDate":     map[string]any{"type": "STRING"},
			"type": map[string]any{
				"type":        "STRING",
				"description": "Deve ser exatamente 'Fixa' ou 'Estoque'.",
			},
		},
		"required": []string{"description", "amount", "dueDate", "type"},
	}

	text, err := g.generate(ctx, expensePrompt, image, mimeType, schema)
	if err != nil {
		return domain.ScannedExpense{}, err
	}

	var raw struct {
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		DueDate     string          `json:"dueDate"`
		Type        string          `json:"type"`
	}
	if err := json.Unmarshal([]byte(orDefault(text, "{}")), &raw); err != nil {
		return domain.ScannedExpense{}, fmt.Errorf("%w: unreadable bill response: %v", ErrExternalService, err)
	}

	expense := domain.ScannedExpense{
		Description: strings.TrimSpace(raw.Description),
		Amount:      raw.Amount,
		DueDate:     strings.TrimSpace(raw.DueDate),
		Type:        domain.ExpenseFixed,
	}
	if domain.ExpenseType(raw.Type) == domain.ExpenseStock {
		expense.Type = domain.ExpenseStock
	}
	if _, err := time.Parse("2006-01-02", expense.DueDate); err != nil {
		expense.DueDate = g.now().Format("2006-01-02")
	}
	return expense, nil
}

func (g *Gemini) IdentifyProduct(ctx context.Context, image []byte, mimeType string, catalog []domain.Product) (*domain.Product, error) {
	type entry struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	list := make([]entry, 0, len(catalog))
	for _, p := range catalog {
		list = append(list, entry{ID: p.ID, Name: p.Name})
	}
	listJSON, err := json.Marshal(list)
	if err != nil {
		return nil, err
	}

	schema := map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"productId": map[string]any{"type": "STRING", "nullable": true},
		},
	}
	text, err := g.generate(ctx, fmt.Sprintf(identifyPrompt, listJSON), image, mimeType, schema)
	if err != nil {
		return nil, err
	}

	var raw struct {
		ProductID *string `json:"productId"`
	}
	if err := json.Unmarshal([]byte(orDefault(text, "{}")), &raw); err != nil {
		return nil, fmt.Errorf("%w: unreadable identification response: %v", ErrExternalService, err)
	}
	if raw.ProductID == nil {
		return nil, nil
	}
	for _, p := range catalog {
		if p.ID == *raw.ProductID {
			match := domain.CloneProduct(p)
			return &match, nil
		}
	}
	return nil, nil
}

func (g *Gemini) GenerateText(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, prompt, nil, "", nil)
}

func (g *Gemini) generate(ctx context.Context, prompt string, image []byte, mimeType string, schema map[string]any) (string, error) {
	parts := []part{{Text: prompt}}
	if len(image) > 0 {
		data, mime := prepareImage(image, mimeType, g.maxImageSide)
		parts = append(parts, part{InlineData: &inlineData{
			MimeType: mime,
			Data:     base64.StdEncoding.EncodeToString(data),
		}})
	}

	reqBody := generateRequest{Contents: []content{{Role: "user", Parts: parts}}}
	if schema != nil {
		reqBody.GenerationConfig = &generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   schema,
		}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	startedAt := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExternalService, err)
	}

	g.logger.WithFields(logrus.Fields{
		"module":     "extraction",
		"model":      g.model,
		"status":     resp.StatusCode,
		"with_image": len(image) > 0,
		"elapsed_ms": time.Since(startedAt).Milliseconds(),
	}).Debug("gemini request finished")

	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("%w: status %d: %v", ErrExternalService, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		if decoded.Error != nil && decoded.Error.Message != "" {
			msg = decoded.Error.Message
		}
		return "", fmt.Errorf("%w: status %d: %s", ErrExternalService, resp.StatusCode, msg)
	}
	if len(decoded.Candidates) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrExternalService)
	}

	var text strings.Builder
	for _, p := range decoded.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	return strings.TrimSpace(text.String()), nil
}

func orDefault(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
