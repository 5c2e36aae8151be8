package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercadinho/backend/internal/domain"
	"mercadinho/backend/internal/logger"
)

func geminiServer(t *testing.T, status int, answer string, inspect func(generateRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-goog-api-key"))

		var req generateRequest
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &req))
		if inspect != nil {
			inspect(req)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"code":500,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`))
			return
		}
		resp := map[string]any{
			"candidates": []any{
				map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": answer}}}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestGemini(url string) *Gemini {
	g := NewGemini("secret", "test-model", url, logger.Discard())
	g.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }
	return g
}

func TestExtractProductsParsesInvoice(t *testing.T) {
	answer := `[{"name":" Cerveja Latão ","costPrice":5.00,"quantity":12.0,"category":"Bebidas"},
		{"name":"Sabão em pó","costPrice":0,"totalPrice":30,"quantity":3,"category":"Limpeza"}]`

	srv := geminiServer(t, http.StatusOK, answer, func(req generateRequest) {
		require.Len(t, req.Contents, 1)
		require.Len(t, req.Contents[0].Parts, 2)
		assert.Contains(t, req.Contents[0].Parts[0].Text, "Bebidas, Alimentos, Limpeza, Higiene, Outros")
		assert.Equal(t, "application/pdf", req.Contents[0].Parts[1].InlineData.MimeType)
		require.NotNil(t, req.GenerationConfig)
		assert.Equal(t, "application/json", req.GenerationConfig.ResponseMimeType)
		assert.Equal(t, "ARRAY", req.GenerationConfig.ResponseSchema["type"])
	})

	items, err := newTestGemini(srv.URL).ExtractProducts(context.Background(), []byte("%PDF-1.4"), "application/pdf")
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Cerveja Latão", items[0].Name)
	assert.Equal(t, 12, items[0].Quantity)
	assert.True(t, items[0].CostPrice.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, domain.CategoryBebidas, items[0].Category)

	assert.True(t, items[1].TotalPrice.Equal(decimal.NewFromInt(30)))
	assert.True(t, items[1].CostPrice.IsZero())
}

func TestExtractExpenseDefaults(t *testing.T) {
	srv := geminiServer(t, http.StatusOK, `{"description":"Conta de Luz","amount":231.9,"dueDate":"","type":"Energia"}`, nil)

	expense, err := newTestGemini(srv.URL).ExtractExpense(context.Background(), []byte("img"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "Conta de Luz", expense.Description)
	assert.Equal(t, "2026-03-10", expense.DueDate)
	assert.Equal(t, domain.ExpenseFixed, expense.Type)
	assert.True(t, expense.Amount.Equal(decimal.RequireFromString("231.9")))
}

func TestExtractExpenseStockType(t *testing.T) {
	srv := geminiServer(t, http.StatusOK, `{"description":"Distribuidora X","amount":900,"dueDate":"2026-04-01","type":"Estoque"}`, nil)

	expense, err := newTestGemini(srv.URL).ExtractExpense(context.Background(), []byte("img"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, domain.ExpenseStock, expense.Type)
	assert.Equal(t, "2026-04-01", expense.DueDate)
}

func TestIdentifyProduct(t *testing.T) {
	catalog := []domain.Product{
		{ID: "1", Name: "Arroz Tipo 1 5kg"},
		{ID: "2", Name: "Feijão Carioca 1kg"},
	}

	t.Run("match", func(t *testing.T) {
		srv := geminiServer(t, http.StatusOK, `{"productId":"2"}`, func(req generateRequest) {
			assert.Contains(t, req.Contents[0].Parts[0].Text, "Feijão Carioca 1kg")
		})
		product, err := newTestGemini(srv.URL).IdentifyProduct(context.Background(), []byte("img"), "image/jpeg", catalog)
		require.NoError(t, err)
		require.NotNil(t, product)
		assert.Equal(t, "2", product.ID)
	})

	t.Run("no match", func(t *testing.T) {
		srv := geminiServer(t, http.StatusOK, `{"productId":null}`, nil)
		product, err := newTestGemini(srv.URL).IdentifyProduct(context.Background(), []byte("img"), "image/jpeg", catalog)
		require.NoError(t, err)
		assert.Nil(t, product)
	})

	t.Run("unknown id", func(t *testing.T) {
		srv := geminiServer(t, http.StatusOK, `{"productId":"99"}`, nil)
		product, err := newTestGemini(srv.URL).IdentifyProduct(context.Background(), []byte("img"), "image/jpeg", catalog)
		require.NoError(t, err)
		assert.Nil(t, product)
	})
}

func TestGenerateTextHasNoSchema(t *testing.T) {
	srv := geminiServer(t, http.StatusOK, "  Aumente o preço do arroz.  ", func(req generateRequest) {
		assert.Nil(t, req.GenerationConfig)
		assert.Len(t, req.Contents[0].Parts, 1)
	})

	text, err := newTestGemini(srv.URL).GenerateText(context.Background(), "dicas")
	require.NoError(t, err)
	assert.Equal(t, "Aumente o preço do arroz.", text)
}

func TestUpstreamErrorsWrapExternalService(t *testing.T) {
	srv := geminiServer(t, http.StatusInternalServerError, "", nil)

	_, err := newTestGemini(srv.URL).ExtractProducts(context.Background(), []byte("img"), "image/jpeg")
	require.ErrorIs(t, err, ErrExternalService)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestMalformedAnswerWrapsExternalService(t *testing.T) {
	srv := geminiServer(t, http.StatusOK, "not json", nil)

	_, err := newTestGemini(srv.URL).ExtractExpense(context.Background(), []byte("img"), "image/jpeg")
	require.ErrorIs(t, err, ErrExternalService)
}

func TestDisabledExtractor(t *testing.T) {
	var ex Extractor = Disabled{}
	_, err := ex.ExtractProducts(context.Background(), nil, "")
	require.ErrorIs(t, err, ErrExternalService)
	_, err = ex.GenerateText(context.Background(), "x")
	require.ErrorIs(t, err, ErrExternalService)
}

func TestPrepareImageShrinksLargePhotos(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 400, 200))
	for x := 0; x < 400; x++ {
		img.Set(x, x%200, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	out, mime := prepareImage(buf.Bytes(), "image/png", 100)
	assert.Equal(t, "image/jpeg", mime)

	decoded, _, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 100, decoded.Bounds().Dx())
	assert.Equal(t, 50, decoded.Bounds().Dy())

	small, mime := prepareImage(buf.Bytes(), "image/png", 1000)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, buf.Bytes(), small)
}

func TestPrepareImagePassesThroughDocuments(t *testing.T) {
	out, mime := prepareImage([]byte("%PDF"), "application/pdf", 100)
	assert.Equal(t, "application/pdf", mime)
	assert.Equal(t, []byte("%PDF"), out)
}
