package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"mercadinho/backend/internal/domain"
	"mercadinho/backend/internal/extraction"
	"mercadinho/backend/internal/guard"
	"mercadinho/backend/internal/logger"
	"mercadinho/backend/internal/report"
	"mercadinho/backend/internal/service"
	"mercadinho/backend/internal/store/memory"
)

type fakeExtractor struct {
	extraction.Disabled
	expense domain.ScannedExpense
}

func (f fakeExtractor) ExtractExpense(context.Context, []byte, string) (domain.ScannedExpense, error) {
	return f.expense, nil
}

// newTestAPI builds a full API over the seeded in-memory store and a real
// Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) (*API, *guard.Local) {
	t.Helper()

	g := guard.NewLocal()
	svc, err := service.New(context.Background(), service.Options{
		KV:        memory.NewSeeded("t:"),
		KeyPrefix: "t:",
		Guard:     g,
		Extractor: fakeExtractor{expense: domain.ScannedExpense{
			Description: "Conta de Água",
			Amount:      decimal.RequireFromString("89.90"),
			DueDate:     "2026-03-20",
			Type:        domain.ExpenseFixed,
		}},
		Logger:   logger.Discard(),
		Location: time.UTC,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return New(svc, "*", logger.Discard()), g
}

func doJSON(t *testing.T, handler http.Handler, method string, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dest); err != nil {
		t.Fatalf("decode body: %v (%s)", err, rec.Body.String())
	}
}

func TestHandleHealth(t *testing.T) {
	api, _ := newTestAPI(t)
	rec := doJSON(t, api.Handler(), http.MethodGet, "/healthz", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	decodeBody(t, rec, &body)
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("expected security headers")
	}
}

func TestCheckoutFlow(t *testing.T) {
	api, _ := newTestAPI(t)
	handler := api.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/cart/items", map[string]any{"productId": "1", "quantity": 2})
	if rec.Code != http.StatusOK {
		t.Fatalf("add to cart: %d %s", rec.Code, rec.Body.String())
	}
	var cart domain.CartResponse
	decodeBody(t, rec, &cart)
	if !cart.Total.Equal(decimal.RequireFromString("49.80")) {
		t.Fatalf("expected cart total 49.80, got %s", cart.Total)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/sales/finalize", map[string]any{"paymentMethod": "Fiado", "customerId": "c2"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("finalize: %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Sale domain.Sale `json:"sale"`
	}
	decodeBody(t, rec, &created)
	if created.Sale.CustomerID != "c2" || len(created.Sale.Items) != 1 {
		t.Fatalf("unexpected sale %+v", created.Sale)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/customers", nil)
	var customers struct {
		Customers []domain.Customer `json:"customers"`
	}
	decodeBody(t, rec, &customers)
	for _, c := range customers.Customers {
		if c.ID == "c2" && !c.CurrentDebt.Equal(decimal.RequireFromString("49.80")) {
			t.Fatalf("expected c2 debt 49.80, got %s", c.CurrentDebt)
		}
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/v1/sales/"+created.Sale.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("reverse: %d %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, handler, http.MethodDelete, "/api/v1/sales/"+created.Sale.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second reversal, got %d", rec.Code)
	}
}

func TestFinalizeErrorsMapToStatus(t *testing.T) {
	api, g := newTestAPI(t)
	handler := api.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/sales/finalize", map[string]any{"paymentMethod": "PIX"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for empty cart, got %d", rec.Code)
	}

	doJSON(t, handler, http.MethodPost, "/api/v1/cart/items", map[string]any{"productId": "1", "quantity": 20})
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/sales/finalize", map[string]any{"paymentMethod": "Fiado", "customerId": "c3"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 over credit limit, got %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/sales/finalize", map[string]any{"paymentMethod": "Fiado"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 without customer, got %d", rec.Code)
	}

	release, err := g.Acquire(context.Background(), service.OpFinalizeSale)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/status", nil)
	var status domain.StatusResponse
	decodeBody(t, rec, &status)
	if len(status.Busy) != 1 || status.Busy[0] != service.OpFinalizeSale {
		t.Fatalf("expected busy finalize, got %v", status.Busy)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/sales/finalize", map[string]any{"paymentMethod": "PIX"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 while busy, got %d", rec.Code)
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	api, _ := newTestAPI(t)
	rec := doJSON(t, api.Handler(), http.MethodPost, "/api/v1/customers", map[string]any{"name": "Ana", "creditLimit": 100, "role": "admin"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRegisterPaymentReportsDiscardedExcess(t *testing.T) {
	api, _ := newTestAPI(t)
	rec := doJSON(t, api.Handler(), http.MethodPost, "/api/v1/customers/c1/payments", map[string]any{"amount": 200})
	if rec.Code != http.StatusOK {
		t.Fatalf("payment: %d %s", rec.Code, rec.Body.String())
	}
	var result domain.PaymentResult
	decodeBody(t, rec, &result)
	if !result.Applied.Equal(decimal.NewFromInt(150)) || !result.Discarded.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestDeleteCustomerWithDebtConflicts(t *testing.T) {
	api, _ := newTestAPI(t)
	rec := doJSON(t, api.Handler(), http.MethodDelete, "/api/v1/customers/c1", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestExpenseToggle(t *testing.T) {
	api, _ := newTestAPI(t)
	handler := api.Handler()

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/expenses/e1/toggle-paid", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle: %d %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Expense domain.Expense `json:"expense"`
	}
	decodeBody(t, rec, &body)
	if !body.Expense.IsPaid {
		t.Fatalf("expected expense to be paid")
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/expenses?type=Outro", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown type, got %d", rec.Code)
	}
}

func TestScanExpenseUpload(t *testing.T) {
	api, _ := newTestAPI(t)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", "conta.jpg")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write([]byte{0xff, 0xd8, 0xff, 0xe0})
	_ = form.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan/expense", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("scan: %d %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Expense domain.ScannedExpense `json:"expense"`
	}
	decodeBody(t, rec, &body)
	if body.Expense.Description != "Conta de Água" || body.Expense.DueDate != "2026-03-20" {
		t.Fatalf("unexpected expense %+v", body.Expense)
	}
}

func TestScanInvoiceWithoutExtractorIsBadGateway(t *testing.T) {
	api, _ := newTestAPI(t)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, _ := form.CreateFormFile("file", "nf.pdf")
	_, _ = part.Write([]byte("%PDF-1.4"))
	_ = form.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scan/invoice", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestRestoreRequiresConfirmation(t *testing.T) {
	api, _ := newTestAPI(t)
	handler := api.Handler()

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/backup/export", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export: %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "mercadinho-backup.json") {
		t.Fatalf("expected attachment header, got %q", rec.Header().Get("Content-Disposition"))
	}
	exported := rec.Body.Bytes()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/backup/restore", bytes.NewReader(exported))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusPreconditionRequired {
		t.Fatalf("expected 428 without confirm, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/backup/restore?confirm=true", strings.NewReader(`{"products":[]}`))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid document, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/backup/restore?confirm=true", bytes.NewReader(exported))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("restore: %d %s", rec.Code, rec.Body.String())
	}
	var resp domain.RestoreResponse
	decodeBody(t, rec, &resp)
	if resp.Products != 5 || resp.Customers != 3 {
		t.Fatalf("unexpected counts %+v", resp)
	}
}

func TestCloudBackupDisabled(t *testing.T) {
	api, _ := newTestAPI(t)
	rec := doJSON(t, api.Handler(), http.MethodPost, "/api/v1/backup/cloud", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestDashboardAndReport(t *testing.T) {
	api, _ := newTestAPI(t)
	handler := api.Handler()

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/dashboard?from=2026-03-20&to=2026-03-01", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for reversed period, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/dashboard", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard: %d", rec.Code)
	}
	var dash domain.Dashboard
	decodeBody(t, rec, &dash)
	if !dash.OutstandingDebt.Equal(decimal.NewFromInt(230)) {
		t.Fatalf("expected outstanding debt 230, got %s", dash.OutstandingDebt)
	}
	if len(dash.LowStock) != 2 {
		t.Fatalf("expected two low stock products, got %d", len(dash.LowStock))
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/reports/export.xlsx", nil)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != report.ContentType {
		t.Fatalf("report: %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Fatalf("expected a zip container")
	}
}

func TestUnknownMethod(t *testing.T) {
	api, _ := newTestAPI(t)
	rec := doJSON(t, api.Handler(), http.MethodPut, "/api/v1/products", map[string]any{})
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
