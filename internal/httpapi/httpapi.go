package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"mercadinho/backend/internal/backup"
	"mercadinho/backend/internal/domain"
	"mercadinho/backend/internal/extraction"
	"mercadinho/backend/internal/guard"
	"mercadinho/backend/internal/ledger"
	"mercadinho/backend/internal/logger"
	"mercadinho/backend/internal/service"
	"mercadinho/backend/internal/snapshot"
)

const (
	maxBodyBytes   = 32 << 20
	maxUploadBytes = 16 << 20
)

type API struct {
	service       *service.Service
	allowedOrigin string
	logger        logrus.FieldLogger
}

func New(svc *service.Service, allowedOrigin string, logger logrus.FieldLogger) *API {
	return &API{
		service:       svc,
		allowedOrigin: allowedOrigin,
		logger:        logger,
	}
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/v1/status", a.handleStatus)

	mux.HandleFunc("/api/v1/products", a.handleProducts)
	mux.HandleFunc("/api/v1/products/", a.handleProductActions)

	mux.HandleFunc("/api/v1/cart", a.handleCart)
	mux.HandleFunc("/api/v1/cart/items", a.handleCartItems)
	mux.HandleFunc("/api/v1/cart/items/", a.handleCartItemActions)

	mux.HandleFunc("/api/v1/sales", a.handleSales)
	mux.HandleFunc("/api/v1/sales/finalize", a.handleFinalizeSale)
	mux.HandleFunc("/api/v1/sales/", a.handleSaleActions)

	mux.HandleFunc("/api/v1/customers", a.handleCustomers)
	mux.HandleFunc("/api/v1/customers/", a.handleCustomerActions)

	mux.HandleFunc("/api/v1/expenses", a.handleExpenses)
	mux.HandleFunc("/api/v1/expenses/", a.handleExpenseActions)

	mux.HandleFunc("/api/v1/inventory/import", a.handleImportStock)
	mux.HandleFunc("/api/v1/scan/invoice", a.handleScanInvoice)
	mux.HandleFunc("/api/v1/scan/expense", a.handleScanExpense)
	mux.HandleFunc("/api/v1/scan/product", a.handleScanProduct)

	mux.HandleFunc("/api/v1/dashboard", a.handleDashboard)
	mux.HandleFunc("/api/v1/insights", a.handleInsights)
	mux.HandleFunc("/api/v1/reports/export.xlsx", a.handleReportExport)
	mux.HandleFunc("/api/v1/settings", a.handleSettings)

	mux.HandleFunc("/api/v1/backup/export", a.handleBackupExport)
	mux.HandleFunc("/api/v1/backup/restore", a.handleBackupRestore)
	mux.HandleFunc("/api/v1/backup/cloud", a.handleCloudBackup)
	mux.HandleFunc("/api/v1/backup/cloud/restore", a.handleCloudRestore)

	return a.withMiddleware(mux)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, a.service.Status())
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		a.logger.WithFields(logrus.Fields{
			"module":     "httpapi",
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     rec.status,
			"elapsed_ms": time.Since(startedAt).Milliseconds(),
		}).Info("request served")
	})
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, snapshot.ErrInvalidBackupFormat):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrConfirmationRequired):
		return http.StatusPreconditionRequired
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, guard.ErrBusy),
		errors.Is(err, ledger.ErrInsufficientStock),
		errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrCustomerHasDebt):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrCreditLimitExceeded), errors.Is(err, service.ErrMissingCustomer):
		return http.StatusUnprocessableEntity
	case errors.Is(err, extraction.ErrExternalService):
		return http.StatusBadGateway
	case errors.Is(err, backup.ErrBackupDisabled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		logger.LogError(a.logger, "httpapi", "fail", r.Method+" "+r.URL.Path, nil, err)
	}
	writeError(w, status, err)
}

// pathTail returns the part of the path after prefix split on "/".
func pathTail(r *http.Request, prefix string) []string {
	tail := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	if tail == "" {
		return nil
	}
	return strings.Split(tail, "/")
}

func (a *API) periodFromQuery(r *http.Request) (domain.Period, error) {
	q := r.URL.Query()
	return a.service.Period(strings.TrimSpace(q.Get("from")), strings.TrimSpace(q.Get("to")))
}

func confirmed(r *http.Request) bool {
	ok, err := strconv.ParseBool(r.URL.Query().Get("confirm"))
	return err == nil && ok
}

// readUpload returns the multipart "file" field and its content type.
func readUpload(r *http.Request) ([]byte, string, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, "", domain.Invalid("file", "must be sent as multipart form data")
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", domain.Invalid("file", "is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	return data, mimeType, nil
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	return nil
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx bodies stay generic; the error itself goes to the log.
	msg := err.Error()
	if status >= 500 && status != http.StatusBadGateway && status != http.StatusServiceUnavailable {
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeAttachment(w http.ResponseWriter, contentType string, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
