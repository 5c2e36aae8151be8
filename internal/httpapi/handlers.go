package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"mercadinho/backend/internal/domain"
	"mercadinho/backend/internal/report"
)

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"products": a.service.ListProducts(r.URL.Query().Get("q"))})
	case http.MethodPost:
		var req domain.ProductCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		product, err := a.service.CreateProduct(r.Context(), req)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"product": product})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleProductActions(w http.ResponseWriter, r *http.Request) {
	tail := pathTail(r, "/api/v1/products/")
	if len(tail) != 1 {
		writeError(w, http.StatusNotFound, errors.New("unknown product route"))
		return
	}
	productID := tail[0]

	switch r.Method {
	case http.MethodPatch:
		var req domain.ProductUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		updated, err := a.service.UpdateProduct(r.Context(), productID, req)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"product": updated})
	case http.MethodDelete:
		if err := a.service.DeleteProduct(r.Context(), productID); err != nil {
			a.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleCart(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, a.service.Cart())
	case http.MethodDelete:
		a.service.ClearCart()
		writeJSON(w, http.StatusOK, a.service.Cart())
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleCartItems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	var req domain.CartLineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cart, err := a.service.AddToCart(req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (a *API) handleCartItemActions(w http.ResponseWriter, r *http.Request) {
	tail := pathTail(r, "/api/v1/cart/items/")
	if len(tail) != 1 {
		writeError(w, http.StatusNotFound, errors.New("unknown cart route"))
		return
	}

	var (
		cart domain.CartResponse
		err  error
	)
	switch r.Method {
	case http.MethodPatch:
		var req domain.CartQuantityRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		cart, err = a.service.SetCartQuantity(tail[0], req)
	case http.MethodDelete:
		cart, err = a.service.RemoveFromCart(tail[0])
	default:
		writeMethodNotAllowed(w)
		return
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (a *API) handleSales(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	period, err := a.periodFromQuery(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sales": a.service.ListSales(period)})
}

func (a *API) handleFinalizeSale(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	var req domain.FinalizeSaleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sale, err := a.service.FinalizeSale(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"sale": sale})
}

func (a *API) handleSaleActions(w http.ResponseWriter, r *http.Request) {
	tail := pathTail(r, "/api/v1/sales/")
	if len(tail) != 1 {
		writeError(w, http.StatusNotFound, errors.New("unknown sale route"))
		return
	}
	if r.Method != http.MethodDelete {
		writeMethodNotAllowed(w)
		return
	}
	if err := a.service.ReverseSale(r.Context(), tail[0]); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleCustomers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"customers": a.service.ListCustomers()})
	case http.MethodPost:
		var req domain.CustomerCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		customer, err := a.service.CreateCustomer(r.Context(), req)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"customer": customer})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleCustomerActions(w http.ResponseWriter, r *http.Request) {
	tail := pathTail(r, "/api/v1/customers/")
	switch {
	case len(tail) == 2 && tail[1] == "payments":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		var req domain.PaymentRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		result, err := a.service.RegisterPayment(r.Context(), tail[0], req)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	case len(tail) == 1:
		switch r.Method {
		case http.MethodPatch:
			var req domain.CustomerUpdateRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			customer, err := a.service.UpdateCustomer(r.Context(), tail[0], req)
			if err != nil {
				a.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"customer": customer})
		case http.MethodDelete:
			if err := a.service.DeleteCustomer(r.Context(), tail[0]); err != nil {
				a.fail(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			writeMethodNotAllowed(w)
		}
	default:
		writeError(w, http.StatusNotFound, errors.New("unknown customer route"))
	}
}

func (a *API) handleExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		expenses, err := a.service.ListExpenses(domain.ExpenseType(strings.TrimSpace(r.URL.Query().Get("type"))))
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"expenses": expenses})
	case http.MethodPost:
		var req domain.ExpenseRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		expense, err := a.service.CreateExpense(r.Context(), req)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"expense": expense})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleExpenseActions(w http.ResponseWriter, r *http.Request) {
	tail := pathTail(r, "/api/v1/expenses/")
	switch {
	case len(tail) == 2 && tail[1] == "toggle-paid":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		expense, err := a.service.ToggleExpensePaid(r.Context(), tail[0])
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"expense": expense})
	case len(tail) == 1:
		switch r.Method {
		case http.MethodPatch:
			var req domain.ExpenseRequest
			if err := decodeJSON(r, &req); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			expense, err := a.service.UpdateExpense(r.Context(), tail[0], req)
			if err != nil {
				a.fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"expense": expense})
		case http.MethodDelete:
			if err := a.service.DeleteExpense(r.Context(), tail[0]); err != nil {
				a.fail(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			writeMethodNotAllowed(w)
		}
	default:
		writeError(w, http.StatusNotFound, errors.New("unknown expense route"))
	}
}

func (a *API) handleImportStock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	var req domain.ImportStockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := a.service.ImportStock(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleScanInvoice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	data, mimeType, err := readUpload(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	items, err := a.service.ScanInvoice(r.Context(), data, mimeType)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) handleScanExpense(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	data, mimeType, err := readUpload(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	expense, err := a.service.ScanExpense(r.Context(), data, mimeType)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"expense": expense})
}

func (a *API) handleScanProduct(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	data, mimeType, err := readUpload(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	product, err := a.service.IdentifyProduct(r.Context(), data, mimeType)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": product})
}

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	period, err := a.periodFromQuery(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.service.Dashboard(period))
}

func (a *API) handleInsights(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	period, err := a.periodFromQuery(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	resp, err := a.service.Insights(r.Context(), period)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleReportExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	period, err := a.periodFromQuery(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	data, err := a.service.ExportReport(period)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	filename := "relatorio-" + period.FromDate() + "-" + period.ToDate() + ".xlsx"
	writeAttachment(w, report.ContentType, filename, data)
}

func (a *API) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, a.service.Settings())
	case http.MethodPatch:
		var req domain.SettingsUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		settings, err := a.service.UpdateSettings(r.Context(), req)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleBackupExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	data, err := a.service.ExportSnapshot()
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeAttachment(w, "application/json", "mercadinho-backup.json", data)
}

// handleBackupRestore accepts the document as the raw body or as a
// multipart "file" field.
func (a *API) handleBackupRestore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var (
		raw []byte
		err error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		raw, _, err = readUpload(r)
	} else {
		raw, err = io.ReadAll(r.Body)
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}

	resp, err := a.service.RestoreSnapshot(r.Context(), raw, confirmed(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleCloudBackup(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := a.service.ListCloudBackups(r.Context())
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"backups": items})
	case http.MethodPost:
		uploaded, err := a.service.BackupToCloud(r.Context())
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"backup": uploaded})
	default:
		writeMethodNotAllowed(w)
	}
}

type cloudRestoreRequest struct {
	Name string `json:"name"`
}

// handleCloudRestore restores the named object; an empty body picks the newest.
func (a *API) handleCloudRestore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	var req cloudRestoreRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := a.service.RestoreFromCloud(r.Context(), strings.TrimSpace(req.Name), confirmed(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
