package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductCreateRequest struct {
	Name      string          `json:"name" validate:"required"`
	Category  Category        `json:"category" validate:"omitempty,enum"`
	CostPrice decimal.Decimal `json:"costPrice" validate:"gte=0"`
	SalePrice decimal.Decimal `json:"salePrice" validate:"gt=0"`
	Stock     int             `json:"stock" validate:"gte=0"`
	MinStock  int             `json:"minStock" validate:"gte=0"`
}

type ProductUpdateRequest struct {
	Name      *string          `json:"name,omitempty" validate:"omitempty,min=1"`
	Category  *Category        `json:"category,omitempty" validate:"omitempty,enum"`
	CostPrice *decimal.Decimal `json:"costPrice,omitempty" validate:"omitempty,gte=0"`
	SalePrice *decimal.Decimal `json:"salePrice,omitempty" validate:"omitempty,gt=0"`
	Stock     *int             `json:"stock,omitempty" validate:"omitempty,gte=0"`
	MinStock  *int             `json:"minStock,omitempty" validate:"omitempty,gte=0"`
}

type CartLineRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1"`
}

type CartQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=1"`
}

type CartResponse struct {
	Items     []SaleItem      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	TotalCost decimal.Decimal `json:"totalCost"`
}

type FinalizeSaleRequest struct {
	PaymentMethod PaymentMethod `json:"paymentMethod" validate:"enum"`
	CustomerID    string        `json:"customerId,omitempty"`
}

type CustomerCreateRequest struct {
	Name        string          `json:"name" validate:"required"`
	Phone       string          `json:"phone"`
	CreditLimit decimal.Decimal `json:"creditLimit" validate:"gt=0"`
}

type CustomerUpdateRequest struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,min=1"`
	Phone       *string          `json:"phone,omitempty"`
	CreditLimit *decimal.Decimal `json:"creditLimit,omitempty" validate:"omitempty,gt=0"`
}

type PaymentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"gt=0"`
}

type PaymentResult struct {
	Customer  Customer        `json:"customer"`
	Applied   decimal.Decimal `json:"applied"`
	Discarded decimal.Decimal `json:"discarded"`
}

type ExpenseRequest struct {
	Description string          `json:"description" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	DueDate     string          `json:"dueDate" validate:"required,datetime=2006-01-02"`
	Type        ExpenseType     `json:"type" validate:"omitempty,enum"`
}

type ImportStockRequest struct {
	Items           []ScannedProduct `json:"items" validate:"required,min=1"`
	MarginPercent   *decimal.Decimal `json:"marginPercent,omitempty" validate:"omitempty,gte=0"`
	RegisterExpense bool             `json:"registerExpense"`
}

type ImportStockResponse struct {
	Matched    int             `json:"matched"`
	Created    int             `json:"created"`
	Skipped    int             `json:"skipped"`
	TotalValue decimal.Decimal `json:"totalValue"`
	Products   []Product       `json:"products"`
	Expense    *Expense        `json:"expense,omitempty"`
}

type SettingsUpdateRequest struct {
	DefaultMarginPercent *decimal.Decimal `json:"defaultMarginPercent,omitempty" validate:"omitempty,gte=0"`
	PeriodStart          *string          `json:"periodStart,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PeriodEnd            *string          `json:"periodEnd,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type RestoreResponse struct {
	Products  int `json:"products"`
	Sales     int `json:"sales"`
	Expenses  int `json:"expenses"`
	Customers int `json:"customers"`
}

type CloudBackup struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ProductRotation struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

type DailySales struct {
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

type Dashboard struct {
	From             string                            `json:"from"`
	To               string                            `json:"to"`
	TotalSales       decimal.Decimal                   `json:"totalSales"`
	TotalProfit      decimal.Decimal                   `json:"totalProfit"`
	SalesCount       int                               `json:"salesCount"`
	PaidExpenses     decimal.Decimal                   `json:"paidExpenses"`
	PendingExpenses  decimal.Decimal                   `json:"pendingExpenses"`
	OutstandingDebt  decimal.Decimal                   `json:"outstandingDebt"`
	LowStock         []Product                         `json:"lowStock"`
	BillsDueSoon     []Expense                         `json:"billsDueSoon"`
	PaymentBreakdown map[PaymentMethod]decimal.Decimal `json:"paymentBreakdown"`
	DailySales       []DailySales                      `json:"dailySales"`
	MonthlyRotation  []ProductRotation                 `json:"monthlyRotation"`
}

type InsightsResponse struct {
	Text   string `json:"text"`
	Cached bool   `json:"cached"`
}

type StatusResponse struct {
	Busy []string `json:"busy"`
}
