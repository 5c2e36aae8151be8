package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Backup documents carry money as plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

type Category string

const (
	CategoryBebidas   Category = "Bebidas"
	CategoryAlimentos Category = "Alimentos"
	CategoryLimpeza   Category = "Limpeza"
	CategoryHigiene   Category = "Higiene"
	CategoryOutros    Category = "Outros"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryBebidas, CategoryAlimentos, CategoryLimpeza, CategoryHigiene, CategoryOutros:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentPIX    PaymentMethod = "PIX"
	PaymentCash   PaymentMethod = "Dinheiro"
	PaymentFiado  PaymentMethod = "Fiado"
	PaymentCredit PaymentMethod = "Crédito"
	PaymentDebit  PaymentMethod = "Débito"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentPIX, PaymentCash, PaymentFiado, PaymentCredit, PaymentDebit:
		return true
	}
	return false
}

// IsCreditAccount reports whether the sale is charged to a customer's fiado account.
func (m PaymentMethod) IsCreditAccount() bool {
	return m == PaymentFiado
}

type ExpenseType string

const (
	ExpenseFixed ExpenseType = "Fixa"
	ExpenseStock ExpenseType = "Estoque"
)

func (t ExpenseType) Valid() bool {
	return t == ExpenseFixed || t == ExpenseStock
}

type Product struct {
	ID          string          `json:"id" validate:"required"`
	Name        string          `json:"name" validate:"required"`
	Category    Category        `json:"category" validate:"enum"`
	CostPrice   decimal.Decimal `json:"costPrice" validate:"gte=0"`
	SalePrice   decimal.Decimal `json:"salePrice" validate:"gte=0"`
	Stock       int             `json:"stock"`
	MinStock    int             `json:"minStock" validate:"gte=0"`
	LastUpdated *time.Time      `json:"lastUpdated,omitempty"`
}

type Customer struct {
	ID          string          `json:"id" validate:"required"`
	Name        string          `json:"name" validate:"required"`
	Phone       string          `json:"phone"`
	CreditLimit decimal.Decimal `json:"creditLimit" validate:"gte=0"`
	CurrentDebt decimal.Decimal `json:"currentDebt" validate:"gte=0"`
	TotalPaid   decimal.Decimal `json:"totalPaid" validate:"gte=0"`
}

// SaleItem keeps the name, price and cost the product had when it was sold.
type SaleItem struct {
	ProductID string          `json:"productId" validate:"required"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity" validate:"gte=1"`
	Price     decimal.Decimal `json:"price" validate:"gte=0"`
	Cost      decimal.Decimal `json:"cost" validate:"gte=0"`
}

func (i SaleItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i SaleItem) LineCost() decimal.Decimal {
	return i.Cost.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Sale struct {
	ID            string          `json:"id" validate:"required"`
	Date          time.Time       `json:"date" validate:"required"`
	Items         []SaleItem      `json:"items" validate:"required,min=1,dive"`
	Total         decimal.Decimal `json:"total" validate:"gte=0"`
	TotalCost     decimal.Decimal `json:"totalCost" validate:"gte=0"`
	Profit        decimal.Decimal `json:"profit"`
	PaymentMethod PaymentMethod   `json:"paymentMethod" validate:"enum"`
	CustomerID    string          `json:"customerId,omitempty"`
}

type Expense struct {
	ID          string          `json:"id" validate:"required"`
	Date        time.Time       `json:"date"`
	DueDate     string          `json:"dueDate" validate:"required,datetime=2006-01-02"`
	Description string          `json:"description" validate:"required"`
	Amount      decimal.Decimal `json:"amount" validate:"gte=0"`
	Type        ExpenseType     `json:"type" validate:"enum"`
	IsPaid      bool            `json:"isPaid"`
}

// ScannedProduct is an invoice line returned by the extraction adapter.
// TotalPrice is only set when the document shows the line total and no unit cost.
type ScannedProduct struct {
	Name       string          `json:"name"`
	CostPrice  decimal.Decimal `json:"costPrice"`
	Quantity   int             `json:"quantity"`
	Category   Category        `json:"category,omitempty"`
	TotalPrice decimal.Decimal `json:"totalPrice,omitzero"`
}

type ScannedExpense struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     string          `json:"dueDate"`
	Type        ExpenseType     `json:"type"`
}

type Settings struct {
	DefaultMarginPercent decimal.Decimal `json:"defaultMarginPercent"`
	PeriodStart          string          `json:"periodStart,omitempty"`
	PeriodEnd            string          `json:"periodEnd,omitempty"`
}

// State is the whole application state owned by the service.
type State struct {
	Products  []Product  `json:"products"`
	Sales     []Sale     `json:"sales"`
	Expenses  []Expense  `json:"expenses"`
	Customers []Customer `json:"customers"`
	Settings  Settings   `json:"settings"`
}

func (s State) FindProduct(id string) int {
	for i := range s.Products {
		if s.Products[i].ID == id {
			return i
		}
	}
	return -1
}

func (s State) FindCustomer(id string) int {
	for i := range s.Customers {
		if s.Customers[i].ID == id {
			return i
		}
	}
	return -1
}

func (s State) FindSale(id string) int {
	for i := range s.Sales {
		if s.Sales[i].ID == id {
			return i
		}
	}
	return -1
}

func (s State) FindExpense(id string) int {
	for i := range s.Expenses {
		if s.Expenses[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so callers can mutate without touching the original.
func (s State) Clone() State {
	dup := State{
		Products:  make([]Product, len(s.Products)),
		Sales:     make([]Sale, len(s.Sales)),
		Expenses:  make([]Expense, len(s.Expenses)),
		Customers: make([]Customer, len(s.Customers)),
		Settings:  s.Settings,
	}
	for i, p := range s.Products {
		dup.Products[i] = CloneProduct(p)
	}
	for i, sale := range s.Sales {
		dup.Sales[i] = CloneSale(sale)
	}
	copy(dup.Expenses, s.Expenses)
	copy(dup.Customers, s.Customers)
	return dup
}

func CloneProduct(src Product) Product {
	dup := src
	if src.LastUpdated != nil {
		at := *src.LastUpdated
		dup.LastUpdated = &at
	}
	return dup
}

func CloneSale(src Sale) Sale {
	dup := src
	dup.Items = make([]SaleItem, len(src.Items))
	copy(dup.Items, src.Items)
	return dup
}
