package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"mercadinho/backend/internal/domain"
)

func TestWorkbookSheets(t *testing.T) {
	inMarch := time.Date(2026, 3, 5, 14, 30, 0, 0, time.UTC)
	state := domain.State{
		Customers: []domain.Customer{
			{ID: "c1", Name: "João Silva", Phone: "11999999999", CreditLimit: decimal.NewFromInt(500), CurrentDebt: decimal.NewFromInt(150), TotalPaid: decimal.NewFromInt(50)},
		},
		Sales: []domain.Sale{
			{
				ID: "s1", Date: inMarch, PaymentMethod: domain.PaymentFiado, CustomerID: "c1",
				Items:     []domain.SaleItem{{ProductID: "1", Quantity: 2}, {ProductID: "2", Quantity: 1}},
				Total:     decimal.RequireFromString("49.80"),
				TotalCost: decimal.RequireFromString("37.00"),
				Profit:    decimal.RequireFromString("12.80"),
			},
			{ID: "s-old", Date: inMarch.AddDate(0, -1, 0), PaymentMethod: domain.PaymentPIX, Items: []domain.SaleItem{{ProductID: "1", Quantity: 1}}},
		},
		Expenses: []domain.Expense{
			{ID: "e1", DueDate: "2026-03-10", Description: "Aluguel", Amount: decimal.NewFromInt(1200), Type: domain.ExpenseFixed, IsPaid: true},
			{ID: "e2", DueDate: "2026-04-10", Description: "Luz", Amount: decimal.NewFromInt(200), Type: domain.ExpenseFixed},
		},
	}

	data, err := Workbook(state, domain.MonthPeriod(inMarch))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSales, SheetExpenses, SheetCustomers}, f.GetSheetList())

	sales, err := f.GetRows(SheetSales)
	require.NoError(t, err)
	require.Len(t, sales, 2, "header plus the single sale inside March")
	assert.Equal(t, "Data", sales[0][0])
	assert.Equal(t, "05/03/2026 14:30", sales[1][0])
	assert.Equal(t, "s1", sales[1][1])
	assert.Equal(t, "Fiado", sales[1][2])
	assert.Equal(t, "João Silva", sales[1][3])
	assert.Equal(t, "3", sales[1][4])

	total, err := f.GetCellValue(SheetSales, "F2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "49.8", total)

	expenses, err := f.GetRows(SheetExpenses)
	require.NoError(t, err)
	require.Len(t, expenses, 2)
	assert.Equal(t, "Aluguel", expenses[1][1])
	assert.Equal(t, "Sim", expenses[1][4])

	customers, err := f.GetRows(SheetCustomers)
	require.NoError(t, err)
	require.Len(t, customers, 2)
	available, err := f.GetCellValue(SheetCustomers, "F2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "350", available)
}

func TestWorkbookEmptyState(t *testing.T) {
	data, err := Workbook(domain.State{}, domain.MonthPeriod(time.Now()))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetCustomers)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
