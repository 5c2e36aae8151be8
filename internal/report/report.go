// Package report renders the period report as an xlsx workbook.
package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"mercadinho/backend/internal/domain"
)

const (
	SheetSales     = "Vendas"
	SheetExpenses  = "Despesas"
	SheetCustomers = "Fiado"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var (
	salesHeader     = []any{"Data", "Venda", "Pagamento", "Cliente", "Itens", "Total", "Custo", "Lucro"}
	expensesHeader  = []any{"Vencimento", "Descrição", "Tipo", "Valor", "Pago"}
	customersHeader = []any{"Cliente", "Telefone", "Limite", "Débito", "Total Pago", "Disponível"}
)

// Workbook lists the sales and expenses of the period and every customer account.
func Workbook(state domain.State, period domain.Period) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSales); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(SheetExpenses); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(SheetCustomers); err != nil {
		return nil, err
	}

	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(state.Customers))
	for _, c := range state.Customers {
		names[c.ID] = c.Name
	}

	rows := make([][]any, 0, len(state.Sales))
	for _, sale := range state.Sales {
		if !period.Contains(sale.Date) {
			continue
		}
		items := 0
		for _, item := range sale.Items {
			items += item.Quantity
		}
		rows = append(rows, []any{
			sale.Date.In(period.From.Location()).Format("02/01/2006 15:04"),
			sale.ID,
			string(sale.PaymentMethod),
			names[sale.CustomerID],
			items,
			sale.Total.InexactFloat64(),
			sale.TotalCost.InexactFloat64(),
			sale.Profit.InexactFloat64(),
		})
	}
	if err := writeSheet(f, SheetSales, salesHeader, rows, bold, money, "F", "H"); err != nil {
		return nil, err
	}

	rows = rows[:0]
	for _, e := range state.Expenses {
		if !period.ContainsDate(e.DueDate) {
			continue
		}
		paid := "Não"
		if e.IsPaid {
			paid = "Sim"
		}
		rows = append(rows, []any{e.DueDate, e.Description, string(e.Type), e.Amount.InexactFloat64(), paid})
	}
	if err := writeSheet(f, SheetExpenses, expensesHeader, rows, bold, money, "D", "D"); err != nil {
		return nil, err
	}

	rows = rows[:0]
	for _, c := range state.Customers {
		rows = append(rows, []any{
			c.Name,
			c.Phone,
			c.CreditLimit.InexactFloat64(),
			c.CurrentDebt.InexactFloat64(),
			c.TotalPaid.InexactFloat64(),
			c.CreditLimit.Sub(c.CurrentDebt).InexactFloat64(),
		})
	}
	if err := writeSheet(f, SheetCustomers, customersHeader, rows, bold, money, "C", "F"); err != nil {
		return nil, err
	}

	f.SetActiveSheet(0)
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, header []any, rows [][]any, headerStyle int, moneyStyle int, moneyFrom string, moneyTo string) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return err
		}
	}
	if len(rows) > 0 {
		end := fmt.Sprintf("%s%d", moneyTo, len(rows)+1)
		if err := f.SetCellStyle(sheet, moneyFrom+"2", end, moneyStyle); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheet, "A", "H", 16)
}
