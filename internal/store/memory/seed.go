package memory

import (
	"encoding/json"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"mercadinho/backend/internal/domain"
	"mercadinho/backend/internal/store"
)

// NewSeeded returns a store preloaded with a small demo catalog, customers,
// bills and two past sales, stored under keys with the given prefix.
func NewSeeded(prefix string) *Store {
	s := New()
	now := time.Now().UTC()
	state := seedState(now)

	collections := map[string]any{
		store.KeyProducts:  state.Products,
		store.KeySales:     state.Sales,
		store.KeyExpenses:  state.Expenses,
		store.KeyCustomers: state.Customers,
	}
	for key, value := range collections {
		payload, err := json.Marshal(value)
		if err != nil {
			log.Fatalf("[memory-store] failed to encode seed %s: %v", key, err)
		}
		s.values[prefix+key] = payload
	}
	return s
}

func seedState(now time.Time) domain.State {
	d := decimal.RequireFromString
	today := now.Format("2006-01-02")
	tomorrow := now.AddDate(0, 0, 1).Format("2006-01-02")
	nextWeek := now.AddDate(0, 0, 7).Format("2006-01-02")

	return domain.State{
		Products: []domain.Product{
			{ID: "1", Name: "Arroz Tipo 1 5kg", Category: domain.CategoryAlimentos, CostPrice: d("18.50"), SalePrice: d("24.90"), Stock: 45, MinStock: 10},
			{ID: "2", Name: "Feijão Carioca 1kg", Category: domain.CategoryAlimentos, CostPrice: d("6.20"), SalePrice: d("8.99"), Stock: 8, MinStock: 15},
			{ID: "3", Name: "Coca-Cola 2L", Category: domain.CategoryBebidas, CostPrice: d("7.50"), SalePrice: d("11.50"), Stock: 24, MinStock: 12},
			{ID: "4", Name: "Detergente Ypê 500ml", Category: domain.CategoryLimpeza, CostPrice: d("1.80"), SalePrice: d("2.99"), Stock: 60, MinStock: 20},
			{ID: "5", Name: "Sabonete Dove 90g", Category: domain.CategoryHigiene, CostPrice: d("2.40"), SalePrice: d("4.29"), Stock: 3, MinStock: 10},
		},
		Customers: []domain.Customer{
			{ID: "c1", Name: "João Silva", Phone: "(11) 98765-4321", CreditLimit: d("500"), CurrentDebt: d("150"), TotalPaid: d("50")},
			{ID: "c2", Name: "Maria Oliveira", Phone: "(11) 91234-5678", CreditLimit: d("300"), CurrentDebt: d("0"), TotalPaid: d("120")},
			{ID: "c3", Name: "Pedro Santos", Phone: "(11) 99876-5432", CreditLimit: d("200"), CurrentDebt: d("80"), TotalPaid: d("0")},
		},
		Expenses: []domain.Expense{
			{ID: "e1", Date: now, DueDate: today, Description: "Conta de Luz", Amount: d("350"), Type: domain.ExpenseFixed},
			{ID: "e2", Date: now, DueDate: tomorrow, Description: "Aluguel", Amount: d("1500"), Type: domain.ExpenseFixed},
			{ID: "e3", Date: now, DueDate: nextWeek, Description: "Fornecedor Bebidas", Amount: d("820"), Type: domain.ExpenseStock},
		},
		Sales: []domain.Sale{
			{
				ID:            "s1",
				Date:          now.Add(-2 * time.Hour),
				Items:         []domain.SaleItem{{ProductID: "1", Name: "Arroz Tipo 1 5kg", Quantity: 2, Price: d("24.90"), Cost: d("18.50")}},
				Total:         d("49.80"),
				TotalCost:     d("37.00"),
				Profit:        d("12.80"),
				PaymentMethod: domain.PaymentPIX,
			},
			{
				ID:            "s2",
				Date:          now.Add(-26 * time.Hour),
				Items:         []domain.SaleItem{{ProductID: "3", Name: "Coca-Cola 2L", Quantity: 3, Price: d("11.50"), Cost: d("7.50")}},
				Total:         d("34.50"),
				TotalCost:     d("22.50"),
				Profit:        d("12.00"),
				PaymentMethod: domain.PaymentCash,
			},
		},
	}
}
