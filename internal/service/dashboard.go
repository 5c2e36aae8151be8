package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"mercadinho/backend/internal/domain"
	"mercadinho/backend/internal/report"
	"mercadinho/backend/internal/store"
)

const rotationWindow = 30 * 24 * time.Hour

// Period parses request bounds in the store's time zone. Empty bounds fall
// back to the stored settings period and then to the current month.
func (s *Service) Period(from string, to string) (domain.Period, error) {
	s.mu.Lock()
	settings := s.state.Settings
	s.mu.Unlock()

	if from == "" {
		from = settings.PeriodStart
	}
	if to == "" {
		to = settings.PeriodEnd
	}
	return domain.ParsePeriod(from, to, s.now().In(s.location))
}

func (s *Service) Dashboard(period domain.Period) domain.Dashboard {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().In(s.location)
	dash := domain.Dashboard{
		From:             period.FromDate(),
		To:               period.ToDate(),
		TotalSales:       decimal.Zero,
		TotalProfit:      decimal.Zero,
		PaidExpenses:     decimal.Zero,
		PendingExpenses:  decimal.Zero,
		OutstandingDebt:  decimal.Zero,
		LowStock:         []domain.Product{},
		BillsDueSoon:     []domain.Expense{},
		PaymentBreakdown: map[domain.PaymentMethod]decimal.Decimal{},
		DailySales:       []domain.DailySales{},
		MonthlyRotation:  []domain.ProductRotation{},
	}

	daily := map[string]decimal.Decimal{}
	rotation := map[string]int{}
	rotationStart := now.Add(-rotationWindow)
	for _, sale := range s.state.Sales {
		if !sale.Date.Before(rotationStart) {
			for _, item := range sale.Items {
				rotation[item.ProductID] += item.Quantity
			}
		}
		if !period.Contains(sale.Date) {
			continue
		}
		dash.SalesCount++
		dash.TotalSales = dash.TotalSales.Add(sale.Total)
		dash.TotalProfit = dash.TotalProfit.Add(sale.Profit)
		dash.PaymentBreakdown[sale.PaymentMethod] = dash.PaymentBreakdown[sale.PaymentMethod].Add(sale.Total)
		day := sale.Date.In(s.location).Format(domain.DateLayout)
		daily[day] = daily[day].Add(sale.Total)
	}
	for day, amount := range daily {
		dash.DailySales = append(dash.DailySales, domain.DailySales{Date: day, Amount: amount})
	}
	sort.Slice(dash.DailySales, func(i, j int) bool { return dash.DailySales[i].Date < dash.DailySales[j].Date })

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
	for _, e := range s.state.Expenses {
		if period.ContainsDate(e.DueDate) {
			if e.IsPaid {
				dash.PaidExpenses = dash.PaidExpenses.Add(e.Amount)
			} else {
				dash.PendingExpenses = dash.PendingExpenses.Add(e.Amount)
			}
		}
		if !e.IsPaid && dueWithinDays(e.DueDate, today, 1) {
			dash.BillsDueSoon = append(dash.BillsDueSoon, e)
		}
	}

	for _, c := range s.state.Customers {
		dash.OutstandingDebt = dash.OutstandingDebt.Add(c.CurrentDebt)
	}

	for _, p := range s.state.Products {
		if p.Stock <= p.MinStock {
			dash.LowStock = append(dash.LowStock, domain.CloneProduct(p))
		}
		dash.MonthlyRotation = append(dash.MonthlyRotation, domain.ProductRotation{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  rotation[p.ID],
		})
	}
	sort.SliceStable(dash.MonthlyRotation, func(i, j int) bool {
		return dash.MonthlyRotation[i].Quantity > dash.MonthlyRotation[j].Quantity
	})
	return dash
}

// dueWithinDays reports whether date falls between today and today+days.
func dueWithinDays(date string, today time.Time, days int) bool {
	due, err := time.ParseInLocation(domain.DateLayout, date, today.Location())
	if err != nil {
		return false
	}
	diff := due.Sub(today).Hours() / 24
	return diff >= 0 && diff <= float64(days)
}

func (s *Service) Insights(ctx context.Context, period domain.Period) (domain.InsightsResponse, error) {
	state := s.State()
	sales := make([]domain.Sale, 0)
	for _, sale := range state.Sales {
		if period.Contains(sale.Date) {
			sales = append(sales, sale)
		}
	}
	expenses := make([]domain.Expense, 0)
	for _, e := range state.Expenses {
		if period.ContainsDate(e.DueDate) {
			expenses = append(expenses, e)
		}
	}

	var resp domain.InsightsResponse
	err := s.run(ctx, OpInsights, func() error {
		resp = s.insights.Generate(ctx, state.Products, sales, expenses)
		return nil
	})
	return resp, err
}

func (s *Service) ExportReport(period domain.Period) ([]byte, error) {
	return report.Workbook(s.State(), period)
}

func (s *Service) Settings() domain.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Settings
}

func (s *Service) UpdateSettings(ctx context.Context, req domain.SettingsUpdateRequest) (domain.Settings, error) {
	if err := domain.Validate(req); err != nil {
		return domain.Settings{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated := s.state.Settings
	if req.DefaultMarginPercent != nil {
		updated.DefaultMarginPercent = *req.DefaultMarginPercent
	}
	if req.PeriodStart != nil {
		updated.PeriodStart = *req.PeriodStart
	}
	if req.PeriodEnd != nil {
		updated.PeriodEnd = *req.PeriodEnd
	}
	if updated.PeriodStart != "" && updated.PeriodEnd != "" && updated.PeriodEnd < updated.PeriodStart {
		return domain.Settings{}, domain.Invalid("periodEnd", "must not be before periodStart")
	}

	s.state.Settings = updated
	s.persistLocked(ctx, store.KeySettings)
	return updated, nil
}
