package report

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"financas/internal/core"
)

// Dashboard periods.
const (
	PeriodMonth = "month"
	PeriodAll   = "all"
)

// DashboardParams selects the snapshot window. For PeriodMonth, Year and
// Month must be set.
type DashboardParams struct {
	Period string
	Year   int
	Month  int
}

// Label returns "MM/YYYY" for a month snapshot and "Todos os Meses" otherwise.
func (p DashboardParams) Label() string {
	if p.IsAll() {
		return "Todos os Meses"
	}
	return fmt.Sprintf("%02d/%d", p.Month, p.Year)
}

func (p DashboardParams) IsAll() bool {
	return strings.EqualFold(p.Period, PeriodAll)
}

// Includes reports whether d falls in the snapshot window.
func (p DashboardParams) Includes(d core.Date) bool {
	return p.IsAll() || (d.Year() == p.Year && d.Month() == p.Month)
}

type CategoryTotal struct {
	CategoryName *string `json:"categoria__nome"`
	Total        Amount  `json:"total"`
}

type StatusTotal struct {
	Status core.TransactionStatus `json:"status"`
	Total  Amount                 `json:"total"`
}

// DashboardSnapshot is the dashboard payload.
type DashboardSnapshot struct {
	ReferenceLabel   string          `json:"mes_referencia"`
	TotalExpense     Amount          `json:"total_gasto_mes"`
	PendingExpense   Amount          `json:"total_despesas_pendentes"`
	ProjectedBalance Amount          `json:"saldo_final_projetado"`
	Income           Amount          `json:"receitas_mes_atual"`
	PaidExpense      Amount          `json:"despesas_pagas_mes_atual"`
	ByCategory       []CategoryTotal `json:"gastos_por_categoria_mes_atual"`
	ByStatus         []StatusTotal   `json:"gastos_por_status_mes_atual"`
}

// Dashboard summarizes the transactions inside the selected window.
func Dashboard(txs []core.Transaction, p DashboardParams) DashboardSnapshot {
	var income, expense, pending, paid decimal.Decimal
	byCategory := map[string]*CategoryTotal{}
	byStatus := map[core.TransactionStatus]*StatusTotal{}

	for _, t := range txs {
		if !p.Includes(t.Date) {
			continue
		}
		if t.Kind == core.Income {
			income = income.Add(t.Amount.Decimal)
			continue
		}
		if t.Kind != core.Expense {
			continue
		}
		expense = expense.Add(t.Amount.Decimal)
		switch t.Status {
		case core.Pending:
			pending = pending.Add(t.Amount.Decimal)
		case core.Paid:
			paid = paid.Add(t.Amount.Decimal)
		}

		key := nameKey(t.CategoryName)
		ct, ok := byCategory[key]
		if !ok {
			ct = &CategoryTotal{CategoryName: t.CategoryName}
			byCategory[key] = ct
		}
		ct.Total = amount(ct.Total.Add(t.Amount.Decimal))

		st, ok := byStatus[t.Status]
		if !ok {
			st = &StatusTotal{Status: t.Status}
			byStatus[t.Status] = st
		}
		st.Total = amount(st.Total.Add(t.Amount.Decimal))
	}

	out := DashboardSnapshot{
		ReferenceLabel:   p.Label(),
		TotalExpense:     amount(expense),
		PendingExpense:   amount(pending),
		Income:           amount(income),
		PaidExpense:      amount(paid),
		ProjectedBalance: amount(income.Sub(paid).Sub(pending)),
		ByCategory:       make([]CategoryTotal, 0, len(byCategory)),
		ByStatus:         make([]StatusTotal, 0, len(byStatus)),
	}
	for _, ct := range byCategory {
		out.ByCategory = append(out.ByCategory, *ct)
	}
	slices.SortFunc(out.ByCategory, func(a, b CategoryTotal) int {
		return compareNames(a.CategoryName, b.CategoryName)
	})
	for _, st := range byStatus {
		out.ByStatus = append(out.ByStatus, *st)
	}
	slices.SortFunc(out.ByStatus, func(a, b StatusTotal) int {
		return strings.Compare(string(a.Status), string(b.Status))
	})
	return out
}
