// Package report computes the aggregate views served by the API: the
// category/month breakdown, the yearly projection and the dashboard
// snapshot. Every function is pure; callers load the rows and pass the
// reference instant explicitly.
package report

import (
	"fmt"

	"github.com/shopspring/decimal"

	"financas/internal/core"
)

// Amount is a computed decimal rendered as a JSON number with two decimals.
type Amount struct {
	decimal.Decimal
}

func amount(d decimal.Decimal) Amount { return Amount{Decimal: d} }

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.StringFixed(2)), nil
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	return a.Decimal.UnmarshalJSON(b)
}

func (a Amount) String() string { return a.Decimal.StringFixed(2) }

// MonthNames are the Portuguese month labels used in report text.
var MonthNames = [12]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// MonthName returns the label for month 1-12.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return fmt.Sprintf("%d", month)
	}
	return MonthNames[month-1]
}

// yearMonth identifies a calendar month.
type yearMonth struct {
	Year  int
	Month int
}

func monthOf(d core.Date) yearMonth {
	return yearMonth{Year: d.Year(), Month: d.Month()}
}

func (ym yearMonth) less(o yearMonth) bool {
	if ym.Year != o.Year {
		return ym.Year < o.Year
	}
	return ym.Month < o.Month
}

func (ym yearMonth) label() string {
	return fmt.Sprintf("%s/%d", MonthName(ym.Month), ym.Year)
}

// flows accumulates income and expense totals.
type flows struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
}

func (f *flows) add(t core.Transaction) {
	switch t.Kind {
	case core.Income:
		f.Income = f.Income.Add(t.Amount.Decimal)
	case core.Expense:
		f.Expense = f.Expense.Add(t.Amount.Decimal)
	}
}

func (f flows) balance() decimal.Decimal {
	return f.Income.Sub(f.Expense)
}

// compareNames orders optional names ascending with missing names last.
func compareNames(a, b *string) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	case *a < *b:
		return -1
	case *a > *b:
		return 1
	}
	return 0
}

func nameKey(p *string) string {
	if p == nil {
		return "\x00nil"
	}
	return *p
}
