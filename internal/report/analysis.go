package report

import (
	"slices"

	"financas/internal/core"
)

// AnalysisParams narrows the breakdown. Zero Month and nil CategoryID mean
// no constraint.
type AnalysisParams struct {
	Month      int
	CategoryID *int64
}

// CategoryMonthTotal is the expense total of one category in one month.
type CategoryMonthTotal struct {
	Year         int     `json:"ano"`
	Month        int     `json:"mes"`
	CategoryName *string `json:"categoria_nome"`
	Total        Amount  `json:"total"`
}

// MonthlyBalance is the income/expense split of one month.
type MonthlyBalance struct {
	Year         int    `json:"ano"`
	Month        int    `json:"mes"`
	Income       Amount `json:"receita_total"`
	Expense      Amount `json:"despesa_total"`
	FinalBalance Amount `json:"saldo_final"`
}

type Analysis struct {
	ByCategoryMonth []CategoryMonthTotal `json:"gastos_por_categoria_mes"`
	MonthlyBalances []MonthlyBalance     `json:"saldo_mensal"`
}

type categoryMonthKey struct {
	yearMonth
	name string
}

// Analyze groups expenses by (year, month, category) and all transactions
// by (year, month). The category filter applies to the first grouping only.
func Analyze(txs []core.Transaction, p AnalysisParams) Analysis {
	byCat := map[categoryMonthKey]*CategoryMonthTotal{}
	byMonth := map[yearMonth]*flows{}

	for _, t := range txs {
		if p.Month != 0 && t.Date.Month() != p.Month {
			continue
		}
		ym := monthOf(t.Date)

		f, ok := byMonth[ym]
		if !ok {
			f = &flows{}
			byMonth[ym] = f
		}
		f.add(t)

		if t.Kind != core.Expense {
			continue
		}
		if p.CategoryID != nil && (t.CategoryID == nil || *t.CategoryID != *p.CategoryID) {
			continue
		}
		key := categoryMonthKey{yearMonth: ym, name: nameKey(t.CategoryName)}
		row, ok := byCat[key]
		if !ok {
			row = &CategoryMonthTotal{Year: ym.Year, Month: ym.Month, CategoryName: t.CategoryName}
			byCat[key] = row
		}
		row.Total = amount(row.Total.Add(t.Amount.Decimal))
	}

	out := Analysis{
		ByCategoryMonth: make([]CategoryMonthTotal, 0, len(byCat)),
		MonthlyBalances: make([]MonthlyBalance, 0, len(byMonth)),
	}
	for _, row := range byCat {
		out.ByCategoryMonth = append(out.ByCategoryMonth, *row)
	}
	slices.SortFunc(out.ByCategoryMonth, func(a, b CategoryMonthTotal) int {
		am, bm := yearMonth{a.Year, a.Month}, yearMonth{b.Year, b.Month}
		if am != bm {
			if am.less(bm) {
				return -1
			}
			return 1
		}
		return compareNames(a.CategoryName, b.CategoryName)
	})

	for ym, f := range byMonth {
		out.MonthlyBalances = append(out.MonthlyBalances, MonthlyBalance{
			Year:         ym.Year,
			Month:        ym.Month,
			Income:       amount(f.Income),
			Expense:      amount(f.Expense),
			FinalBalance: amount(f.balance()),
		})
	}
	slices.SortFunc(out.MonthlyBalances, func(a, b MonthlyBalance) int {
		am, bm := yearMonth{a.Year, a.Month}, yearMonth{b.Year, b.Month}
		switch {
		case am.less(bm):
			return -1
		case bm.less(am):
			return 1
		}
		return 0
	})

	return out
}
