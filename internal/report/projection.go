package report

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"financas/internal/core"
)

// Financial status levels, from best to worst.
const (
	StatusExcellent = "EXCELLENT"
	StatusGood      = "GOOD"
	StatusCritical  = "CRITICAL"
)

// AverageMode is the only averaging strategy: months that had transactions.
const AverageMode = "meses_com_transacao"

// DefaultMonths is the default analysis window length in months.
const DefaultMonths = 12

var (
	daysPerMonth   = decimal.RequireFromString("30.44")
	weeksPerMonth  = decimal.RequireFromString("4.345")
	savingsFloor   = decimal.RequireFromString("0.05")
	increaseFactor = decimal.RequireFromString("1.25")
	decreaseFactor = decimal.RequireFromString("0.75")
	dominantShare  = decimal.RequireFromString("0.4")
	three          = decimal.NewFromInt(3)
	hundred        = decimal.NewFromInt(100)
)

// ProjectionParams selects the year and window. Now is the reference
// instant; its calendar date in its own location is "today".
type ProjectionParams struct {
	Year   int
	Months int
	Now    time.Time
}

// ProjectionInput carries the rows the projection reads. YearTransactions
// should cover the selected year and PriorYearTransactions the year before;
// rows outside those years are ignored.
type ProjectionInput struct {
	YearTransactions      []core.Transaction
	PriorYearTransactions []core.Transaction
	Years                 []int
	Goals                 []core.Goal
}

// Message is an alert or suggestion shown to the user.
type Message struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type CategoryAverage struct {
	CategoryName string `json:"categoria__nome"`
	Average      Amount `json:"avg_valor"`
	Total        Amount `json:"total_gasto_no_ano"`
}

type MonthOption struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

type MonthlySummary struct {
	AverageIncome  Amount `json:"receita_media"`
	AverageExpense Amount `json:"despesa_media"`
	AverageResult  Amount `json:"lucro_prejuizo_medio"`
}

type GoalProgress struct {
	Name      *string `json:"nome"`
	Target    Amount  `json:"valor_alvo"`
	Achieved  Amount  `json:"valor_atingido"`
	Progress  Amount  `json:"progresso_porcentagem"`
	Remaining Amount  `json:"valor_restante"`
}

type Window struct {
	Start core.Date `json:"inicio"`
	End   core.Date `json:"fim"`
}

// Projection is the full projection payload.
type Projection struct {
	SelectedYear       int           `json:"selected_year"`
	AvailableYears     []int         `json:"available_years"`
	AvailableMonths    []MonthOption `json:"available_months_in_selected_year"`
	MonthsAnalyzed     int           `json:"meses_analisados_para_media"`
	AverageModeApplied string        `json:"tipo_media_calculo_aplicado"`
	MonthsWithData     int           `json:"meses_com_transacao_no_periodo"`
	Window             Window        `json:"periodo_analise"`

	AverageExpense     Amount            `json:"projecao_despesa_media_mensal_geral"`
	CategoryAverages   []CategoryAverage `json:"projecao_despesa_media_mensal_por_categoria"`
	AverageIncome      Amount            `json:"media_mensal_receitas_geral"`
	RecommendedSavings Amount            `json:"valor_recomendado_guardar"`

	Status          string       `json:"status_financeiro"`
	SavingsAdvice   Amount       `json:"economia_recomendada"`
	CurrentRate     Amount       `json:"taxa_atual"`
	GoalFollowedPct Amount       `json:"meta_seguida_porcentagem"`
	GoalProgress    GoalProgress `json:"progresso_meta_economia"`

	MonthlySummary MonthlySummary `json:"resumo_financeiro_mensal"`

	ProjectedExpense3M Amount `json:"projecao_3_meses_despesa"`
	ProjectedIncome3M  Amount `json:"projecao_3_meses_receita"`
	ProjectedBalance3M Amount `json:"projecao_3_meses_saldo"`
	DailyExpense       Amount `json:"media_diaria_despesas"`
	WeeklyExpense      Amount `json:"media_semanal_despesas"`

	ExpenseTrend    Amount `json:"trend_despesas"`
	IncomeTrend     Amount `json:"trend_receitas"`
	ComparisonLabel string `json:"comparison_period_display"`

	Alerts      []Message `json:"alerts"`
	Suggestions []Message `json:"suggestions"`

	YearIncome  Amount `json:"receita_total_ano_selecionado"`
	YearExpense Amount `json:"despesa_total_ano_selecionado"`
	YearSavings Amount `json:"economia_real_no_ano_selecionado"`
}

// AnalysisWindow returns the [start, end] dates the projection averages over.
// The end is today for the current year and Dec 31 otherwise; the start is
// 30 days per month earlier, clamped to Jan 1 of the year.
func AnalysisWindow(year, months int, now time.Time) (core.Date, core.Date) {
	today := core.DateOf(now)
	end := core.NewDate(year, 12, 31)
	if year == today.Year() {
		end = today
	}
	start := end.AddDays(-30 * months)
	if start.Year() < year {
		start = core.NewDate(year, 1, 1)
	}
	return start, end
}

// projector holds the intermediate state of one projection run.
type projector struct {
	p      ProjectionParams
	in     ProjectionInput
	today  core.Date
	out    Projection
	status string
}

// Project computes the projection for p.Year over the rows in in.
func Project(in ProjectionInput, p ProjectionParams) Projection {
	if p.Months <= 0 {
		p.Months = DefaultMonths
	}
	pr := &projector{p: p, in: in, today: core.DateOf(p.Now), status: StatusExcellent}
	pr.out = Projection{
		SelectedYear:       p.Year,
		AverageModeApplied: AverageMode,
		AvailableYears:     append([]int{}, in.Years...),
		Alerts:             []Message{},
		Suggestions:        []Message{},
	}
	slices.SortFunc(pr.out.AvailableYears, func(a, b int) int { return b - a })

	yearRows := filterYear(in.YearTransactions, p.Year)
	start, end := AnalysisWindow(p.Year, p.Months, p.Now)
	pr.out.Window = Window{Start: start, End: end}

	window := make([]core.Transaction, 0, len(yearRows))
	for _, t := range yearRows {
		if !t.Date.Before(start) && !t.Date.After(end) {
			window = append(window, t)
		}
	}

	months, totals := monthlySummary(window)
	m := len(months)
	divisor := decimal.NewFromInt(int64(max(m, 1)))
	avgExpense := totals.Expense.Div(divisor)
	avgIncome := totals.Income.Div(divisor)

	pr.out.MonthsAnalyzed = m
	pr.out.MonthsWithData = m
	pr.out.AverageExpense = amount(avgExpense)
	pr.out.AverageIncome = amount(avgIncome)
	pr.out.CategoryAverages = categoryAverages(window)

	pr.out.DailyExpense = amount(avgExpense.Div(daysPerMonth))
	pr.out.WeeklyExpense = amount(avgExpense.Div(weeksPerMonth))
	pr.out.ProjectedExpense3M = amount(avgExpense.Mul(three))
	pr.out.ProjectedIncome3M = amount(avgIncome.Mul(three))
	pr.out.ProjectedBalance3M = amount(avgIncome.Mul(three).Sub(avgExpense.Mul(three)))

	recommended := recommendedSavings(months, avgIncome)
	pr.out.RecommendedSavings = amount(recommended)
	pr.out.SavingsAdvice = amount(recommended)
	pr.out.CurrentRate = amount(savingsRate(totals))

	pr.out.MonthlySummary = MonthlySummary{
		AverageIncome:  amount(avgIncome),
		AverageExpense: amount(avgExpense),
		AverageResult:  amount(avgIncome.Sub(avgExpense)),
	}

	pr.balanceAlerts(months)
	pr.categoryAlerts(avgExpense)
	pr.trend(yearRows)
	pr.goalAlerts()

	var year flows
	seen := map[int]bool{}
	for _, t := range yearRows {
		year.add(t)
		seen[t.Date.Month()] = true
	}
	pr.out.YearIncome = amount(year.Income)
	pr.out.YearExpense = amount(year.Expense)
	pr.out.YearSavings = amount(year.balance())

	pr.out.AvailableMonths = []MonthOption{}
	for month := 1; month <= 12; month++ {
		if seen[month] {
			pr.out.AvailableMonths = append(pr.out.AvailableMonths, MonthOption{Value: month, Label: MonthName(month)})
		}
	}

	pr.out.Status = pr.status
	return pr.out
}

func filterYear(txs []core.Transaction, year int) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if t.Date.Year() == year {
			out = append(out, t)
		}
	}
	return out
}

// monthlySummary groups rows by month (ascending) and returns the overall totals.
func monthlySummary(txs []core.Transaction) ([]flows, flows) {
	byMonth := map[yearMonth]*flows{}
	var total flows
	for _, t := range txs {
		ym := monthOf(t.Date)
		f, ok := byMonth[ym]
		if !ok {
			f = &flows{}
			byMonth[ym] = f
		}
		f.add(t)
		total.add(t)
	}
	keys := make([]yearMonth, 0, len(byMonth))
	for ym := range byMonth {
		keys = append(keys, ym)
	}
	slices.SortFunc(keys, func(a, b yearMonth) int {
		if a.less(b) {
			return -1
		}
		if b.less(a) {
			return 1
		}
		return 0
	})
	out := make([]flows, len(keys))
	for i, ym := range keys {
		out[i] = *byMonth[ym]
	}
	return out, total
}

type categoryTotals struct {
	sum    decimal.Decimal
	months int
}

// categoryMonthlyTotals sums expenses per (category, month) in one pass and
// folds them per category, counting the months each category was used.
func categoryMonthlyTotals(txs []core.Transaction) map[string]*categoryTotals {
	perMonth := map[categoryMonthKey]decimal.Decimal{}
	for _, t := range txs {
		if t.Kind != core.Expense {
			continue
		}
		key := categoryMonthKey{yearMonth: monthOf(t.Date), name: t.CategoryLabel()}
		perMonth[key] = perMonth[key].Add(t.Amount.Decimal)
	}
	out := map[string]*categoryTotals{}
	for key, sum := range perMonth {
		ct, ok := out[key.name]
		if !ok {
			ct = &categoryTotals{}
			out[key.name] = ct
		}
		ct.sum = ct.sum.Add(sum)
		ct.months++
	}
	return out
}

func (ct categoryTotals) average() decimal.Decimal {
	if ct.months == 0 {
		return decimal.Zero
	}
	return ct.sum.Div(decimal.NewFromInt(int64(ct.months)))
}

// categoryAverages divides each category's spend by the number of months in
// which that category had expenses, sorted by category name.
func categoryAverages(window []core.Transaction) []CategoryAverage {
	totals := categoryMonthlyTotals(window)
	out := make([]CategoryAverage, 0, len(totals))
	for name, ct := range totals {
		out = append(out, CategoryAverage{
			CategoryName: name,
			Average:      amount(ct.average()),
			Total:        amount(ct.sum),
		})
	}
	slices.SortFunc(out, func(a, b CategoryAverage) int {
		switch {
		case a.CategoryName < b.CategoryName:
			return -1
		case a.CategoryName > b.CategoryName:
			return 1
		}
		return 0
	})
	return out
}

// recommendedSavings averages the positive monthly balances with a floor of
// 5% of the average income; without positive months it is that 5%.
func recommendedSavings(months []flows, avgIncome decimal.Decimal) decimal.Decimal {
	floor := decimal.Zero
	if avgIncome.IsPositive() {
		floor = avgIncome.Mul(savingsFloor)
	}

	var positives []decimal.Decimal
	for _, f := range months {
		if b := f.balance(); b.IsPositive() {
			positives = append(positives, b)
		}
	}
	if len(positives) == 0 {
		return floor
	}
	recommended := decimal.Sum(positives[0], positives[1:]...).Div(decimal.NewFromInt(int64(len(positives))))
	if recommended.LessThan(floor) {
		return floor
	}
	return recommended
}

// savingsRate is (income - expense) / income * 100, or 0 without income.
func savingsRate(total flows) decimal.Decimal {
	if !total.Income.IsPositive() {
		return decimal.Zero
	}
	return total.balance().Div(total.Income).Mul(hundred)
}

func (pr *projector) degrade() {
	if pr.status == StatusExcellent {
		pr.status = StatusGood
	}
}

func (pr *projector) alert(kind, format string, args ...any) {
	pr.out.Alerts = append(pr.out.Alerts, Message{Type: kind, Message: fmt.Sprintf(format, args...)})
}

func (pr *projector) balanceAlerts(months []flows) {
	total := len(months)
	if total == 0 {
		pr.alert("info", "Nenhum dado financeiro para o ano %d. Adicione transações para ver as projeções!", pr.p.Year)
		return
	}
	negative := 0
	for _, f := range months {
		if f.balance().IsNegative() {
			negative++
		}
	}
	switch {
	case 2*negative > total:
		pr.alert("warning",
			"Atenção: Seu saldo foi negativo em %d de %d meses com transações no ano %d. É fundamental revisar suas finanças.",
			negative, total, pr.p.Year)
		pr.status = StatusCritical
	case negative > 0:
		pr.alert("info", "Seu saldo foi negativo em %d meses com transações no ano %d. Fique de olho!", negative, pr.p.Year)
		pr.degrade()
	}
}

// categoryAlerts compares each category's average with the previous year's
// average for the same category.
func (pr *projector) categoryAlerts(avgExpense decimal.Decimal) {
	prior := categoryMonthlyTotals(filterYear(pr.in.PriorYearTransactions, pr.p.Year-1))

	for _, cat := range pr.out.CategoryAverages {
		current := cat.Average.Decimal
		if hist, ok := prior[cat.CategoryName]; ok {
			historic := hist.average()
			if !historic.IsPositive() {
				continue
			}
			switch {
			case current.GreaterThan(historic.Mul(increaseFactor)):
				pr.alert("warning",
					"Gasto alto em %s: R$ %s/mês é significativamente maior que sua média de R$ %s/mês no ano anterior. Analise este aumento!",
					cat.CategoryName, current.StringFixed(2), historic.StringFixed(2))
				pr.degrade()
			case current.LessThan(historic.Mul(decreaseFactor)):
				pr.out.Suggestions = append(pr.out.Suggestions, Message{
					Type: "success",
					Message: fmt.Sprintf(
						"Ótimo trabalho em %s! Seus gastos de R$ %s/mês estão bem abaixo da média de R$ %s/mês do ano anterior. Continue assim!",
						cat.CategoryName, current.StringFixed(2), historic.StringFixed(2)),
				})
			}
			continue
		}
		if current.IsPositive() && avgExpense.IsPositive() && current.GreaterThan(avgExpense.Mul(dominantShare)) {
			pr.alert("info",
				"Atenção: Grande parte de suas despesas em %d vem de %s (R$ %s/mês). Monitore esta categoria de perto.",
				pr.p.Year, cat.CategoryName, current.StringFixed(2))
			pr.degrade()
		}
	}
}

// trend compares the two most recent months with data in the selected year.
func (pr *projector) trend(yearRows []core.Transaction) {
	byMonth := map[yearMonth]*flows{}
	for _, t := range yearRows {
		ym := monthOf(t.Date)
		f, ok := byMonth[ym]
		if !ok {
			f = &flows{}
			byMonth[ym] = f
		}
		f.add(t)
	}
	recent := make([]yearMonth, 0, len(byMonth))
	for ym := range byMonth {
		recent = append(recent, ym)
	}
	slices.SortFunc(recent, func(a, b yearMonth) int {
		if b.less(a) {
			return -1
		}
		if a.less(b) {
			return 1
		}
		return 0
	})

	pr.out.ExpenseTrend = amount(decimal.Zero)
	pr.out.IncomeTrend = amount(decimal.Zero)
	switch len(recent) {
	case 0:
		pr.out.ComparisonLabel = "nenhum mês com transações encontrado."
		return
	case 1:
		pr.out.ComparisonLabel = "dados de " + recent[0].label()
		return
	}

	newer, older := byMonth[recent[0]], byMonth[recent[1]]
	pr.out.ExpenseTrend = amount(percentChange(older.Expense, newer.Expense))
	pr.out.IncomeTrend = amount(percentChange(older.Income, newer.Income))
	pr.out.ComparisonLabel = fmt.Sprintf("entre %s e %s", recent[0].label(), recent[1].label())
}

// percentChange is (newer - older) / older * 100, or 0 when older is not positive.
func percentChange(older, newer decimal.Decimal) decimal.Decimal {
	if !older.IsPositive() {
		return decimal.Zero
	}
	return newer.Sub(older).Div(older).Mul(hundred)
}

// ActiveSavingsGoal returns the unfinished savings goal with the nearest
// deadline, preferring the most recently created on ties.
func ActiveSavingsGoal(goals []core.Goal) (core.Goal, bool) {
	var (
		best  core.Goal
		found bool
	)
	for _, g := range goals {
		if g.Kind != core.GoalSave || g.Completed {
			continue
		}
		if !found || g.Deadline.Before(best.Deadline) ||
			(g.Deadline == best.Deadline && g.CreatedAt.After(best.CreatedAt)) {
			best, found = g, true
		}
	}
	return best, found
}

func (pr *projector) goalAlerts() {
	pr.out.GoalFollowedPct = amount(decimal.Zero)
	pr.out.GoalProgress = GoalProgress{}

	g, ok := ActiveSavingsGoal(pr.in.Goals)
	if !ok {
		return
	}
	progress := g.ProgressPercent()
	remaining := g.Remaining()
	name := g.Name

	pr.out.GoalFollowedPct = amount(progress)
	pr.out.GoalProgress = GoalProgress{
		Name:      &name,
		Target:    amount(g.Target.Decimal),
		Achieved:  amount(g.Achieved.Decimal),
		Progress:  amount(progress),
		Remaining: amount(remaining.Decimal),
	}

	days := pr.today.DaysUntil(g.Deadline)
	if days <= 0 || !remaining.IsPositive() {
		return
	}
	switch {
	case progress.LessThan(decimal.NewFromInt(50)) && days < 90:
		pr.alert("warning",
			"Atenção: Sua meta '%s' está com %s%% de progresso e faltam menos de %d dias para o prazo. Acelere suas economias!",
			g.Name, progress.StringFixed(2), days)
	case progress.LessThan(decimal.NewFromInt(20)) && days < 180:
		pr.alert("warning",
			"Sua meta '%s' tem baixo progresso (%s%%) e o tempo está passando (%d dias restantes). Revise sua estratégia!",
			g.Name, progress.StringFixed(2), days)
	}
}
