package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"financas/internal/cache"
	"financas/internal/core"
	"financas/internal/log"
	"financas/internal/report"
)

// ReportService loads rows for the report endpoints and caches the computed
// payloads until the next write.
type ReportService struct {
	store ReportStore
	cache cache.Reports
	clock Clock
}

func NewReportService(store ReportStore, reports cache.Reports, clock Clock) *ReportService {
	if reports == nil {
		reports = cache.Noop{}
	}
	return &ReportService{store: store, cache: reports, clock: clock}
}

// Analysis returns the category/month breakdown and monthly balances.
func (s *ReportService) Analysis(ctx context.Context, p report.AnalysisParams) (report.Analysis, error) {
	key := fmt.Sprintf("analise:mes=%d:categoria=%s", p.Month, optionalID(p.CategoryID))
	return cached(ctx, s.cache, key, func() (report.Analysis, error) {
		rows, err := s.store.TransactionsInMonth(ctx, p.Month)
		if err != nil {
			return report.Analysis{}, fmt.Errorf("load transactions: %w", err)
		}
		return report.Analyze(rows, p), nil
	})
}

// Projection computes the projection for year (the current year when zero)
// over the last months months.
func (s *ReportService) Projection(ctx context.Context, year, months int) (report.Projection, error) {
	now := s.clock()
	if year == 0 {
		year = now.Year()
	}
	if months <= 0 {
		months = report.DefaultMonths
	}
	key := fmt.Sprintf("projecao:%d:%d:%s", year, months, core.DateOf(now))
	return cached(ctx, s.cache, key, func() (report.Projection, error) {
		in, err := s.loadProjectionInput(ctx, year)
		if err != nil {
			return report.Projection{}, err
		}
		return report.Project(in, report.ProjectionParams{Year: year, Months: months, Now: now}), nil
	})
}

func (s *ReportService) loadProjectionInput(ctx context.Context, year int) (report.ProjectionInput, error) {
	var in report.ProjectionInput
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rows, err := s.store.ListTransactions(gctx, yearFilter(year))
		if err != nil {
			return fmt.Errorf("load %d transactions: %w", year, err)
		}
		in.YearTransactions = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.store.ListTransactions(gctx, yearFilter(year-1))
		if err != nil {
			return fmt.Errorf("load %d transactions: %w", year-1, err)
		}
		in.PriorYearTransactions = rows
		return nil
	})
	g.Go(func() error {
		years, err := s.store.TransactionYears(gctx)
		if err != nil {
			return fmt.Errorf("load transaction years: %w", err)
		}
		in.Years = years
		return nil
	})
	g.Go(func() error {
		goals, err := s.store.ListGoals(gctx)
		if err != nil {
			return fmt.Errorf("load goals: %w", err)
		}
		in.Goals = goals
		return nil
	})

	if err := g.Wait(); err != nil {
		return report.ProjectionInput{}, err
	}
	return in, nil
}

// Dashboard returns the snapshot for p. A month period without year or
// month falls back to the current month.
func (s *ReportService) Dashboard(ctx context.Context, p report.DashboardParams) (report.DashboardSnapshot, error) {
	if p.Period == "" {
		p.Period = report.PeriodMonth
	}
	f := core.TransactionFilter{}
	if !p.IsAll() {
		today := s.clock.today()
		if p.Year == 0 {
			p.Year = today.Year()
		}
		if p.Month == 0 {
			p.Month = today.Month()
		}
		start := core.NewDate(p.Year, p.Month, 1)
		end := start.AddDays(40)
		end = core.NewDate(end.Year(), end.Month(), 1).AddDays(-1)
		f.StartDate, f.EndDate = &start, &end
	}

	key := "dashboard:" + p.Label()
	return cached(ctx, s.cache, key, func() (report.DashboardSnapshot, error) {
		rows, err := s.store.ListTransactions(ctx, f)
		if err != nil {
			return report.DashboardSnapshot{}, fmt.Errorf("load transactions: %w", err)
		}
		return report.Dashboard(rows, p), nil
	})
}

func yearFilter(year int) core.TransactionFilter {
	start, end := core.NewDate(year, 1, 1), core.NewDate(year, 12, 31)
	return core.TransactionFilter{StartDate: &start, EndDate: &end}
}

func optionalID(id *int64) string {
	if id == nil {
		return "todas"
	}
	return fmt.Sprint(*id)
}

// cached serves key from c when present, otherwise computes and stores it
// under the generation seen before computing.
func cached[T any](ctx context.Context, c cache.Reports, key string, compute func() (T, error)) (T, error) {
	data, gen, ok := c.Get(ctx, key)
	if ok {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			slog.DebugContext(ctx, "Report cache hit", log.FieldComponent, log.ComponentReport, "key", key)
			return v, nil
		}
	}

	v, err := compute()
	if err != nil {
		return v, err
	}
	if data, err := json.Marshal(v); err == nil {
		c.Set(ctx, gen, key, data)
	}
	return v, nil
}
