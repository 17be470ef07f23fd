package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"financas/internal/amqp"
	"financas/internal/cache"
	"financas/internal/core"
	"financas/internal/report"
	"financas/internal/storage"
)

// fakeStore is an in-memory stand-in for storage.Repository.
type fakeStore struct {
	mu           sync.Mutex
	nextID       int64
	categories   map[int64]core.Category
	transactions map[int64]storage.StoredTransaction
	goals        map[int64]core.Goal
	filters      []core.TransactionFilter
	failReads    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		categories:   map[int64]core.Category{},
		transactions: map[int64]storage.StoredTransaction{},
		goals:        map[int64]core.Goal{},
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) ListCategories(context.Context) ([]core.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.Category, 0, len(f.categories))
	for _, c := range f.categories {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeStore) GetCategory(_ context.Context, id int64) (core.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.categories[id]
	if !ok {
		return core.Category{}, core.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.categories {
		if existing.Name == c.Name {
			return core.Category{}, core.ErrDuplicateName
		}
	}
	c.ID = f.id()
	f.categories[c.ID] = c
	return c, nil
}

func (f *fakeStore) UpdateCategory(_ context.Context, c core.Category) (core.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.categories[c.ID]; !ok {
		return core.Category{}, core.ErrNotFound
	}
	f.categories[c.ID] = c
	return c, nil
}

func (f *fakeStore) DeleteCategory(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.categories[id]; !ok {
		return core.ErrNotFound
	}
	delete(f.categories, id)
	return nil
}

func (f *fakeStore) ListTransactions(_ context.Context, filter core.TransactionFilter) ([]core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReads != nil {
		return nil, f.failReads
	}
	f.filters = append(f.filters, filter)
	var out []core.Transaction
	for _, st := range f.transactions {
		if filter.Match(st.Transaction) {
			out = append(out, st.Transaction)
		}
	}
	return out, nil
}

func (f *fakeStore) TransactionsInMonth(_ context.Context, month int) ([]core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []core.Transaction
	for _, st := range f.transactions {
		if month == 0 || st.Date.Month() == month {
			out = append(out, st.Transaction)
		}
	}
	return out, nil
}

func (f *fakeStore) TransactionYears(context.Context) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[int]bool{}
	var out []int
	for _, st := range f.transactions {
		if y := st.Date.Year(); !seen[y] {
			seen[y] = true
			out = append(out, y)
		}
	}
	return out, nil
}

func (f *fakeStore) GetTransaction(_ context.Context, id int64) (storage.StoredTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.transactions[id]
	if !ok {
		return storage.StoredTransaction{}, core.ErrNotFound
	}
	return st, nil
}

func (f *fakeStore) CreateTransaction(_ context.Context, t core.Transaction) (storage.StoredTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.CategoryID != nil {
		c, ok := f.categories[*t.CategoryID]
		if !ok {
			return storage.StoredTransaction{}, core.ErrUnknownCategory
		}
		name := c.Name
		t.CategoryName = &name
	}
	t.ID = f.id()
	st := storage.StoredTransaction{Transaction: t, Version: 1}
	f.transactions[t.ID] = st
	return st, nil
}

func (f *fakeStore) UpdateTransaction(_ context.Context, t core.Transaction) (storage.StoredTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev, ok := f.transactions[t.ID]
	if !ok {
		return storage.StoredTransaction{}, core.ErrNotFound
	}
	st := storage.StoredTransaction{Transaction: t, Version: prev.Version + 1}
	f.transactions[t.ID] = st
	return st, nil
}

func (f *fakeStore) DeleteTransaction(_ context.Context, id int64) (storage.StoredTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.transactions[id]
	if !ok {
		return storage.StoredTransaction{}, core.ErrNotFound
	}
	delete(f.transactions, id)
	return st, nil
}

func (f *fakeStore) ListGoals(context.Context) ([]core.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.Goal, 0, len(f.goals))
	for _, g := range f.goals {
		out = append(out, g)
	}
	return out, nil
}

func (f *fakeStore) GetGoal(_ context.Context, id int64) (core.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.goals[id]
	if !ok {
		return core.Goal{}, core.ErrNotFound
	}
	return g, nil
}

func (f *fakeStore) CreateGoal(_ context.Context, g core.Goal) (core.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g.ID = f.id()
	f.goals[g.ID] = g
	return g, nil
}

func (f *fakeStore) UpdateGoal(_ context.Context, g core.Goal) (core.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.goals[g.ID]; !ok {
		return core.Goal{}, core.ErrNotFound
	}
	f.goals[g.ID] = g
	return g, nil
}

func (f *fakeStore) DeleteGoal(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.goals[id]; !ok {
		return core.ErrNotFound
	}
	delete(f.goals, id)
	return nil
}

type fakePublisher struct {
	events []*amqp.TransactionEvent
	err    error
}

func (p *fakePublisher) PublishTransactionEvent(_ context.Context, e *amqp.TransactionEvent) error {
	p.events = append(p.events, e)
	return p.err
}

type countingCache struct {
	cache.Reports
	invalidations int
}

func (c *countingCache) Invalidate(ctx context.Context) error {
	c.invalidations++
	return c.Reports.Invalidate(ctx)
}

func fixedClock(y, m, d int) Clock {
	loc := time.FixedZone("BRT", -3*60*60)
	return func() time.Time { return time.Date(y, time.Month(m), d, 22, 30, 0, 0, loc) }
}

func TestTransactionService_CreateDefaultsAndEvent(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	reports := &countingCache{Reports: cache.NewLocal(8, time.Minute)}
	svc := NewTransactionService(store, pub, reports, fixedClock(2024, 3, 31))

	created, err := svc.Create(context.Background(), core.Transaction{
		Description: "Mercado",
		Amount:      core.MoneyFromCents(4590),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	// Late evening in the configured zone is still March 31.
	if created.Date != core.NewDate(2024, 3, 31) {
		t.Errorf("default date = %s", created.Date)
	}
	if created.Kind != core.Expense || created.Status != core.Pending {
		t.Errorf("defaults not applied: %+v", created)
	}
	if len(pub.events) != 1 || pub.events[0].Action != amqp.ActionCreated || pub.events[0].Version != 1 {
		t.Fatalf("events = %+v", pub.events)
	}
	if reports.invalidations != 1 {
		t.Errorf("invalidations = %d, want 1", reports.invalidations)
	}
}

func TestTransactionService_PublishFailureDoesNotFailWrite(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := NewTransactionService(store, pub, nil, fixedClock(2024, 1, 1))

	created, err := svc.Create(context.Background(), core.Transaction{Description: "Luz", Amount: core.MoneyFromCents(100)})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := store.GetTransaction(context.Background(), created.ID); err != nil {
		t.Errorf("transaction not stored: %v", err)
	}
}

func TestTransactionService_NilPublisher(t *testing.T) {
	svc := NewTransactionService(newFakeStore(), nil, nil, fixedClock(2024, 1, 1))
	if _, err := svc.Create(context.Background(), core.Transaction{Description: "Luz", Amount: core.MoneyFromCents(100)}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
}

func TestTransactionService_Validation(t *testing.T) {
	store := newFakeStore()
	svc := NewTransactionService(store, nil, nil, fixedClock(2024, 1, 1))

	tests := []struct {
		name string
		tx   core.Transaction
		want error
	}{
		{"empty description", core.Transaction{Amount: core.MoneyFromCents(100)}, core.ErrEmptyDescription},
		{"bad kind", core.Transaction{Description: "x", Amount: core.MoneyFromCents(100), Kind: "transferencia"}, core.ErrInvalidKind},
		{"unknown category", core.Transaction{Description: "x", Amount: core.MoneyFromCents(100), CategoryID: ptr(int64(99))}, core.ErrUnknownCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), tt.tx); !errors.Is(err, tt.want) {
				t.Errorf("Create() error = %v, want %v", err, tt.want)
			}
		})
	}
	if len(store.transactions) != 0 {
		t.Errorf("invalid transactions were stored")
	}
}

func TestTransactionService_UpdateAndDelete(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	svc := NewTransactionService(store, pub, nil, fixedClock(2024, 1, 1))
	ctx := context.Background()

	created, err := svc.Create(ctx, core.Transaction{Description: "Aluguel", Amount: core.MoneyFromCents(150000)})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	created.Status = core.Paid
	if _, err := svc.Update(ctx, created.ID, created); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := svc.Delete(ctx, created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}

	if len(pub.events) != 3 {
		t.Fatalf("events = %d, want 3", len(pub.events))
	}
	last := pub.events[2]
	if last.Action != amqp.ActionDeleted || last.Version != 2 || last.Transaction.Status != core.Paid {
		t.Errorf("delete event = %+v", last)
	}
}

func TestCategoryService(t *testing.T) {
	store := newFakeStore()
	reports := &countingCache{Reports: cache.Noop{}}
	svc := NewCategoryService(store, reports)
	ctx := context.Background()

	c, err := svc.Create(ctx, core.Category{Name: "  Pets "})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if c.Name != "Pets" || c.Kind != core.CategoryExpense {
		t.Errorf("created = %+v", c)
	}
	if _, err := svc.Create(ctx, core.Category{Name: "Pets"}); !errors.Is(err, core.ErrDuplicateName) {
		t.Errorf("duplicate error = %v", err)
	}
	if _, err := svc.Create(ctx, core.Category{Name: "X", Kind: "outro"}); !errors.Is(err, core.ErrInvalidKind) {
		t.Errorf("kind error = %v", err)
	}
	if _, err := svc.Update(ctx, c.ID, core.Category{Name: "Animais", Kind: core.CategoryBoth}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if err := svc.Delete(ctx, c.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := svc.Delete(ctx, c.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Delete() missing error = %v", err)
	}
	if reports.invalidations != 2 {
		t.Errorf("invalidations = %d, want 2", reports.invalidations)
	}
}

func TestGoalService(t *testing.T) {
	store := newFakeStore()
	svc := NewGoalService(store, nil, fixedClock(2024, 5, 10))
	ctx := context.Background()

	if _, err := svc.Create(ctx, core.Goal{Name: "Viagem", Target: core.MoneyFromCents(100)}); !errors.Is(err, core.ErrMissingDeadline) {
		t.Errorf("missing deadline error = %v", err)
	}
	g, err := svc.Create(ctx, core.Goal{Name: "Viagem", Target: core.MoneyFromCents(500000), Deadline: core.NewDate(2025, 1, 1)})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if g.Kind != core.GoalSave || g.StartDate != core.NewDate(2024, 5, 10) {
		t.Errorf("defaults not applied: %+v", g)
	}
	g.Achieved = core.MoneyFromCents(100000)
	updated, err := svc.Update(ctx, g.ID, g)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !updated.ProgressPercent().Equal(core.MoneyFromCents(2000).Decimal) {
		t.Errorf("progress = %s", updated.ProgressPercent())
	}
	if err := svc.Delete(ctx, g.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
}

func seedTransactions(t *testing.T, store *fakeStore, txs ...core.Transaction) {
	t.Helper()
	for _, tx := range txs {
		if _, err := store.CreateTransaction(context.Background(), tx); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func tx(kind core.TransactionKind, cents int64, date core.Date) core.Transaction {
	return core.Transaction{Description: "t", Amount: core.MoneyFromCents(cents), Date: date, Kind: kind, Status: core.Paid}
}

func TestReportService_Projection(t *testing.T) {
	store := newFakeStore()
	seedTransactions(t, store,
		tx(core.Expense, 10000, core.NewDate(2024, 1, 5)),
		tx(core.Expense, 5000, core.NewDate(2024, 2, 10)),
		tx(core.Income, 50000, core.NewDate(2024, 1, 5)),
		tx(core.Expense, 7000, core.NewDate(2023, 6, 1)),
	)
	svc := NewReportService(store, nil, fixedClock(2024, 6, 15))

	p, err := svc.Projection(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("Projection() error = %v", err)
	}
	if p.SelectedYear != 2024 || p.MonthsAnalyzed != 2 {
		t.Errorf("year = %d months = %d", p.SelectedYear, p.MonthsAnalyzed)
	}
	if p.AverageExpense.String() != "75.00" {
		t.Errorf("average expense = %s", p.AverageExpense)
	}
	if len(p.AvailableYears) != 2 || p.AvailableYears[0] != 2024 {
		t.Errorf("years = %v", p.AvailableYears)
	}
	if p.YearExpense.String() != "150.00" {
		t.Errorf("year expense = %s, prior year rows leaked in", p.YearExpense)
	}
}

func TestReportService_LoadError(t *testing.T) {
	store := newFakeStore()
	store.failReads = errors.New("db gone")
	svc := NewReportService(store, nil, fixedClock(2024, 6, 15))

	if _, err := svc.Projection(context.Background(), 2024, 12); err == nil {
		t.Fatal("expected load error")
	}
	if _, err := svc.Dashboard(context.Background(), report.DashboardParams{}); err == nil {
		t.Fatal("expected load error")
	}
}

func TestReportService_DashboardDefaultsToCurrentMonth(t *testing.T) {
	store := newFakeStore()
	seedTransactions(t, store,
		tx(core.Expense, 1000, core.NewDate(2024, 2, 29)),
		tx(core.Expense, 2000, core.NewDate(2024, 3, 1)),
	)
	svc := NewReportService(store, nil, fixedClock(2024, 2, 10))

	d, err := svc.Dashboard(context.Background(), report.DashboardParams{})
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if d.ReferenceLabel != "02/2024" || d.TotalExpense.String() != "10.00" {
		t.Errorf("snapshot = %+v", d)
	}
	f := store.filters[len(store.filters)-1]
	if *f.StartDate != core.NewDate(2024, 2, 1) || *f.EndDate != core.NewDate(2024, 2, 29) {
		t.Errorf("month bounds = %s..%s", f.StartDate, f.EndDate)
	}

	all, err := svc.Dashboard(context.Background(), report.DashboardParams{Period: report.PeriodAll})
	if err != nil {
		t.Fatalf("Dashboard(all) error = %v", err)
	}
	if all.TotalExpense.String() != "30.00" {
		t.Errorf("all total = %s", all.TotalExpense)
	}
}

func TestReportService_CacheInvalidatedByWrites(t *testing.T) {
	store := newFakeStore()
	reports := cache.NewLocal(16, time.Hour)
	clock := fixedClock(2024, 4, 20)
	svc := NewReportService(store, reports, clock)
	txs := NewTransactionService(store, nil, reports, clock)
	ctx := context.Background()

	seedTransactions(t, store, tx(core.Expense, 1000, core.NewDate(2024, 4, 1)))
	first, err := svc.Analysis(ctx, report.AnalysisParams{Month: 4})
	if err != nil {
		t.Fatalf("Analysis() error = %v", err)
	}

	// Written behind the service's back: the cached payload is still served.
	seedTransactions(t, store, tx(core.Expense, 1000, core.NewDate(2024, 4, 2)))
	again, _ := svc.Analysis(ctx, report.AnalysisParams{Month: 4})
	if again.MonthlyBalances[0].Expense.String() != first.MonthlyBalances[0].Expense.String() {
		t.Fatalf("expected cached analysis")
	}

	if _, err := txs.Create(ctx, tx(core.Expense, 1000, core.NewDate(2024, 4, 3))); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	fresh, _ := svc.Analysis(ctx, report.AnalysisParams{Month: 4})
	if got := fresh.MonthlyBalances[0].Expense.String(); got != "30.00" {
		t.Errorf("expense after write = %s, want 30.00", got)
	}
}

// writeDuringRead runs a write once, after the first month read returns.
type writeDuringRead struct {
	*fakeStore
	write func()
}

func (w *writeDuringRead) TransactionsInMonth(ctx context.Context, month int) ([]core.Transaction, error) {
	rows, err := w.fakeStore.TransactionsInMonth(ctx, month)
	if w.write != nil {
		write := w.write
		w.write = nil
		write()
	}
	return rows, err
}

func TestReportService_WriteDuringComputeIsNotCached(t *testing.T) {
	store := newFakeStore()
	reports := cache.NewLocal(16, time.Hour)
	clock := fixedClock(2024, 4, 20)
	txs := NewTransactionService(store, nil, reports, clock)
	ctx := context.Background()

	seedTransactions(t, store, tx(core.Expense, 1000, core.NewDate(2024, 4, 1)))
	racing := &writeDuringRead{fakeStore: store}
	racing.write = func() {
		if _, err := txs.Create(ctx, tx(core.Expense, 1000, core.NewDate(2024, 4, 2))); err != nil {
			t.Errorf("Create() error = %v", err)
		}
	}
	svc := NewReportService(racing, reports, clock)

	during, err := svc.Analysis(ctx, report.AnalysisParams{Month: 4})
	if err != nil {
		t.Fatalf("Analysis() error = %v", err)
	}
	if got := during.MonthlyBalances[0].Expense.String(); got != "10.00" {
		t.Fatalf("expense read before the write = %s, want 10.00", got)
	}

	after, err := svc.Analysis(ctx, report.AnalysisParams{Month: 4})
	if err != nil {
		t.Fatalf("Analysis() error = %v", err)
	}
	if got := after.MonthlyBalances[0].Expense.String(); got != "20.00" {
		t.Errorf("expense after committed write = %s, want 20.00", got)
	}
}

func ptr[T any](v T) *T { return &v }
