package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"financas/internal/core"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "financas.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustCreateTx(t *testing.T, repo *Repository, tx core.Transaction) core.Transaction {
	t.Helper()
	if tx.Kind == "" {
		tx.Kind = core.Expense
	}
	if tx.Status == "" {
		tx.Status = core.Pending
	}
	st, err := repo.CreateTransaction(context.Background(), tx)
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	return st.Transaction
}

func TestSeedCategories(t *testing.T) {
	repo := newTestRepo(t)
	cats, err := repo.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	if len(cats) != 14 {
		t.Fatalf("seeded categories = %d, want 14", len(cats))
	}
	for i := 1; i < len(cats); i++ {
		if cats[i-1].Name > cats[i].Name {
			t.Fatalf("categories not ordered by name: %q before %q", cats[i-1].Name, cats[i].Name)
		}
	}
	kinds := map[core.CategoryKind]int{}
	for _, c := range cats {
		kinds[c.Kind]++
	}
	if kinds[core.CategoryIncome] != 4 || kinds[core.CategoryExpense] != 10 {
		t.Fatalf("unexpected kind split: %v", kinds)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "financas.db")
	for i := 0; i < 2; i++ {
		repo, err := NewSQLiteRepository(path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		repo.Close()
	}
}

func TestCategoryCRUD(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c, err := repo.CreateCategory(ctx, core.Category{Name: "Pets", Kind: core.CategoryExpense})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.ID == 0 {
		t.Fatalf("expected id to be assigned")
	}

	if _, err := repo.CreateCategory(ctx, core.Category{Name: "Pets", Kind: core.CategoryBoth}); !errors.Is(err, core.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}

	c.Description = "Ração e veterinário"
	if _, err := repo.UpdateCategory(ctx, c); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := repo.GetCategory(ctx, c.ID)
	if err != nil || got.Description != "Ração e veterinário" {
		t.Fatalf("get after update = %+v, %v", got, err)
	}

	if _, err := repo.GetCategory(ctx, 9999); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.UpdateCategory(ctx, core.Category{ID: 9999, Name: "x", Kind: core.CategoryBoth}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
}

func TestDeleteCategoryDetachesTransactions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c, err := repo.CreateCategory(ctx, core.Category{Name: "Temporária", Kind: core.CategoryExpense})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	tx := mustCreateTx(t, repo, core.Transaction{
		Description: "Compra",
		Amount:      core.MoneyFromCents(1000),
		Date:        core.NewDate(2024, 1, 5),
		CategoryID:  &c.ID,
	})
	if tx.CategoryName == nil || *tx.CategoryName != "Temporária" {
		t.Fatalf("expected joined category name, got %v", tx.CategoryName)
	}

	if err := repo.DeleteCategory(ctx, c.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	st, err := repo.GetTransaction(ctx, tx.ID)
	if err != nil {
		t.Fatalf("transaction should survive category deletion: %v", err)
	}
	if st.CategoryID != nil || st.CategoryName != nil {
		t.Fatalf("expected category link cleared, got %v", st.CategoryID)
	}
	if err := repo.DeleteCategory(ctx, c.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestTransactionRoundTripAndVersion(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.CreateTransaction(ctx, core.Transaction{
		Description: "Salário",
		Amount:      core.MoneyFromCents(512345),
		Date:        core.NewDate(2024, 2, 29),
		Kind:        core.Income,
		Status:      core.Paid,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Version != 1 {
		t.Fatalf("version = %d, want 1", created.Version)
	}
	if created.Amount.String() != "5123.45" || created.Date != core.NewDate(2024, 2, 29) {
		t.Fatalf("unexpected round trip: %+v", created.Transaction)
	}
	if created.CreatedAt.IsZero() || time.Since(created.CreatedAt) > time.Minute {
		t.Fatalf("unexpected created_at %v", created.CreatedAt)
	}

	created.Status = core.Pending
	updated, err := repo.UpdateTransaction(ctx, created.Transaction)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Version != 2 || updated.Status != core.Pending {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	missing := int64(4242)
	created.CategoryID = &missing
	if _, err := repo.UpdateTransaction(ctx, created.Transaction); !errors.Is(err, core.ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}

	deleted, err := repo.DeleteTransaction(ctx, created.ID)
	if err != nil || deleted.ID != created.ID {
		t.Fatalf("delete = %+v, %v", deleted, err)
	}
	if _, err := repo.GetTransaction(ctx, created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestListTransactionsFilters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cat, err := repo.CreateCategory(ctx, core.Category{Name: "Mercado", Kind: core.CategoryExpense})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	mustCreateTx(t, repo, core.Transaction{Description: "Feira 100%", Amount: core.MoneyFromCents(5000), Date: core.NewDate(2024, 3, 1), CategoryID: &cat.ID, Status: core.Paid})
	mustCreateTx(t, repo, core.Transaction{Description: "Supermercado", Amount: core.MoneyFromCents(25000), Date: core.NewDate(2024, 3, 15), CategoryID: &cat.ID})
	mustCreateTx(t, repo, core.Transaction{Description: "Salário", Amount: core.MoneyFromCents(500000), Date: core.NewDate(2024, 3, 5), Kind: core.Income, Status: core.Paid})
	mustCreateTx(t, repo, core.Transaction{Description: "Padaria", Amount: core.MoneyFromCents(1500), Date: core.NewDate(2024, 4, 2)})

	str := func(s string) *string { return &s }
	money := func(c int64) *core.Money { m := core.MoneyFromCents(c); return &m }
	date := func(y, m, d int) *core.Date { v := core.NewDate(y, m, d); return &v }
	kind := func(k core.TransactionKind) *core.TransactionKind { return &k }
	status := func(s core.TransactionStatus) *core.TransactionStatus { return &s }

	cases := []struct {
		name  string
		f     core.TransactionFilter
		descs []string
	}{
		{"all newest first", core.TransactionFilter{}, []string{"Padaria", "Supermercado", "Salário", "Feira 100%"}},
		{"description icontains", core.TransactionFilter{Description: str("MERCADO")}, []string{"Supermercado"}},
		{"literal percent", core.TransactionFilter{Description: str("100%")}, []string{"Feira 100%"}},
		{"amount range", core.TransactionFilter{MinAmount: money(1500), MaxAmount: money(5000)}, []string{"Padaria", "Feira 100%"}},
		{"date range", core.TransactionFilter{StartDate: date(2024, 3, 2), EndDate: date(2024, 3, 31)}, []string{"Supermercado", "Salário"}},
		{"category", core.TransactionFilter{CategoryID: &cat.ID}, []string{"Supermercado", "Feira 100%"}},
		{"kind", core.TransactionFilter{Kind: kind(core.Income)}, []string{"Salário"}},
		{"status", core.TransactionFilter{Status: status(core.Paid), Kind: kind(core.Expense)}, []string{"Feira 100%"}},
		{"unknown status", core.TransactionFilter{Status: status("paga")}, nil},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ListTransactions(ctx, tt.f)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(got) != len(tt.descs) {
				t.Fatalf("got %d transactions, want %d (%v)", len(got), len(tt.descs), got)
			}
			for i, d := range tt.descs {
				if got[i].Description != d {
					t.Errorf("[%d] = %q, want %q", i, got[i].Description, d)
				}
			}
		})
	}
}

func TestListTransactionsAccentedDescription(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	mustCreateTx(t, repo, core.Transaction{Description: "SALÁRIO MARÇO", Amount: core.MoneyFromCents(500000), Date: core.NewDate(2024, 3, 5), Kind: core.Income})
	mustCreateTx(t, repo, core.Transaction{Description: "Aluguel", Amount: core.MoneyFromCents(150000), Date: core.NewDate(2024, 3, 6)})

	for _, q := range []string{"salário", "março", "SALÁRIO"} {
		f := core.TransactionFilter{Description: &q}
		got, err := repo.ListTransactions(ctx, f)
		if err != nil {
			t.Fatalf("list %q: %v", q, err)
		}
		if len(got) != 1 || got[0].Description != "SALÁRIO MARÇO" {
			t.Errorf("descricao=%q matched %v", q, got)
		}
		if !f.Match(got[0]) {
			t.Errorf("in-memory Match disagrees for %q", q)
		}
	}
}

func TestListTransactionsUnroundedAmountBounds(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	mustCreateTx(t, repo, core.Transaction{Description: "dez", Amount: core.MoneyFromCents(1000), Date: core.NewDate(2024, 3, 5)})
	mustCreateTx(t, repo, core.Transaction{Description: "dez e um", Amount: core.MoneyFromCents(1001), Date: core.NewDate(2024, 3, 6)})

	bound := func(s string) *core.Money {
		m, err := core.ParseAmountBound(s)
		if err != nil {
			t.Fatalf("bound %q: %v", s, err)
		}
		return &m
	}
	cases := []struct {
		name  string
		f     core.TransactionFilter
		descs []string
	}{
		{"max below next cent", core.TransactionFilter{MaxAmount: bound("10.005")}, []string{"dez"}},
		{"min above cent", core.TransactionFilter{MinAmount: bound("10.001")}, []string{"dez e um"}},
		{"negative min", core.TransactionFilter{MinAmount: bound("-1")}, []string{"dez e um", "dez"}},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ListTransactions(ctx, tt.f)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(got) != len(tt.descs) {
				t.Fatalf("got %d transactions, want %d (%v)", len(got), len(tt.descs), got)
			}
			for i, d := range tt.descs {
				if got[i].Description != d {
					t.Errorf("[%d] = %q, want %q", i, got[i].Description, d)
				}
			}
		})
	}
}

func TestTransactionsInMonthAndYears(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	mustCreateTx(t, repo, core.Transaction{Description: "a", Amount: core.MoneyFromCents(100), Date: core.NewDate(2023, 3, 10)})
	mustCreateTx(t, repo, core.Transaction{Description: "b", Amount: core.MoneyFromCents(100), Date: core.NewDate(2024, 3, 11)})
	mustCreateTx(t, repo, core.Transaction{Description: "c", Amount: core.MoneyFromCents(100), Date: core.NewDate(2024, 11, 1)})

	march, err := repo.TransactionsInMonth(ctx, 3)
	if err != nil || len(march) != 2 {
		t.Fatalf("march = %v, %v", march, err)
	}
	all, err := repo.TransactionsInMonth(ctx, 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("all = %v, %v", all, err)
	}

	years, err := repo.TransactionYears(ctx)
	if err != nil {
		t.Fatalf("years: %v", err)
	}
	if len(years) != 2 || years[0] != 2024 || years[1] != 2023 {
		t.Fatalf("years = %v, want [2024 2023]", years)
	}
}

func TestGoalCRUDOrdering(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	late, err := repo.CreateGoal(ctx, core.Goal{Name: "Carro", Kind: core.GoalSave, Target: core.MoneyFromCents(5000000),
		StartDate: core.NewDate(2024, 1, 1), Deadline: core.NewDate(2026, 1, 1)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	soon, err := repo.CreateGoal(ctx, core.Goal{Name: "Viagem", Kind: core.GoalSave, Target: core.MoneyFromCents(800000),
		Achieved: core.MoneyFromCents(100000), StartDate: core.NewDate(2024, 1, 1), Deadline: core.NewDate(2024, 12, 1)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	goals, err := repo.ListGoals(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(goals) != 2 || goals[0].ID != soon.ID || goals[1].ID != late.ID {
		t.Fatalf("unexpected order: %+v", goals)
	}

	soon.Completed = true
	updated, err := repo.UpdateGoal(ctx, soon)
	if err != nil || !updated.Completed || updated.Achieved.String() != "1000.00" {
		t.Fatalf("update = %+v, %v", updated, err)
	}

	if err := repo.DeleteGoal(ctx, late.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetGoal(ctx, late.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRebind(t *testing.T) {
	q := "SELECT * FROM t WHERE a = ? AND b = ?"
	if got := SQLite.rebind(q); got != q {
		t.Fatalf("sqlite rebind changed query: %s", got)
	}
	if got := Postgres.rebind(q); got != "SELECT * FROM t WHERE a = $1 AND b = $2" {
		t.Fatalf("postgres rebind = %s", got)
	}
}

func TestDateScanner(t *testing.T) {
	cases := []any{"2024-05-06", []byte("2024-05-06"), time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), "2024-05-06T00:00:00Z"}
	for _, src := range cases {
		var d dbDate
		if err := d.Scan(src); err != nil {
			t.Fatalf("scan %v: %v", src, err)
		}
		if d.Date != core.NewDate(2024, 5, 6) {
			t.Fatalf("scan %v = %v", src, d.Date)
		}
	}
}
