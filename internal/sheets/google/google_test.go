package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"

	goption "google.golang.org/api/option"

	"financas/internal/core"
)

// fakeSheet serves the subset of the Sheets values API the client uses.
type fakeSheet struct {
	mu     sync.Mutex
	grid   [][]string
	writes int
}

var rowRange = regexp.MustCompile(`A(\d+):H(\d+)$`)

func (f *fakeSheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, rng, ok := strings.Cut(r.URL.Path, "/values/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	isClear := strings.HasSuffix(rng, ":clear")
	rng = strings.TrimSuffix(rng, ":clear")

	switch {
	case r.Method == http.MethodGet:
		out := map[string]any{"range": rng}
		if len(f.grid) > 0 {
			out["values"] = f.grid
		}
		json.NewEncoder(w).Encode(out)
	case r.Method == http.MethodPost && isClear:
		m := rowRange.FindStringSubmatch(rng)
		if m == nil {
			f.grid = nil
		} else {
			row, _ := strconv.Atoi(m[1])
			if row <= len(f.grid) {
				f.grid[row-1] = []string{}
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"clearedRange": rng})
	case r.Method == http.MethodPut:
		var body struct {
			Values [][]any `json:"values"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		m := rowRange.FindStringSubmatch(rng)
		if m == nil {
			http.Error(w, "bad range "+rng, http.StatusBadRequest)
			return
		}
		first, _ := strconv.Atoi(m[1])
		for i, vals := range body.Values {
			idx := first - 1 + i
			for len(f.grid) <= idx {
				f.grid = append(f.grid, []string{})
			}
			cells := make([]string, len(vals))
			for j, v := range vals {
				cells[j] = fmt.Sprint(v)
			}
			f.grid[idx] = cells
		}
		f.writes++
		json.NewEncoder(w).Encode(map[string]any{"updatedRange": rng})
	default:
		http.Error(w, "unexpected "+r.Method, http.StatusMethodNotAllowed)
	}
}

func newTestClient(t *testing.T) (*Client, *fakeSheet) {
	t.Helper()
	fake := &fakeSheet{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), Config{SpreadsheetID: "sheet-id"},
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c, fake
}

func transaction(id int64, desc string) core.Transaction {
	cat := "Moradia"
	return core.Transaction{
		ID:           id,
		Description:  desc,
		Amount:       core.MoneyFromCents(150000),
		Date:         core.NewDate(2024, 3, 5),
		Kind:         core.Expense,
		Status:       core.Paid,
		CategoryName: &cat,
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "x"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")
	if _, err := NewFromEnv(context.Background()); err == nil {
		t.Fatal("expected error for missing GOOGLE_SPREADSHEET_ID")
	}
}

func TestClient_UpsertAppendsThenUpdates(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	if err := c.Upsert(ctx, transaction(7, "Aluguel"), 1); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := c.Upsert(ctx, transaction(8, "Luz"), 1); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := c.Upsert(ctx, transaction(7, "Aluguel março"), 2); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if len(fake.grid) != 3 {
		t.Fatalf("grid = %v", fake.grid)
	}
	if fake.grid[0][0] != "ID" || fake.grid[0][7] != "Versão" {
		t.Errorf("header = %v", fake.grid[0])
	}
	want := []string{"7", "2024-03-05", "Aluguel março", "despesa", "pago", "Moradia", "1500.00", "2"}
	if strings.Join(fake.grid[1], "|") != strings.Join(want, "|") {
		t.Errorf("row = %v, want %v", fake.grid[1], want)
	}
	if fake.grid[2][2] != "Luz" {
		t.Errorf("second row = %v", fake.grid[2])
	}
}

func TestClient_UpsertSkipsStaleVersion(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	c.Upsert(ctx, transaction(7, "novo"), 3)
	writes := fake.writes
	if err := c.Upsert(ctx, transaction(7, "antigo"), 2); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if fake.writes != writes || fake.grid[1][2] != "novo" {
		t.Errorf("stale version overwrote the row: %v", fake.grid[1])
	}
}

func TestClient_Remove(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	c.Upsert(ctx, transaction(1, "a"), 1)
	c.Upsert(ctx, transaction(2, "b"), 1)
	if err := c.Remove(ctx, 1); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if len(fake.grid[1]) != 0 || fake.grid[2][0] != "2" {
		t.Errorf("grid = %v", fake.grid)
	}
	if err := c.Remove(ctx, 99); err != nil {
		t.Errorf("Remove() of a missing row error = %v", err)
	}
}

func TestClient_ReplaceAll(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	c.Upsert(ctx, transaction(1, "a"), 1)
	if err := c.ReplaceAll(ctx, []core.Transaction{transaction(5, "x"), transaction(6, "y")}); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}
	if len(fake.grid) != 3 || fake.grid[1][0] != "5" || fake.grid[2][0] != "6" || fake.grid[2][7] != "0" {
		t.Errorf("grid = %v", fake.grid)
	}
}

func TestFindRow(t *testing.T) {
	values := [][]any{
		{"ID", "Data"},
		{},
		{"12", "2024-01-01", "x", "despesa", "pago", "", "1.00", "4"},
		{"13"},
	}
	tests := []struct {
		id      int64
		row     int
		version int64
		found   bool
	}{
		{12, 3, 4, true},
		{13, 4, 0, true},
		{14, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.id), func(t *testing.T) {
			row, version, found := findRow(values, tt.id)
			if row != tt.row || version != tt.version || found != tt.found {
				t.Errorf("findRow(%d) = %d, %d, %v", tt.id, row, version, found)
			}
		})
	}
}
