package memory

import (
	"context"
	"slices"
	"sync"

	"financas/internal/core"
	"financas/internal/sheets"
)

var _ sheets.Exporter = (*Store)(nil)

// Row is one mirrored transaction.
type Row struct {
	Transaction core.Transaction
	Version     int64
}

// Store keeps the mirror in memory. The worker uses it when no spreadsheet
// is configured.
type Store struct {
	mu   sync.Mutex
	rows map[int64]Row
}

func New() *Store {
	return &Store{rows: map[int64]Row{}}
}

func (s *Store) Upsert(_ context.Context, t core.Transaction, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.rows[t.ID]; ok && cur.Version > version {
		return nil
	}
	s.rows[t.ID] = Row{Transaction: t, Version: version}
	return nil
}

func (s *Store) Remove(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, id)
	return nil
}

func (s *Store) ReplaceAll(_ context.Context, txs []core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = make(map[int64]Row, len(txs))
	for _, t := range txs {
		s.rows[t.ID] = Row{Transaction: t}
	}
	return nil
}

// Rows returns the mirror ordered by transaction id.
func (s *Store) Rows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Row, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b Row) int {
		switch {
		case a.Transaction.ID < b.Transaction.ID:
			return -1
		case a.Transaction.ID > b.Transaction.ID:
			return 1
		}
		return 0
	})
	return out
}
