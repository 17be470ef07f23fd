package sheets

import (
	"context"

	"financas/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionWriter mirrors a transaction row. Writes carrying a version
	// older than the stored one are ignored so redelivered events are safe.
	TransactionWriter interface {
		Upsert(ctx context.Context, t core.Transaction, version int64) error
	}

	TransactionDeleter interface {
		Remove(ctx context.Context, id int64) error
	}

	// SnapshotWriter replaces the whole mirror with txs.
	SnapshotWriter interface {
		ReplaceAll(ctx context.Context, txs []core.Transaction) error
	}

	Exporter interface {
		TransactionWriter
		TransactionDeleter
		SnapshotWriter
	}
)

// Header is the first row of the mirror sheet.
var Header = []string{"ID", "Data", "Descrição", "Tipo", "Status", "Categoria", "Valor", "Versão"}

// Row renders t as mirror sheet cells, in Header order.
func Row(t core.Transaction, version int64) []any {
	category := ""
	if t.CategoryName != nil {
		category = *t.CategoryName
	}
	return []any{
		t.ID,
		t.Date.String(),
		t.Description,
		string(t.Kind),
		string(t.Status),
		category,
		t.Amount.String(),
		version,
	}
}
