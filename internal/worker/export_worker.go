package worker

import (
	"context"
	"fmt"
	"log/slog"

	"financas/internal/amqp"
	"financas/internal/core"
	"financas/internal/sheets"
)

// TransactionSource lists every stored transaction for a full resync.
type TransactionSource interface {
	ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error)
}

// ExportWorker mirrors transaction events into a spreadsheet.
type ExportWorker struct {
	exporter sheets.Exporter
	source   TransactionSource
}

func NewExportWorker(exporter sheets.Exporter, source TransactionSource) *ExportWorker {
	return &ExportWorker{exporter: exporter, source: source}
}

// HandleEvent applies one transaction event. Returning an error requeues it.
func (w *ExportWorker) HandleEvent(ctx context.Context, e *amqp.TransactionEvent) error {
	switch e.Action {
	case amqp.ActionCreated, amqp.ActionUpdated:
		if err := w.exporter.Upsert(ctx, e.Transaction, e.Version); err != nil {
			return fmt.Errorf("export transaction %d: %w", e.ID, err)
		}
	case amqp.ActionDeleted:
		if err := w.exporter.Remove(ctx, e.ID); err != nil {
			return fmt.Errorf("remove transaction %d: %w", e.ID, err)
		}
	default:
		slog.WarnContext(ctx, "Ignoring event with unknown action", "event_id", e.EventID, "action", e.Action)
		return nil
	}

	slog.InfoContext(ctx, "Transaction event exported",
		"event_id", e.EventID,
		"action", e.Action,
		"id", e.ID,
		"version", e.Version)
	return nil
}

// Resync rewrites the whole mirror from the database. It recovers from
// events lost while the worker was down.
func (w *ExportWorker) Resync(ctx context.Context) error {
	if w.source == nil {
		return fmt.Errorf("resync: no transaction source configured")
	}
	txs, err := w.source.ListTransactions(ctx, core.TransactionFilter{})
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	if err := w.exporter.ReplaceAll(ctx, txs); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	slog.InfoContext(ctx, "Startup resync completed", "transactions", len(txs))
	return nil
}
