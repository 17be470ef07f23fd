package services

import (
	"context"
	"log/slog"

	"financas/internal/amqp"
	"financas/internal/cache"
	"financas/internal/core"
	"financas/internal/storage"
)

// TransactionService persists transactions, then publishes a change event
// and drops cached reports. Neither follow-up can fail a committed write.
type TransactionService struct {
	store     TransactionStore
	publisher EventPublisher
	reports   cache.Reports
	clock     Clock
}

// NewTransactionService wires the service. publisher may be nil when no
// broker is configured.
func NewTransactionService(store TransactionStore, publisher EventPublisher, reports cache.Reports, clock Clock) *TransactionService {
	if reports == nil {
		reports = cache.Noop{}
	}
	return &TransactionService{
		store:     store,
		publisher: publisher,
		reports:   reports,
		clock:     clock,
	}
}

func (s *TransactionService) List(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, f)
}

func (s *TransactionService) Get(ctx context.Context, id int64) (core.Transaction, error) {
	st, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	return st.Transaction, nil
}

func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = 0
	t.ApplyDefaults(s.clock.today())
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	st, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, err
	}
	s.afterWrite(ctx, amqp.ActionCreated, st)
	return st.Transaction, nil
}

func (s *TransactionService) Update(ctx context.Context, id int64, t core.Transaction) (core.Transaction, error) {
	t.ID = id
	t.ApplyDefaults(s.clock.today())
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	st, err := s.store.UpdateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, err
	}
	s.afterWrite(ctx, amqp.ActionUpdated, st)
	return st.Transaction, nil
}

func (s *TransactionService) Delete(ctx context.Context, id int64) error {
	st, err := s.store.DeleteTransaction(ctx, id)
	if err != nil {
		return err
	}
	s.afterWrite(ctx, amqp.ActionDeleted, st)
	return nil
}

func (s *TransactionService) afterWrite(ctx context.Context, action amqp.EventAction, st storage.StoredTransaction) {
	invalidateReports(ctx, s.reports)

	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping event", "id", st.ID, "action", action)
		return
	}
	e := amqp.NewTransactionEvent(action, st.Transaction, st.Version)
	if err := s.publisher.PublishTransactionEvent(ctx, e); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"id", st.ID,
			"action", action,
			"version", st.Version,
			"error", err)
	}
}

func invalidateReports(ctx context.Context, reports cache.Reports) {
	if err := reports.Invalidate(ctx); err != nil {
		slog.WarnContext(ctx, "Failed to invalidate report cache", "error", err)
	}
}
