package services

import (
	"context"
	"time"

	"financas/internal/amqp"
	"financas/internal/core"
	"financas/internal/storage"
)

type CategoryStore interface {
	ListCategories(ctx context.Context) ([]core.Category, error)
	GetCategory(ctx context.Context, id int64) (core.Category, error)
	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	UpdateCategory(ctx context.Context, c core.Category) (core.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
}

type TransactionStore interface {
	ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (storage.StoredTransaction, error)
	CreateTransaction(ctx context.Context, t core.Transaction) (storage.StoredTransaction, error)
	UpdateTransaction(ctx context.Context, t core.Transaction) (storage.StoredTransaction, error)
	DeleteTransaction(ctx context.Context, id int64) (storage.StoredTransaction, error)
}

type GoalStore interface {
	ListGoals(ctx context.Context) ([]core.Goal, error)
	GetGoal(ctx context.Context, id int64) (core.Goal, error)
	CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
	UpdateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
	DeleteGoal(ctx context.Context, id int64) error
}

// ReportStore is the read side the report endpoints need.
type ReportStore interface {
	ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error)
	TransactionsInMonth(ctx context.Context, month int) ([]core.Transaction, error)
	TransactionYears(ctx context.Context) ([]int, error)
	ListGoals(ctx context.Context) ([]core.Goal, error)
}

// EventPublisher announces committed transaction changes.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, e *amqp.TransactionEvent) error
}

// Clock returns the current instant in the configured time zone.
type Clock func() time.Time

// ClockIn returns a Clock reporting wall time in loc.
func ClockIn(loc *time.Location) Clock {
	return func() time.Time { return time.Now().In(loc) }
}

func (c Clock) today() core.Date {
	return core.DateOf(c())
}
