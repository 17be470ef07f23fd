package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"financas/internal/core"
)

const transactionSelect = `SELECT t.id, t.descricao, t.valor_centavos, t.data_transacao, t.tipo, t.status,
	t.categoria_id, c.nome, t.versao, t.data_criacao, t.data_atualizacao
FROM transacoes t
LEFT JOIN categorias c ON c.id = t.categoria_id`

const transactionOrder = " ORDER BY t.data_transacao DESC, t.data_criacao DESC, t.id DESC"

// StoredTransaction is a transaction together with its row version.
type StoredTransaction struct {
	core.Transaction
	Version int64
}

func scanTransaction(row interface{ Scan(...any) error }) (StoredTransaction, error) {
	var (
		st         StoredTransaction
		cents      int64
		date       dbDate
		kind       string
		status     string
		categoryID sql.NullInt64
		catName    sql.NullString
		created    dbTime
		updated    dbTime
	)
	if err := row.Scan(&st.ID, &st.Description, &cents, &date, &kind, &status,
		&categoryID, &catName, &st.Version, &created, &updated); err != nil {
		return StoredTransaction{}, err
	}
	st.Amount = core.MoneyFromCents(cents)
	st.Date = date.Date
	st.Kind = core.TransactionKind(kind)
	st.Status = core.TransactionStatus(status)
	if categoryID.Valid {
		id := categoryID.Int64
		st.CategoryID = &id
	}
	if catName.Valid {
		name := catName.String
		st.CategoryName = &name
	}
	st.CreatedAt = created.Time
	st.UpdatedAt = updated.Time
	return st, nil
}

func (r *Repository) queryTransactions(ctx context.Context, q string, args ...any) ([]core.Transaction, error) {
	rows, err := r.query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		st, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, st.Transaction)
	}
	return out, rows.Err()
}

// transactionWhere translates a filter into a WHERE clause and its arguments.
func (r *Repository) transactionWhere(f core.TransactionFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Description != nil && *f.Description != "" {
		conds = append(conds, r.dialect.lowerExpr("t.descricao")+` LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(*f.Description))+"%")
	}
	if f.MinAmount != nil {
		conds = append(conds, "t.valor_centavos >= ?")
		args = append(args, f.MinAmount.CeilCents())
	}
	if f.MaxAmount != nil {
		conds = append(conds, "t.valor_centavos <= ?")
		args = append(args, f.MaxAmount.FloorCents())
	}
	if f.StartDate != nil {
		conds = append(conds, "t.data_transacao >= ?")
		args = append(args, r.dialect.dateArg(*f.StartDate))
	}
	if f.EndDate != nil {
		conds = append(conds, "t.data_transacao <= ?")
		args = append(args, r.dialect.dateArg(*f.EndDate))
	}
	if f.CategoryID != nil {
		conds = append(conds, "t.categoria_id = ?")
		args = append(args, *f.CategoryID)
	}
	if f.Kind != nil {
		conds = append(conds, "t.tipo = ?")
		args = append(args, string(*f.Kind))
	}
	if f.Status != nil {
		conds = append(conds, "t.status = ?")
		args = append(args, string(*f.Status))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// ListTransactions returns the transactions matching f, newest first.
func (r *Repository) ListTransactions(ctx context.Context, f core.TransactionFilter) ([]core.Transaction, error) {
	where, args := r.transactionWhere(f)
	out, err := r.queryTransactions(ctx, transactionSelect+where+transactionOrder, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

// TransactionsInMonth returns transactions whose month equals month in any
// year. A zero month returns every transaction.
func (r *Repository) TransactionsInMonth(ctx context.Context, month int) ([]core.Transaction, error) {
	q := transactionSelect
	var args []any
	if month != 0 {
		q += " WHERE " + r.dialect.monthExpr("t.data_transacao") + " = ?"
		args = append(args, month)
	}
	out, err := r.queryTransactions(ctx, q+transactionOrder, args...)
	if err != nil {
		return nil, fmt.Errorf("transactions in month %d: %w", month, err)
	}
	return out, nil
}

// TransactionYears lists the distinct years with at least one transaction,
// most recent first.
func (r *Repository) TransactionYears(ctx context.Context) ([]int, error) {
	year := r.dialect.yearExpr("data_transacao")
	rows, err := r.query(ctx, "SELECT DISTINCT "+year+" AS ano FROM transacoes ORDER BY ano DESC")
	if err != nil {
		return nil, fmt.Errorf("transaction years: %w", err)
	}
	defer rows.Close()

	years := []int{}
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, fmt.Errorf("scan year: %w", err)
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

// GetTransaction returns the transaction with the given id together with
// its version, or core.ErrNotFound.
func (r *Repository) GetTransaction(ctx context.Context, id int64) (StoredTransaction, error) {
	st, err := scanTransaction(r.queryRow(ctx, transactionSelect+" WHERE t.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return StoredTransaction{}, core.ErrNotFound
	}
	if err != nil {
		return StoredTransaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return st, nil
}

// CreateTransaction inserts t and returns the stored row.
func (r *Repository) CreateTransaction(ctx context.Context, t core.Transaction) (StoredTransaction, error) {
	now := r.now()
	id, err := r.insert(ctx,
		`INSERT INTO transacoes (descricao, valor_centavos, data_transacao, tipo, status, categoria_id,
			versao, data_criacao, data_atualizacao)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		t.Description, t.Amount.Cents(), r.dialect.dateArg(t.Date), string(t.Kind), string(t.Status),
		nullInt64{t.CategoryID}, r.dialect.timeArg(now), r.dialect.timeArg(now))
	if err != nil {
		if isForeignKeyViolation(err) {
			return StoredTransaction{}, core.ErrUnknownCategory
		}
		return StoredTransaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", id,
		"kind", t.Kind,
		"amount", t.Amount.String(),
		"date", t.Date.String())

	return r.GetTransaction(ctx, id)
}

// UpdateTransaction overwrites the mutable fields of t.ID and bumps its version.
func (r *Repository) UpdateTransaction(ctx context.Context, t core.Transaction) (StoredTransaction, error) {
	res, err := r.exec(ctx,
		`UPDATE transacoes SET descricao = ?, valor_centavos = ?, data_transacao = ?, tipo = ?, status = ?,
			categoria_id = ?, versao = versao + 1, data_atualizacao = ?
		WHERE id = ?`,
		t.Description, t.Amount.Cents(), r.dialect.dateArg(t.Date), string(t.Kind), string(t.Status),
		nullInt64{t.CategoryID}, r.dialect.timeArg(r.now()), t.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return StoredTransaction{}, core.ErrUnknownCategory
		}
		return StoredTransaction{}, fmt.Errorf("update transaction %d: %w", t.ID, err)
	}
	if err := expectAffected(res); err != nil {
		return StoredTransaction{}, err
	}
	return r.GetTransaction(ctx, t.ID)
}

// DeleteTransaction removes the transaction and returns its last state.
func (r *Repository) DeleteTransaction(ctx context.Context, id int64) (StoredTransaction, error) {
	st, err := r.GetTransaction(ctx, id)
	if err != nil {
		return StoredTransaction{}, err
	}
	res, err := r.exec(ctx, "DELETE FROM transacoes WHERE id = ?", id)
	if err != nil {
		return StoredTransaction{}, fmt.Errorf("delete transaction %d: %w", id, err)
	}
	if err := expectAffected(res); err != nil {
		return StoredTransaction{}, err
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	return st, nil
}
