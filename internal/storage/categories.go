package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"financas/internal/core"
)

const categoryColumns = "id, nome, descricao, tipo_categoria"

func scanCategory(row interface{ Scan(...any) error }) (core.Category, error) {
	var c core.Category
	var kind string
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &kind); err != nil {
		return core.Category{}, err
	}
	c.Kind = core.CategoryKind(kind)
	return c, nil
}

// ListCategories returns every category ordered by name.
func (r *Repository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.query(ctx, "SELECT "+categoryColumns+" FROM categorias ORDER BY nome, id")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCategory returns the category with the given id or core.ErrNotFound.
func (r *Repository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	c, err := scanCategory(r.queryRow(ctx, "SELECT "+categoryColumns+" FROM categorias WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

// CreateCategory inserts c and returns it with its new id.
func (r *Repository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	id, err := r.insert(ctx,
		"INSERT INTO categorias (nome, descricao, tipo_categoria) VALUES (?, ?, ?)",
		c.Name, c.Description, string(c.Kind))
	if err != nil {
		if isUniqueViolation(err) {
			return core.Category{}, core.ErrDuplicateName
		}
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	c.ID = id

	slog.InfoContext(ctx, "Category created", "id", c.ID, "name", c.Name, "kind", c.Kind)
	return c, nil
}

// UpdateCategory overwrites every mutable field of the category c.ID.
func (r *Repository) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	res, err := r.exec(ctx,
		"UPDATE categorias SET nome = ?, descricao = ?, tipo_categoria = ? WHERE id = ?",
		c.Name, c.Description, string(c.Kind), c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Category{}, core.ErrDuplicateName
		}
		return core.Category{}, fmt.Errorf("update category %d: %w", c.ID, err)
	}
	if err := expectAffected(res); err != nil {
		return core.Category{}, err
	}
	return c, nil
}

// DeleteCategory removes a category. Transactions that referenced it keep
// existing with no category.
func (r *Repository) DeleteCategory(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete category: %w", err)
	}
	defer tx.Rollback()

	detached, err := tx.ExecContext(ctx,
		r.dialect.rebind("UPDATE transacoes SET categoria_id = NULL WHERE categoria_id = ?"), id)
	if err != nil {
		return fmt.Errorf("detach transactions from category %d: %w", id, err)
	}

	res, err := tx.ExecContext(ctx, r.dialect.rebind("DELETE FROM categorias WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	if err := expectAffected(res); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete category %d: %w", id, err)
	}

	n, _ := detached.RowsAffected()
	slog.InfoContext(ctx, "Category deleted", "id", id, "detached_transactions", n)
	return nil
}
