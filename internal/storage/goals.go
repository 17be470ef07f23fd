package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"financas/internal/core"
)

const goalSelect = `SELECT id, nome, descricao, tipo, valor_alvo_centavos, valor_atingido_centavos,
	data_inicio, data_limite, concluida, data_criacao, data_atualizacao
FROM metas`

func scanGoal(row interface{ Scan(...any) error }) (core.Goal, error) {
	var (
		g                core.Goal
		kind             string
		target, achieved int64
		start, deadline  dbDate
		created, updated dbTime
	)
	if err := row.Scan(&g.ID, &g.Name, &g.Description, &kind, &target, &achieved,
		&start, &deadline, &g.Completed, &created, &updated); err != nil {
		return core.Goal{}, err
	}
	g.Kind = core.GoalKind(kind)
	g.Target = core.MoneyFromCents(target)
	g.Achieved = core.MoneyFromCents(achieved)
	g.StartDate = start.Date
	g.Deadline = deadline.Date
	g.CreatedAt = created.Time
	g.UpdatedAt = updated.Time
	return g, nil
}

// ListGoals returns goals ordered by deadline, newest first on ties.
func (r *Repository) ListGoals(ctx context.Context) ([]core.Goal, error) {
	rows, err := r.query(ctx, goalSelect+" ORDER BY data_limite ASC, data_criacao DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	out := []core.Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// GetGoal returns the goal with the given id or core.ErrNotFound.
func (r *Repository) GetGoal(ctx context.Context, id int64) (core.Goal, error) {
	g, err := scanGoal(r.queryRow(ctx, goalSelect+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, core.ErrNotFound
	}
	if err != nil {
		return core.Goal{}, fmt.Errorf("get goal %d: %w", id, err)
	}
	return g, nil
}

// CreateGoal inserts g and returns the stored row.
func (r *Repository) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	now := r.now()
	id, err := r.insert(ctx,
		`INSERT INTO metas (nome, descricao, tipo, valor_alvo_centavos, valor_atingido_centavos,
			data_inicio, data_limite, concluida, data_criacao, data_atualizacao)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.Name, g.Description, string(g.Kind), g.Target.Cents(), g.Achieved.Cents(),
		r.dialect.dateArg(g.StartDate), r.dialect.dateArg(g.Deadline), g.Completed,
		r.dialect.timeArg(now), r.dialect.timeArg(now))
	if err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}

	slog.InfoContext(ctx, "Goal created", "id", id, "name", g.Name, "target", g.Target.String())
	return r.GetGoal(ctx, id)
}

// UpdateGoal overwrites the mutable fields of g.ID.
func (r *Repository) UpdateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	res, err := r.exec(ctx,
		`UPDATE metas SET nome = ?, descricao = ?, tipo = ?, valor_alvo_centavos = ?,
			valor_atingido_centavos = ?, data_inicio = ?, data_limite = ?, concluida = ?, data_atualizacao = ?
		WHERE id = ?`,
		g.Name, g.Description, string(g.Kind), g.Target.Cents(), g.Achieved.Cents(),
		r.dialect.dateArg(g.StartDate), r.dialect.dateArg(g.Deadline), g.Completed,
		r.dialect.timeArg(r.now()), g.ID)
	if err != nil {
		return core.Goal{}, fmt.Errorf("update goal %d: %w", g.ID, err)
	}
	if err := expectAffected(res); err != nil {
		return core.Goal{}, err
	}
	return r.GetGoal(ctx, g.ID)
}

// DeleteGoal removes the goal with the given id.
func (r *Repository) DeleteGoal(ctx context.Context, id int64) error {
	res, err := r.exec(ctx, "DELETE FROM metas WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete goal %d: %w", id, err)
	}
	if err := expectAffected(res); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Goal deleted", "id", id)
	return nil
}
