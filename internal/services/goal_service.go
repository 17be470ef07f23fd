package services

import (
	"context"

	"financas/internal/cache"
	"financas/internal/core"
)

type GoalService struct {
	store   GoalStore
	reports cache.Reports
	clock   Clock
}

func NewGoalService(store GoalStore, reports cache.Reports, clock Clock) *GoalService {
	if reports == nil {
		reports = cache.Noop{}
	}
	return &GoalService{store: store, reports: reports, clock: clock}
}

func (s *GoalService) List(ctx context.Context) ([]core.Goal, error) {
	return s.store.ListGoals(ctx)
}

func (s *GoalService) Get(ctx context.Context, id int64) (core.Goal, error) {
	return s.store.GetGoal(ctx, id)
}

func (s *GoalService) Create(ctx context.Context, g core.Goal) (core.Goal, error) {
	g.ID = 0
	g.ApplyDefaults(s.clock.today())
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	created, err := s.store.CreateGoal(ctx, g)
	if err != nil {
		return core.Goal{}, err
	}
	invalidateReports(ctx, s.reports)
	return created, nil
}

func (s *GoalService) Update(ctx context.Context, id int64, g core.Goal) (core.Goal, error) {
	g.ID = id
	g.ApplyDefaults(s.clock.today())
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	updated, err := s.store.UpdateGoal(ctx, g)
	if err != nil {
		return core.Goal{}, err
	}
	invalidateReports(ctx, s.reports)
	return updated, nil
}

func (s *GoalService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteGoal(ctx, id); err != nil {
		return err
	}
	invalidateReports(ctx, s.reports)
	return nil
}
