package services

import (
	"context"
	"fmt"

	"financas/internal/cache"
	"financas/internal/core"
)

type CategoryService struct {
	store   CategoryStore
	reports cache.Reports
}

func NewCategoryService(store CategoryStore, reports cache.Reports) *CategoryService {
	if reports == nil {
		reports = cache.Noop{}
	}
	return &CategoryService{store: store, reports: reports}
}

func (s *CategoryService) List(ctx context.Context) ([]core.Category, error) {
	return s.store.ListCategories(ctx)
}

func (s *CategoryService) Get(ctx context.Context, id int64) (core.Category, error) {
	return s.store.GetCategory(ctx, id)
}

func (s *CategoryService) Create(ctx context.Context, c core.Category) (core.Category, error) {
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	created, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, err
	}
	return created, nil
}

// Update replaces the category. Renames show up in reports, so cached
// payloads are dropped.
func (s *CategoryService) Update(ctx context.Context, id int64, c core.Category) (core.Category, error) {
	c.ID = id
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	updated, err := s.store.UpdateCategory(ctx, c)
	if err != nil {
		return core.Category{}, err
	}
	invalidateReports(ctx, s.reports)
	return updated, nil
}

// Delete removes the category; its transactions become uncategorized.
func (s *CategoryService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	invalidateReports(ctx, s.reports)
	return nil
}
