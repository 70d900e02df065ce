package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/dchoinie/church-membership-app-sub003/modules/giving/domain/aggregates/category"
	"github.com/dchoinie/church-membership-app-sub003/pkg/composables"
)

type CategoryService struct {
	repo category.Repository
}

func NewCategoryService(repo category.Repository) *CategoryService {
	return &CategoryService{repo: repo}
}

func (s *CategoryService) GetAll(ctx context.Context) ([]category.Category, error) {
	return s.repo.GetAll(ctx)
}

// GetActive narrows GetAll to the categories imports may bind against.
func (s *CategoryService) GetActive(ctx context.Context) ([]category.Category, error) {
	all, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]category.Category, 0, len(all))
	for _, c := range all {
		if c.Active() {
			active = append(active, c)
		}
	}
	return active, nil
}

func (s *CategoryService) GetByID(ctx context.Context, id uuid.UUID) (category.Category, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *CategoryService) Create(ctx context.Context, dto *category.CreateDTO) (category.Category, error) {
	if dto == nil {
		return category.Category{}, errors.New("missing dto")
	}
	dto.Normalize()

	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (category.Category, error) {
		tenantID, err := composables.UseTenantID(txCtx)
		if err != nil {
			return category.Category{}, err
		}

		opts := []category.Option{category.WithPosition(dto.Position)}
		if dto.Active != nil {
			opts = append(opts, category.WithActive(*dto.Active))
		}
		return s.repo.Create(txCtx, category.New(tenantID, dto.Name, opts...))
	})
}

func (s *CategoryService) Update(ctx context.Context, id uuid.UUID, dto *category.UpdateDTO) (category.Category, error) {
	if dto == nil {
		return category.Category{}, errors.New("missing dto")
	}
	dto.Normalize()

	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (category.Category, error) {
		existing, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return category.Category{}, err
		}

		updated := existing.Rename(dto.Name).SetPosition(dto.Position)
		if dto.Active != nil {
			updated = updated.SetActive(*dto.Active)
		}
		return s.repo.Update(txCtx, updated)
	})
}

func (s *CategoryService) Delete(ctx context.Context, id uuid.UUID) error {
	return composables.InTenantTx(ctx, func(txCtx context.Context) error {
		return s.repo.Delete(txCtx, id)
	})
}
