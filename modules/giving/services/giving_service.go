package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/dchoinie/church-membership-app-sub003/modules/giving/domain/aggregates/giving"
	"github.com/dchoinie/church-membership-app-sub003/pkg/composables"
)

type GivingService struct {
	repo giving.Repository
}

func NewGivingService(repo giving.Repository) *GivingService {
	return &GivingService{repo: repo}
}

func (s *GivingService) GetPaginated(ctx context.Context, params *giving.FindParams) ([]giving.Record, int64, error) {
	return s.repo.GetPaginated(ctx, params)
}

func (s *GivingService) GetByID(ctx context.Context, id uuid.UUID) (giving.Record, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *GivingService) Delete(ctx context.Context, id uuid.UUID) error {
	return composables.InTenantTx(ctx, func(txCtx context.Context) error {
		return s.repo.Delete(txCtx, id)
	})
}
