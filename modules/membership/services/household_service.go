package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/dchoinie/church-membership-app-sub003/modules/membership/domain/aggregates/household"
	"github.com/dchoinie/church-membership-app-sub003/modules/membership/domain/aggregates/member"
	"github.com/dchoinie/church-membership-app-sub003/modules/membership/infrastructure/persistence"
	"github.com/dchoinie/church-membership-app-sub003/pkg/composables"
)

type HouseholdService struct {
	repo    household.Repository
	members member.Repository
}

func NewHouseholdService(repo household.Repository, members member.Repository) *HouseholdService {
	return &HouseholdService{repo: repo, members: members}
}

func (s *HouseholdService) GetAll(ctx context.Context) ([]household.Household, error) {
	return s.repo.GetAll(ctx)
}

func (s *HouseholdService) GetByID(ctx context.Context, id uuid.UUID) (household.Household, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *HouseholdService) GetMembers(ctx context.Context, householdID uuid.UUID) ([]member.Member, error) {
	if _, err := s.repo.GetByID(ctx, householdID); err != nil {
		return nil, err
	}
	return s.members.GetByHousehold(ctx, householdID)
}

// RecomputeHead reruns head-of-household selection for one household and
// persists the result. An empty household cannot elect a head.
func (s *HouseholdService) RecomputeHead(ctx context.Context, householdID uuid.UUID, policy member.HeadPolicy) (member.Member, error) {
	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (member.Member, error) {
		if _, err := s.repo.GetByID(txCtx, householdID); err != nil {
			return member.Member{}, err
		}

		members, err := s.members.GetByHousehold(txCtx, householdID)
		if err != nil {
			return member.Member{}, err
		}

		head, ok := member.ResolveHead(policy, members)
		if !ok {
			return member.Member{}, persistence.ErrMemberNotFound
		}

		headID := head.ID()
		if err := s.repo.SetHead(txCtx, householdID, &headID); err != nil {
			return member.Member{}, err
		}
		return head, nil
	})
}
