package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dchoinie/church-membership-app-sub003/modules/membership/domain/aggregates/household"
	"github.com/dchoinie/church-membership-app-sub003/modules/membership/domain/aggregates/member"
	"github.com/dchoinie/church-membership-app-sub003/pkg/composables"
)

type MemberService struct {
	repo       member.Repository
	households household.Repository
}

func NewMemberService(repo member.Repository, households household.Repository) *MemberService {
	return &MemberService{repo: repo, households: households}
}

func (s *MemberService) GetPaginated(ctx context.Context, params *member.FindParams) ([]member.Member, int64, error) {
	return s.repo.GetPaginated(ctx, params)
}

func (s *MemberService) GetByID(ctx context.Context, id uuid.UUID) (member.Member, error) {
	return s.repo.GetByID(ctx, id)
}

// Create builds the member from the DTO. Without a household_id a new
// single-member household is created in the same transaction.
func (s *MemberService) Create(ctx context.Context, dto *member.CreateDTO) (member.Member, error) {
	if dto == nil {
		return member.Member{}, errors.New("missing dto")
	}
	dto.Normalize()

	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (member.Member, error) {
		tenantID, err := composables.UseTenantID(txCtx)
		if err != nil {
			return member.Member{}, err
		}

		householdID, err := s.resolveHousehold(txCtx, tenantID, dto.HouseholdID, dto.LastName)
		if err != nil {
			return member.Member{}, err
		}

		entity, err := buildMember(tenantID, householdID, dto.FirstName, dto.MiddleName, dto.LastName, dto.Email,
			dto.EnvelopeNumber, dto.Sex, dto.DateOfBirth, dto.Sequence, dto.Participation,
			dto.ReceivedBy, dto.ReceivedDate, dto.RemovedBy, dto.RemovedDate)
		if err != nil {
			return member.Member{}, err
		}
		return s.repo.Create(txCtx, entity)
	})
}

func (s *MemberService) Update(ctx context.Context, id uuid.UUID, dto *member.UpdateDTO) (member.Member, error) {
	if dto == nil {
		return member.Member{}, errors.New("missing dto")
	}
	dto.Normalize()

	return composables.InTenantTxResult(ctx, func(txCtx context.Context) (member.Member, error) {
		existing, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return member.Member{}, err
		}

		householdID := existing.HouseholdID()
		if dto.HouseholdID != "" {
			householdID, err = uuid.Parse(dto.HouseholdID)
			if err != nil {
				return member.Member{}, fmt.Errorf("invalid household id: %w", err)
			}
			if _, err := s.households.GetByID(txCtx, householdID); err != nil {
				return member.Member{}, err
			}
		}

		entity, err := buildMember(existing.TenantID(), householdID, dto.FirstName, dto.MiddleName, dto.LastName, dto.Email,
			dto.EnvelopeNumber, dto.Sex, dto.DateOfBirth, dto.Sequence, dto.Participation,
			dto.ReceivedBy, dto.ReceivedDate, dto.RemovedBy, dto.RemovedDate,
			member.WithID(existing.ID()), member.WithCreatedAt(existing.CreatedAt()))
		if err != nil {
			return member.Member{}, err
		}
		return s.repo.Update(txCtx, entity)
	})
}

func (s *MemberService) Delete(ctx context.Context, id uuid.UUID) error {
	return composables.InTenantTx(ctx, func(txCtx context.Context) error {
		return s.repo.Delete(txCtx, id)
	})
}

func (s *MemberService) resolveHousehold(ctx context.Context, tenantID uuid.UUID, rawID, lastName string) (uuid.UUID, error) {
	if rawID != "" {
		householdID, err := uuid.Parse(rawID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid household id: %w", err)
		}
		if _, err := s.households.GetByID(ctx, householdID); err != nil {
			return uuid.Nil, err
		}
		return householdID, nil
	}

	created, err := s.households.Create(ctx, household.New(tenantID, householdName(lastName)))
	if err != nil {
		return uuid.Nil, err
	}
	return created.ID(), nil
}

func householdName(lastName string) string {
	if lastName == "" {
		return "Household"
	}
	return lastName + " Household"
}

// buildMember converts already validated DTO strings into the aggregate.
func buildMember(
	tenantID, householdID uuid.UUID,
	firstName, middleName, lastName, email string,
	envelope *int,
	sex, dateOfBirth, sequence, participation string,
	receivedBy, receivedDate, removedBy, removedDate string,
	extra ...member.Option,
) (member.Member, error) {
	opts := []member.Option{
		member.WithMiddleName(middleName),
		member.WithEmail(email),
		member.WithEnvelopeNumber(envelope),
		member.WithSex(member.Sex(sex)),
		member.WithSequence(member.Sequence(sequence)),
		member.WithParticipation(member.Participation(participation)),
	}

	dob, err := parseOptionalDate(dateOfBirth)
	if err != nil {
		return member.Member{}, fmt.Errorf("invalid date of birth: %w", err)
	}
	opts = append(opts, member.WithDateOfBirth(dob))

	received, err := parseOptionalDate(receivedDate)
	if err != nil {
		return member.Member{}, fmt.Errorf("invalid received date: %w", err)
	}
	opts = append(opts, member.WithReceived(receivedBy, received))

	removed, err := parseOptionalDate(removedDate)
	if err != nil {
		return member.Member{}, fmt.Errorf("invalid removed date: %w", err)
	}
	opts = append(opts, member.WithRemoved(removedBy, removed))

	opts = append(opts, extra...)
	return member.New(tenantID, householdID, firstName, lastName, opts...), nil
}

func parseOptionalDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
