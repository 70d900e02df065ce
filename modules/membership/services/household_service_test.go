package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dchoinie/church-membership-app-sub003/modules/membership/domain/aggregates/household"
	"github.com/dchoinie/church-membership-app-sub003/modules/membership/domain/aggregates/member"
	"github.com/dchoinie/church-membership-app-sub003/modules/membership/infrastructure/persistence"
)

func newHouseholdFixture(t *testing.T) (*HouseholdService, *fakeHouseholdRepo, uuid.UUID, member.Member, member.Member) {
	t.Helper()

	tenantID := uuid.New()
	householdID := uuid.New()

	// Ruth carries the head_of_house sequence; Paul is the oldest male.
	// The two policies elect different heads on purpose.
	ruthBorn := date(t, "1958-03-10")
	paulBorn := date(t, "1960-07-22")
	ruth := member.New(tenantID, householdID, "Ruth", "Olson",
		member.WithID(uuid.New()),
		member.WithSex(member.SexFemale),
		member.WithDateOfBirth(&ruthBorn),
		member.WithSequence(member.SequenceHeadOfHouse),
	)
	paul := member.New(tenantID, householdID, "Paul", "Olson",
		member.WithID(uuid.New()),
		member.WithSex(member.SexMale),
		member.WithDateOfBirth(&paulBorn),
		member.WithSequence(member.SequenceSpouse),
	)

	households := &fakeHouseholdRepo{
		households: []household.Household{
			household.New(tenantID, "Olson Household", household.WithID(householdID)),
		},
		heads: map[uuid.UUID]uuid.UUID{},
	}
	members := &fakeMemberRepo{members: []member.Member{ruth, paul}}
	return NewHouseholdService(households, members), households, householdID, ruth, paul
}

func date(t *testing.T, raw string) time.Time {
	t.Helper()
	out, err := time.Parse("2006-01-02", raw)
	require.NoError(t, err)
	return out
}

func TestHouseholdService_RecomputeHeadBySequence(t *testing.T) {
	svc, households, householdID, ruth, _ := newHouseholdFixture(t)

	head, err := svc.RecomputeHead(importTestContext(uuid.New()), householdID, member.HeadPolicySequence)
	require.NoError(t, err)
	assert.Equal(t, ruth.ID(), head.ID())
	assert.Equal(t, ruth.ID(), households.heads[householdID])
}

func TestHouseholdService_RecomputeHeadByDemographics(t *testing.T) {
	svc, households, householdID, _, paul := newHouseholdFixture(t)

	head, err := svc.RecomputeHead(importTestContext(uuid.New()), householdID, member.HeadPolicyDemographics)
	require.NoError(t, err)
	assert.Equal(t, paul.ID(), head.ID())
	assert.Equal(t, paul.ID(), households.heads[householdID])
}

func TestHouseholdService_RecomputeHeadUnknownHousehold(t *testing.T) {
	svc, _, _, _, _ := newHouseholdFixture(t)

	_, err := svc.RecomputeHead(importTestContext(uuid.New()), uuid.New(), member.HeadPolicySequence)
	require.ErrorIs(t, err, persistence.ErrHouseholdNotFound)
}

func TestHouseholdService_RecomputeHeadEmptyHousehold(t *testing.T) {
	tenantID := uuid.New()
	householdID := uuid.New()
	households := &fakeHouseholdRepo{
		households: []household.Household{
			household.New(tenantID, "Empty Household", household.WithID(householdID)),
		},
	}
	svc := NewHouseholdService(households, &fakeMemberRepo{})

	_, err := svc.RecomputeHead(importTestContext(tenantID), householdID, member.HeadPolicySequence)
	require.ErrorIs(t, err, persistence.ErrMemberNotFound)
}

func TestHouseholdService_GetMembers(t *testing.T) {
	svc, _, householdID, ruth, paul := newHouseholdFixture(t)

	members, err := svc.GetMembers(importTestContext(uuid.New()), householdID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, ruth.ID(), members[0].ID())
	assert.Equal(t, paul.ID(), members[1].ID())
}
