package member_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dchoinie/church-membership-app-sub003/modules/membership/domain/aggregates/member"
)

func intPtr(n int) *int {
	return &n
}

func TestSnapshotLookups(t *testing.T) {
	tenantID := uuid.New()
	houseA := uuid.New()
	houseB := uuid.New()

	a := member.New(tenantID, houseA, "Anna", "Abbott",
		member.WithID(uuid.New()), member.WithEnvelopeNumber(intPtr(12)))
	b := member.New(tenantID, houseA, "Ben", "Abbott",
		member.WithID(uuid.New()), member.WithEnvelopeNumber(intPtr(12)))
	c := member.New(tenantID, houseB, "Cara", "Cole",
		member.WithID(uuid.New()), member.WithEnvelopeNumber(intPtr(77)))

	snap := member.NewSnapshot([]member.Member{a, b, c})

	require.Equal(t, 3, snap.Len())

	got, ok := snap.ByID(b.ID())
	require.True(t, ok)
	assert.Equal(t, "Ben", got.FirstName())

	_, ok = snap.ByID(uuid.New())
	assert.False(t, ok)

	byEnv := snap.ByEnvelope(12)
	require.Len(t, byEnv, 2)
	assert.Equal(t, "Anna", byEnv[0].FirstName())
	assert.Equal(t, "Ben", byEnv[1].FirstName())

	assert.Empty(t, snap.ByEnvelope(99))

	byHouse := snap.ByHousehold(houseA)
	require.Len(t, byHouse, 2)
	assert.Equal(t, "Anna", byHouse[0].FirstName())

	assert.Empty(t, snap.ByHousehold(uuid.New()))
}

func TestSnapshotPreservesRetrievalOrder(t *testing.T) {
	tenantID := uuid.New()
	house := uuid.New()

	names := []string{"First", "Second", "Third"}
	members := make([]member.Member, 0, len(names))
	for _, n := range names {
		members = append(members, member.New(tenantID, house, n, "Order",
			member.WithID(uuid.New()), member.WithEnvelopeNumber(intPtr(5))))
	}

	snap := member.NewSnapshot(members)
	got := snap.ByEnvelope(5)
	require.Len(t, got, 3)
	for i, n := range names {
		assert.Equal(t, n, got[i].FirstName())
	}
}
