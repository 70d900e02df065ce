//go:build integration

package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dchoinie/church-membership-app-sub003/modules"
	"github.com/dchoinie/church-membership-app-sub003/modules/membership/infrastructure/persistence"
	"github.com/dchoinie/church-membership-app-sub003/modules/membership/services"
	"github.com/dchoinie/church-membership-app-sub003/pkg/itf"
	"github.com/dchoinie/church-membership-app-sub003/pkg/outbox"
)

// Runs the whole pipeline against a real database: schema, repositories,
// household creation, head election and the outbox write.
func TestMemberImport_Integration_EndToEnd(t *testing.T) {
	f := itf.NewTestContext().
		WithModules(modules.BuiltInModules...).
		Build(t)

	svc := services.NewMemberImportService(
		persistence.NewMemberRepository(),
		persistence.NewHouseholdRepository(),
		outbox.NewPublisher(),
	)

	csv := "First Name,Last Name,Envelope Number,Sex,Sequence,Household Group\n" +
		"John,Larson,12,M,Head,larson\n" +
		"Jane,Larson,12,F,Wife,larson\n" +
		",Missing,13,F,,\n"
	result, err := svc.ImportCSV(f.Ctx, []byte(csv))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Success)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Row 4: first name is required", result.Errors[0])

	members := persistence.NewMemberRepository()
	all, err := members.GetAll(f.Ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	// one shared household via the group token
	require.Equal(t, all[0].HouseholdID(), all[1].HouseholdID())

	var johnID = all[0].ID()
	if all[0].FirstName() != "John" {
		johnID = all[1].ID()
	}

	households := persistence.NewHouseholdRepository()
	h, err := households.GetByID(f.Ctx, all[0].HouseholdID())
	require.NoError(t, err)
	assert.Equal(t, "Larson Household", h.Name())
	require.NotNil(t, h.HeadID())
	assert.Equal(t, johnID, *h.HeadID())

	// the completion event sits in the outbox inside the same transaction
	var topic string
	var payload []byte
	err = f.Tx.QueryRow(f.Ctx,
		`SELECT topic, payload FROM import_outbox WHERE tenant_id = $1`, f.TenantID(),
	).Scan(&topic, &payload)
	require.NoError(t, err)
	assert.Equal(t, services.TopicMemberImportCompleted, topic)
	assert.JSONEq(t, `{"entity":"members","success":2,"failed":1}`, string(payload))
}

func TestMemberImport_Integration_EnvelopeJoinsExistingHousehold(t *testing.T) {
	f := itf.NewTestContext().
		WithModules(modules.BuiltInModules...).
		Build(t)

	svc := services.NewMemberImportService(
		persistence.NewMemberRepository(),
		persistence.NewHouseholdRepository(),
		outbox.NewPublisher(),
	)

	first, err := svc.ImportCSV(f.Ctx, []byte(
		"First Name,Last Name,Envelope Number,Sequence\nCarl,Olson,77,Head\n",
	))
	require.NoError(t, err)
	require.Equal(t, 1, first.Success)

	second, err := svc.ImportCSV(f.Ctx, []byte(
		"First Name,Last Name,Envelope Number,Sequence\nDana,Olson,77,Child\n",
	))
	require.NoError(t, err)
	require.Equal(t, 1, second.Success)

	members := persistence.NewMemberRepository()
	all, err := members.GetAll(f.Ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, all[0].HouseholdID(), all[1].HouseholdID(),
		"second import must reuse the household behind envelope 77")
}
