//go:build integration

package services_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dchoinie/church-membership-app-sub003/modules"
	"github.com/dchoinie/church-membership-app-sub003/modules/giving/domain/aggregates/category"
	"github.com/dchoinie/church-membership-app-sub003/modules/giving/domain/aggregates/giving"
	"github.com/dchoinie/church-membership-app-sub003/modules/giving/infrastructure/persistence"
	"github.com/dchoinie/church-membership-app-sub003/modules/giving/services"
	"github.com/dchoinie/church-membership-app-sub003/modules/membership/domain/aggregates/household"
	"github.com/dchoinie/church-membership-app-sub003/modules/membership/domain/aggregates/member"
	membershippersistence "github.com/dchoinie/church-membership-app-sub003/modules/membership/infrastructure/persistence"
	"github.com/dchoinie/church-membership-app-sub003/pkg/itf"
	"github.com/dchoinie/church-membership-app-sub003/pkg/outbox"
)

// Runs the giving pipeline against a real database: categories from the
// tenant, envelope lookup through the member snapshot, batch insert and
// the outbox write, all in one transaction.
func TestGivingImport_Integration_EndToEnd(t *testing.T) {
	f := itf.NewTestContext().
		WithModules(modules.BuiltInModules...).
		Build(t)

	households := membershippersistence.NewHouseholdRepository()
	h, err := households.Create(f.Ctx, household.New(f.TenantID(), "Larson Household"))
	require.NoError(t, err)

	envelope := 12
	members := membershippersistence.NewMemberRepository()
	recipient, err := members.Create(f.Ctx, member.New(
		f.TenantID(), h.ID(), "John", "Larson",
		member.WithEnvelopeNumber(&envelope),
	))
	require.NoError(t, err)

	categories := persistence.NewCategoryRepository()
	for i, name := range []string{"General Fund", "Missions"} {
		_, err := categories.Create(f.Ctx, category.New(f.TenantID(), name, category.WithPosition(i)))
		require.NoError(t, err)
	}

	svc := services.NewGivingImportService(
		persistence.NewGivingRepository(),
		categories,
		members,
		outbox.NewPublisher(),
	)

	csv := "Date Given,Envelope Number,General Fund,Missions\n" +
		"2025-01-05,12,50.00,25.00\n" +
		"1/12/2025,12,30.00,\n" +
		"2025-01-19,99,10.00,\n"
	result, err := svc.ImportCSV(f.Ctx, []byte(csv))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Success)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Row 4: no member found for envelope number 99", result.Errors[0])

	records, total, err := persistence.NewGivingRepository().GetPaginated(f.Ctx, &giving.FindParams{
		MemberID: recipient.ID(),
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, records, 2)

	sum := decimal.Zero
	for _, r := range records {
		assert.Equal(t, recipient.ID(), r.MemberID())
		sum = sum.Add(r.Total())
	}
	assert.True(t, sum.Equal(decimal.RequireFromString("105.00")), "got %s", sum)

	jan5 := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	found := false
	for _, r := range records {
		if r.GivenAt().Equal(jan5) {
			found = true
			require.Len(t, r.Items(), 2)
		}
	}
	assert.True(t, found, "missing the 2025-01-05 record")

	var topic string
	var payload []byte
	err = f.Tx.QueryRow(f.Ctx,
		`SELECT topic, payload FROM import_outbox WHERE tenant_id = $1 AND topic = $2`,
		f.TenantID(), services.TopicGivingImportCompleted,
	).Scan(&topic, &payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"entity":"giving","success":2,"failed":1}`, string(payload))
}
