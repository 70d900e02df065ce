//go:build integration

package services_test

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dchoinie/church-membership-app-sub003/modules"
	"github.com/dchoinie/church-membership-app-sub003/modules/core/services"
	"github.com/dchoinie/church-membership-app-sub003/pkg/itf"
	"github.com/dchoinie/church-membership-app-sub003/pkg/outbox"
)

func TestImportEventService_Integration_RecordAndList(t *testing.T) {
	f := itf.NewTestContext().
		WithModules(modules.BuiltInModules...).
		Build(t)

	svc := itf.GetService[services.ImportEventService](f)
	require.NotNil(t, svc)

	meta := &outbox.Meta{
		TenantID: f.TenantID(),
		Topic:    "import.members.completed",
		EventID:  uuid.New(),
		Sequence: 1,
		Attempts: 1,
	}
	payload := json.RawMessage(`{"entity":"members","success":5,"failed":1}`)

	require.NoError(t, svc.RecordDelivered(f.Ctx, meta, meta.Topic, payload))

	// Redelivery of the same event id must not add a second row.
	require.NoError(t, svc.RecordDelivered(f.Ctx, meta, meta.Topic, payload))

	// A topic outside import.* is acknowledged without being recorded.
	require.NoError(t, svc.RecordDelivered(f.Ctx, meta, "member.created", json.RawMessage(`{}`)))

	events, err := svc.List(f.Ctx, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "members", events[0].Entity())
	assert.Equal(t, 5, events[0].SuccessCount())
	assert.Equal(t, 1, events[0].FailedCount())
	assert.Equal(t, meta.EventID, events[0].EventID())
}
