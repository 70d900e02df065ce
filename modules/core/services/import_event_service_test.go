package services

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dchoinie/church-membership-app-sub003/pkg/outbox"
)

func TestParseImportEvent(t *testing.T) {
	t.Parallel()

	meta := &outbox.Meta{
		TenantID: uuid.New(),
		EventID:  uuid.New(),
	}

	t.Run("member completion event", func(t *testing.T) {
		t.Parallel()
		ev, ok, err := parseImportEvent(meta, "import.members.completed", json.RawMessage(`{"entity":"members","success":12,"failed":3}`))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "members", ev.Entity())
		assert.Equal(t, 12, ev.SuccessCount())
		assert.Equal(t, 3, ev.FailedCount())
		assert.Equal(t, meta.EventID, ev.EventID())
	})

	t.Run("giving completion event", func(t *testing.T) {
		t.Parallel()
		ev, ok, err := parseImportEvent(meta, "import.giving.completed", json.RawMessage(`{"entity":"giving","success":7,"failed":0}`))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "giving", ev.Entity())
		assert.Equal(t, 7, ev.SuccessCount())
	})

	t.Run("entity falls back to the topic segment", func(t *testing.T) {
		t.Parallel()
		ev, ok, err := parseImportEvent(meta, "import.pledges.completed", json.RawMessage(`{"success":1,"failed":0}`))
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "pledges", ev.Entity())
	})

	t.Run("foreign topic is ignored", func(t *testing.T) {
		t.Parallel()
		for _, topic := range []string{"member.created", "import.members.started", "completed"} {
			_, ok, err := parseImportEvent(meta, topic, json.RawMessage(`{}`))
			require.NoError(t, err, "topic=%s", topic)
			assert.False(t, ok, "topic=%s", topic)
		}
	})

	t.Run("malformed payload is an error", func(t *testing.T) {
		t.Parallel()
		_, _, err := parseImportEvent(meta, "import.members.completed", json.RawMessage(`{broken`))
		require.Error(t, err)
	})
}
