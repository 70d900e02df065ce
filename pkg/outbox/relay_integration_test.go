//go:build integration

package outbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// recordingDispatcher delivers every topic except the poison one, which
// keeps failing like a consumer with a persistent bug.
type recordingDispatcher struct {
	poison string
	calls  []DispatchedMessage
}

func (d *recordingDispatcher) Dispatch(_ context.Context, msg DispatchedMessage) error {
	d.calls = append(d.calls, msg)
	if msg.Meta.Topic == d.poison {
		return errors.New("consumer rejected event")
	}
	return nil
}

func TestRelay_PoisonEventDoesNotBlockOthers(t *testing.T) {
	dsn := os.Getenv("OUTBOX_TEST_DSN")
	if dsn == "" {
		t.Skip("OUTBOX_TEST_DSN is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	table := newOutboxTable(t, ctx, pool)
	publisher := NewPublisher()
	tenantID := uuid.New()

	givingEvent := uuid.New()
	memberEvent := uuid.New()

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	_, err = publisher.Enqueue(ctx, tx, table, Message{
		TenantID: tenantID,
		Topic:    "import.giving.completed",
		EventID:  givingEvent,
		Payload:  []byte(`{"success_count":0,"failed_count":4}`),
	})
	require.NoError(t, err)
	_, err = publisher.Enqueue(ctx, tx, table, Message{
		TenantID: tenantID,
		Topic:    "import.members.completed",
		EventID:  memberEvent,
		Payload:  []byte(`{"success_count":12,"failed_count":0}`),
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	t.Run("same event id enqueues once", func(t *testing.T) {
		tx, err := pool.Begin(ctx)
		require.NoError(t, err)
		defer func() { _ = tx.Rollback(ctx) }()

		msg := Message{
			TenantID: tenantID,
			Topic:    "import.members.completed",
			EventID:  uuid.New(),
			Payload:  []byte(`{"success_count":1,"failed_count":0}`),
		}
		first, err := publisher.Enqueue(ctx, tx, table, msg)
		require.NoError(t, err)
		second, err := publisher.Enqueue(ctx, tx, table, msg)
		require.NoError(t, err)
		require.Equal(t, first, second)
	})

	// MaxAttempts of one sends the poison event straight to dead.
	dispatcher := &recordingDispatcher{poison: "import.giving.completed"}
	relay, err := NewRelay(pool, table, dispatcher, RelayOptions{
		PollInterval:           10 * time.Millisecond,
		BatchSize:              10,
		LockTTL:                time.Second,
		MaxAttempts:            1,
		SingleActive:           false,
		LastErrorMaxLen:        1024,
		ObserveQueueDepthEvery: time.Hour,
	})
	require.NoError(t, err)

	require.NoError(t, relay.drain(ctx, nil))
	require.Len(t, dispatcher.calls, 2)

	var memberPublished bool
	err = pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT published_at IS NOT NULL FROM %s WHERE event_id = $1`, table.Sanitize()),
		memberEvent,
	).Scan(&memberPublished)
	require.NoError(t, err)
	require.True(t, memberPublished, "member completion should deliver despite the poison event")

	var givingPublished bool
	var attempts int
	var lastErr *string
	err = pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT published_at IS NOT NULL, attempts, last_error FROM %s WHERE event_id = $1`, table.Sanitize()),
		givingEvent,
	).Scan(&givingPublished, &attempts, &lastErr)
	require.NoError(t, err)
	require.False(t, givingPublished)
	require.Equal(t, 1, attempts)
	require.NotNil(t, lastErr)
	require.Contains(t, *lastErr, "consumer rejected event")

	// A dead event stays dead: another drain must not redeliver it.
	require.NoError(t, relay.drain(ctx, nil))
	require.Len(t, dispatcher.calls, 2)
}

// newOutboxTable creates a throwaway copy of the import_outbox layout so
// concurrent CI runs never clash on table names.
func newOutboxTable(t *testing.T, ctx context.Context, pool *pgxpool.Pool) pgx.Identifier {
	t.Helper()

	name := "import_outbox_" + uuid.NewString()[:8]
	table, err := ParseIdentifier("public." + name)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS pgcrypto`)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, fmt.Sprintf(`
CREATE TABLE %s (
  id           UUID        NOT NULL DEFAULT gen_random_uuid(),
  tenant_id    UUID        NOT NULL,
  topic        TEXT        NOT NULL,
  payload      JSONB       NOT NULL,
  event_id     UUID        NOT NULL,
  sequence     BIGSERIAL   NOT NULL,
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
  published_at TIMESTAMPTZ NULL,
  attempts     INT         NOT NULL DEFAULT 0,
  available_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  locked_at    TIMESTAMPTZ NULL,
  last_error   TEXT        NULL,
  CONSTRAINT %s_pkey PRIMARY KEY (id),
  CONSTRAINT %s_event_id_key UNIQUE (event_id),
  CONSTRAINT %s_attempts_nonnegative CHECK (attempts >= 0)
)`, table.Sanitize(), name, name, name))
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), fmt.Sprintf("DROP TABLE IF EXISTS %s", table.Sanitize()))
	})
	return table
}
