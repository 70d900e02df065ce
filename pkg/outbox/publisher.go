package outbox

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dchoinie/church-membership-app-sub003/pkg/repo"
)

// Publisher enqueues an event inside the caller's transaction. The
// import services call this right after their batch insert, so the
// event commits or rolls back with the data it describes.
type Publisher interface {
	Enqueue(ctx context.Context, tx repo.Tx, table pgx.Identifier, msg Message) (sequence int64, err error)
}

func NewPublisher() Publisher {
	return &publisher{m: sharedMetrics()}
}

type publisher struct {
	m *relayMetrics
}

func (msg Message) validate(table pgx.Identifier) error {
	switch {
	case len(table) == 0:
		return fmt.Errorf("%w: table is required", ErrInvalidConfig)
	case msg.TenantID == uuid.Nil:
		return fmt.Errorf("%w: tenant_id is required", ErrInvalidConfig)
	case msg.EventID == uuid.Nil:
		return fmt.Errorf("%w: event_id is required", ErrInvalidConfig)
	case msg.Topic == "":
		return fmt.Errorf("%w: topic is required", ErrInvalidConfig)
	}
	return nil
}

func (p *publisher) Enqueue(ctx context.Context, tx repo.Tx, table pgx.Identifier, msg Message) (int64, error) {
	if err := msg.validate(table); err != nil {
		return 0, err
	}

	// The no-op conflict update turns a duplicate EventID into a plain
	// RETURNING of the existing row's sequence.
	q := fmt.Sprintf(
		`INSERT INTO %s (tenant_id, topic, payload, event_id, available_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (event_id) DO UPDATE SET event_id = EXCLUDED.event_id
		 RETURNING sequence`,
		table.Sanitize(),
	)

	var sequence int64
	if err := tx.QueryRow(ctx, q, msg.TenantID, msg.Topic, msg.Payload, msg.EventID).Scan(&sequence); err != nil {
		return 0, fmt.Errorf("outbox enqueue: %w", err)
	}

	p.m.enqueued.WithLabelValues(TableLabel(table), msg.Topic).Inc()
	return sequence, nil
}
