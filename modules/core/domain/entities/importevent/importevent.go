package importevent

import (
	"time"

	"github.com/google/uuid"
)

// ImportEvent is the post-commit record of one import batch. It is
// written when the outbox relay delivers the batch's completion event,
// never directly by the import pipeline.
type ImportEvent struct {
	id           uuid.UUID
	eventID      uuid.UUID
	entity       string
	successCount int
	failedCount  int
	occurredAt   time.Time
}

type Option func(*ImportEvent)

func WithID(id uuid.UUID) Option {
	return func(e *ImportEvent) {
		e.id = id
	}
}

func WithOccurredAt(occurredAt time.Time) Option {
	return func(e *ImportEvent) {
		e.occurredAt = occurredAt
	}
}

// New builds an import event for an entity kind ("members", "giving").
// eventID is the outbox event id and doubles as the idempotency key.
func New(entity string, eventID uuid.UUID, successCount, failedCount int, opts ...Option) *ImportEvent {
	e := &ImportEvent{
		id:           uuid.New(),
		eventID:      eventID,
		entity:       entity,
		successCount: successCount,
		failedCount:  failedCount,
		occurredAt:   time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *ImportEvent) ID() uuid.UUID {
	return e.id
}

func (e *ImportEvent) EventID() uuid.UUID {
	return e.eventID
}

func (e *ImportEvent) Entity() string {
	return e.entity
}

func (e *ImportEvent) SuccessCount() int {
	return e.successCount
}

func (e *ImportEvent) FailedCount() int {
	return e.failedCount
}

func (e *ImportEvent) OccurredAt() time.Time {
	return e.occurredAt
}
