package household

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Household owns zero or more members. HeadID points at the member
// currently designated head of household; it is recomputed on demand,
// never by trigger, so it can lag behind the members until the next
// recompute.
type Household struct {
	id        uuid.UUID
	tenantID  uuid.UUID
	name      string
	headID    *uuid.UUID
	createdAt time.Time
	updatedAt time.Time
}

type Option func(*Household)

func WithID(id uuid.UUID) Option {
	return func(h *Household) {
		h.id = id
	}
}

func WithHead(headID *uuid.UUID) Option {
	return func(h *Household) {
		h.headID = headID
	}
}

func WithCreatedAt(t time.Time) Option {
	return func(h *Household) {
		h.createdAt = t
	}
}

func WithUpdatedAt(t time.Time) Option {
	return func(h *Household) {
		h.updatedAt = t
	}
}

func New(tenantID uuid.UUID, name string, opts ...Option) Household {
	h := Household{
		tenantID: tenantID,
		name:     strings.TrimSpace(name),
	}
	for _, opt := range opts {
		opt(&h)
	}
	return h
}

func (h Household) ID() uuid.UUID {
	return h.id
}

func (h Household) TenantID() uuid.UUID {
	return h.tenantID
}

func (h Household) Name() string {
	return h.name
}

func (h Household) HeadID() *uuid.UUID {
	return h.headID
}

func (h Household) CreatedAt() time.Time {
	return h.createdAt
}

func (h Household) UpdatedAt() time.Time {
	return h.updatedAt
}

func (h Household) IsZero() bool {
	return h.id == uuid.Nil && h.name == ""
}

// Rename returns a copy with the new display name.
func (h Household) Rename(name string) Household {
	h.name = strings.TrimSpace(name)
	return h
}
