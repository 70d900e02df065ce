package giving

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is one amount attributed to a category. Only positive amounts are
// ever stored; zero and absent values are dropped before a record is
// assembled.
type Item struct {
	CategoryID uuid.UUID
	Amount     decimal.Decimal
}

// Record is one giving entry attributed to a member, conceptually the
// resolved head of the giving household. The envelope number the row
// carried is kept for reconciliation even though the member link is
// authoritative.
type Record struct {
	id             uuid.UUID
	tenantID       uuid.UUID
	memberID       uuid.UUID
	envelopeNumber *int
	givenAt        time.Time
	checkNumber    string
	notes          string
	items          []Item
	createdAt      time.Time
	updatedAt      time.Time
}

type Option func(*Record)

func WithID(id uuid.UUID) Option {
	return func(r *Record) {
		r.id = id
	}
}

func WithEnvelopeNumber(n *int) Option {
	return func(r *Record) {
		r.envelopeNumber = n
	}
}

func WithCheckNumber(check string) Option {
	return func(r *Record) {
		r.checkNumber = strings.TrimSpace(check)
	}
}

func WithNotes(notes string) Option {
	return func(r *Record) {
		r.notes = notes
	}
}

func WithCreatedAt(t time.Time) Option {
	return func(r *Record) {
		r.createdAt = t
	}
}

func WithUpdatedAt(t time.Time) Option {
	return func(r *Record) {
		r.updatedAt = t
	}
}

func New(tenantID, memberID uuid.UUID, givenAt time.Time, items []Item, opts ...Option) Record {
	r := Record{
		tenantID: tenantID,
		memberID: memberID,
		givenAt:  givenAt,
		items:    items,
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

func (r Record) ID() uuid.UUID {
	return r.id
}

func (r Record) TenantID() uuid.UUID {
	return r.tenantID
}

func (r Record) MemberID() uuid.UUID {
	return r.memberID
}

func (r Record) EnvelopeNumber() *int {
	return r.envelopeNumber
}

func (r Record) GivenAt() time.Time {
	return r.givenAt
}

func (r Record) CheckNumber() string {
	return r.checkNumber
}

func (r Record) Notes() string {
	return r.notes
}

func (r Record) Items() []Item {
	return r.items
}

func (r Record) CreatedAt() time.Time {
	return r.createdAt
}

func (r Record) UpdatedAt() time.Time {
	return r.updatedAt
}

func (r Record) IsZero() bool {
	return r.id == uuid.Nil && len(r.items) == 0
}

// Total sums the item amounts.
func (r Record) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range r.items {
		total = total.Add(item.Amount)
	}
	return total
}
