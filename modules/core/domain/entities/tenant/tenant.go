package tenant

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Tenant is a congregation on the platform. Every member, household and
// giving record hangs off exactly one tenant, and the domain is what
// host-based resolution matches incoming requests against.
type Tenant struct {
	id        uuid.UUID
	name      string
	domain    string
	isActive  bool
	createdAt time.Time
	updatedAt time.Time
}

// NormalizeDomain is the canonical form a domain is stored and looked
// up in: lowercase, no surrounding whitespace.
func NormalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}

type Option func(*Tenant)

func WithID(id uuid.UUID) Option {
	return func(t *Tenant) {
		t.id = id
	}
}

func WithIsActive(active bool) Option {
	return func(t *Tenant) {
		t.isActive = active
	}
}

func WithCreatedAt(ts time.Time) Option {
	return func(t *Tenant) {
		t.createdAt = ts
	}
}

func WithUpdatedAt(ts time.Time) Option {
	return func(t *Tenant) {
		t.updatedAt = ts
	}
}

// New builds an active tenant. The id and timestamps default here rather
// than in the database so a seeded tenant can be referenced before its
// insert commits.
func New(name, domain string, opts ...Option) Tenant {
	now := time.Now()
	t := Tenant{
		id:        uuid.New(),
		name:      strings.TrimSpace(name),
		domain:    NormalizeDomain(domain),
		isActive:  true,
		createdAt: now,
		updatedAt: now,
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

func (t Tenant) ID() uuid.UUID {
	return t.id
}

func (t Tenant) Name() string {
	return t.name
}

func (t Tenant) Domain() string {
	return t.domain
}

func (t Tenant) IsActive() bool {
	return t.isActive
}

func (t Tenant) CreatedAt() time.Time {
	return t.createdAt
}

func (t Tenant) UpdatedAt() time.Time {
	return t.updatedAt
}

// WithDomain returns the tenant pointed at a different domain.
func (t Tenant) WithDomain(domain string) Tenant {
	t.domain = NormalizeDomain(domain)
	t.updatedAt = time.Now()
	return t
}
