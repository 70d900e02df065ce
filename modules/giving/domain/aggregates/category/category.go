package category

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Category is a tenant-defined giving bucket ("Current", "Mission").
// Inactive categories stay attached to historical records but are not
// offered to new imports.
type Category struct {
	id        uuid.UUID
	tenantID  uuid.UUID
	name      string
	slug      string
	position  int
	active    bool
	createdAt time.Time
	updatedAt time.Time
}

type Option func(*Category)

func WithID(id uuid.UUID) Option {
	return func(c *Category) {
		c.id = id
	}
}

func WithSlug(slug string) Option {
	return func(c *Category) {
		c.slug = slug
	}
}

func WithPosition(position int) Option {
	return func(c *Category) {
		c.position = position
	}
}

func WithActive(active bool) Option {
	return func(c *Category) {
		c.active = active
	}
}

func WithCreatedAt(t time.Time) Option {
	return func(c *Category) {
		c.createdAt = t
	}
}

func WithUpdatedAt(t time.Time) Option {
	return func(c *Category) {
		c.updatedAt = t
	}
}

func New(tenantID uuid.UUID, name string, opts ...Option) Category {
	c := Category{
		tenantID: tenantID,
		name:     strings.TrimSpace(name),
		active:   true,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.slug == "" {
		c.slug = Slugify(c.name)
	}
	return c
}

func (c Category) ID() uuid.UUID {
	return c.id
}

func (c Category) TenantID() uuid.UUID {
	return c.tenantID
}

func (c Category) Name() string {
	return c.name
}

func (c Category) Slug() string {
	return c.slug
}

func (c Category) Position() int {
	return c.position
}

func (c Category) Active() bool {
	return c.active
}

func (c Category) CreatedAt() time.Time {
	return c.createdAt
}

func (c Category) UpdatedAt() time.Time {
	return c.updatedAt
}

func (c Category) IsZero() bool {
	return c.id == uuid.Nil && c.name == ""
}

// Rename returns a copy with the new name and a slug derived from it.
func (c Category) Rename(name string) Category {
	c.name = strings.TrimSpace(name)
	c.slug = Slugify(c.name)
	return c
}

func (c Category) SetActive(active bool) Category {
	c.active = active
	return c
}

func (c Category) SetPosition(position int) Category {
	c.position = position
	return c
}

// Slugify lowercases a name and joins the alphanumeric runs with
// hyphens ("Debt Reduction" -> "debt-reduction").
func Slugify(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	pendingHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !alnum {
			pendingHyphen = true
			continue
		}
		if pendingHyphen && b.Len() > 0 {
			b.WriteByte('-')
		}
		pendingHyphen = false
		b.WriteRune(r)
	}
	return b.String()
}
