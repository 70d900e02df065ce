package member

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// Sequence is the member's role within their household. Legacy rosters
// call this column "sequence"; the name stuck.
type Sequence string

const (
	SequenceHeadOfHouse Sequence = "head_of_house"
	SequenceSpouse      Sequence = "spouse"
	SequenceChild       Sequence = "child"
	SequenceOther       Sequence = "other"
)

type Participation string

const (
	ParticipationCommunicant    Participation = "communicant"
	ParticipationNonCommunicant Participation = "non_communicant"
	ParticipationBaptized       Participation = "baptized"
	ParticipationInactive       Participation = "inactive"
)

// Member belongs to exactly one household. The envelope number is the
// household's offering-envelope identifier denormalized onto each member
// row, so every member of a household shares the same value.
type Member struct {
	id             uuid.UUID
	tenantID       uuid.UUID
	householdID    uuid.UUID
	envelopeNumber *int
	firstName      string
	middleName     string
	lastName       string
	email          string
	sex            Sex
	dateOfBirth    *time.Time
	sequence       Sequence
	participation  Participation
	receivedBy     string
	receivedDate   *time.Time
	removedBy      string
	removedDate    *time.Time
	createdAt      time.Time
	updatedAt      time.Time
}

type Option func(*Member)

func WithID(id uuid.UUID) Option {
	return func(m *Member) {
		m.id = id
	}
}

func WithEnvelopeNumber(n *int) Option {
	return func(m *Member) {
		m.envelopeNumber = n
	}
}

func WithMiddleName(name string) Option {
	return func(m *Member) {
		m.middleName = strings.TrimSpace(name)
	}
}

func WithEmail(email string) Option {
	return func(m *Member) {
		m.email = strings.ToLower(strings.TrimSpace(email))
	}
}

func WithSex(sex Sex) Option {
	return func(m *Member) {
		m.sex = sex
	}
}

func WithDateOfBirth(dob *time.Time) Option {
	return func(m *Member) {
		m.dateOfBirth = dob
	}
}

func WithSequence(seq Sequence) Option {
	return func(m *Member) {
		m.sequence = seq
	}
}

func WithParticipation(p Participation) Option {
	return func(m *Member) {
		m.participation = p
	}
}

func WithReceived(by string, date *time.Time) Option {
	return func(m *Member) {
		m.receivedBy = strings.TrimSpace(by)
		m.receivedDate = date
	}
}

func WithRemoved(by string, date *time.Time) Option {
	return func(m *Member) {
		m.removedBy = strings.TrimSpace(by)
		m.removedDate = date
	}
}

func WithCreatedAt(t time.Time) Option {
	return func(m *Member) {
		m.createdAt = t
	}
}

func WithUpdatedAt(t time.Time) Option {
	return func(m *Member) {
		m.updatedAt = t
	}
}

func New(tenantID, householdID uuid.UUID, firstName, lastName string, opts ...Option) Member {
	m := Member{
		tenantID:    tenantID,
		householdID: householdID,
		firstName:   strings.TrimSpace(firstName),
		lastName:    strings.TrimSpace(lastName),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

func (m Member) ID() uuid.UUID {
	return m.id
}

func (m Member) TenantID() uuid.UUID {
	return m.tenantID
}

func (m Member) HouseholdID() uuid.UUID {
	return m.householdID
}

func (m Member) EnvelopeNumber() *int {
	return m.envelopeNumber
}

func (m Member) FirstName() string {
	return m.firstName
}

func (m Member) MiddleName() string {
	return m.middleName
}

func (m Member) LastName() string {
	return m.lastName
}

func (m Member) Email() string {
	return m.email
}

func (m Member) Sex() Sex {
	return m.sex
}

func (m Member) DateOfBirth() *time.Time {
	return m.dateOfBirth
}

func (m Member) Sequence() Sequence {
	return m.sequence
}

func (m Member) Participation() Participation {
	return m.participation
}

func (m Member) ReceivedBy() string {
	return m.receivedBy
}

func (m Member) ReceivedDate() *time.Time {
	return m.receivedDate
}

func (m Member) RemovedBy() string {
	return m.removedBy
}

func (m Member) RemovedDate() *time.Time {
	return m.removedDate
}

func (m Member) CreatedAt() time.Time {
	return m.createdAt
}

func (m Member) UpdatedAt() time.Time {
	return m.updatedAt
}

func (m Member) IsZero() bool {
	return m.id == uuid.Nil && m.firstName == "" && m.lastName == ""
}

// FullName joins the non-empty name parts with single spaces.
func (m Member) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{m.firstName, m.middleName, m.lastName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// WithHousehold reassigns the member to another household.
func (m Member) WithHousehold(householdID uuid.UUID) Member {
	m.householdID = householdID
	return m
}
