package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID        string
	TenantID  string
	Name      string
	Slug      string
	Position  int
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type GivingRecord struct {
	ID             string
	TenantID       string
	MemberID       string
	EnvelopeNumber sql.NullInt32
	GivenAt        time.Time
	CheckNumber    sql.NullString
	Notes          sql.NullString
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type GivingItem struct {
	ID         string
	TenantID   string
	RecordID   string
	CategoryID string
	Amount     decimal.Decimal
}
