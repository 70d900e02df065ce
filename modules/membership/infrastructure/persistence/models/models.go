package models

import (
	"database/sql"
	"time"
)

type Member struct {
	ID             string
	TenantID       string
	HouseholdID    string
	EnvelopeNumber sql.NullInt32
	FirstName      string
	MiddleName     sql.NullString
	LastName       string
	Email          sql.NullString
	Sex            sql.NullString
	DateOfBirth    sql.NullTime
	Sequence       sql.NullString
	Participation  sql.NullString
	ReceivedBy     sql.NullString
	ReceivedDate   sql.NullTime
	RemovedBy      sql.NullString
	RemovedDate    sql.NullTime
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Household struct {
	ID        string
	TenantID  string
	Name      string
	HeadID    sql.NullString
	CreatedAt time.Time
	UpdatedAt time.Time
}
