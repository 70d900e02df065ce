package giving

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type FindParams struct {
	MemberID uuid.UUID  `form:"member_id"`
	From     *time.Time `form:"from"`
	To       *time.Time `form:"to"`
	Limit    int        `form:"limit"`
	Offset   int        `form:"offset"`
}

type Repository interface {
	GetPaginated(ctx context.Context, params *FindParams) ([]Record, int64, error)
	GetByID(ctx context.Context, id uuid.UUID) (Record, error)
	// CreateBatch inserts records with their items in input order inside
	// the caller's transaction; either the whole batch lands or none of
	// it does.
	CreateBatch(ctx context.Context, records []Record) ([]Record, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
