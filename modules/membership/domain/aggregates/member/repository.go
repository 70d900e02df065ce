package member

import (
	"context"

	"github.com/google/uuid"
)

type FindParams struct {
	Q      string `form:"q"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

type Repository interface {
	GetPaginated(ctx context.Context, params *FindParams) ([]Member, int64, error)
	// GetAll returns every member of the tenant in stable creation order.
	// Import and head-of-household resolution build snapshots from it.
	GetAll(ctx context.Context) ([]Member, error)
	GetByID(ctx context.Context, id uuid.UUID) (Member, error)
	GetByHousehold(ctx context.Context, householdID uuid.UUID) ([]Member, error)
	// EmailsInUse returns the lowercased set of non-empty member emails for
	// the tenant, used to prefetch uniqueness checks before an import.
	EmailsInUse(ctx context.Context) (map[string]struct{}, error)
	Create(ctx context.Context, m Member) (Member, error)
	CreateBatch(ctx context.Context, members []Member) ([]Member, error)
	Update(ctx context.Context, m Member) (Member, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
