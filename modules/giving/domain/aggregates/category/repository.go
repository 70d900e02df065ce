package category

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// GetAll returns every category of the tenant ordered by position,
	// active and inactive alike. Callers filter on Active when needed.
	GetAll(ctx context.Context) ([]Category, error)
	GetByID(ctx context.Context, id uuid.UUID) (Category, error)
	Create(ctx context.Context, c Category) (Category, error)
	Update(ctx context.Context, c Category) (Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
