package household

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (Household, error)
	GetAll(ctx context.Context) ([]Household, error)
	Create(ctx context.Context, h Household) (Household, error)
	Update(ctx context.Context, h Household) (Household, error)
	// SetHead records the head-of-household member. A nil memberID clears
	// the designation.
	SetHead(ctx context.Context, householdID uuid.UUID, memberID *uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}
