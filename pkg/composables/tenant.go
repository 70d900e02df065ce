package composables

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/dchoinie/church-membership-app-sub003/pkg/constants"
)

var ErrNoTenantIDFound = errors.New("no tenant id found in context")

// Tenant is the minimal tenant shape carried around outside the core module.
type Tenant struct {
	ID     uuid.UUID
	Name   string
	Domain string
}

func WithTenantID(ctx context.Context, tenantID uuid.UUID) context.Context {
	return context.WithValue(ctx, constants.TenantIDKey, tenantID)
}

func UseTenantID(ctx context.Context) (uuid.UUID, error) {
	tenantID, ok := ctx.Value(constants.TenantIDKey).(uuid.UUID)
	if !ok || tenantID == uuid.Nil {
		return uuid.Nil, ErrNoTenantIDFound
	}
	return tenantID, nil
}
