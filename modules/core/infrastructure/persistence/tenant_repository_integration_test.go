//go:build integration

package persistence_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dchoinie/church-membership-app-sub003/modules"
	"github.com/dchoinie/church-membership-app-sub003/modules/core/domain/entities/tenant"
	"github.com/dchoinie/church-membership-app-sub003/modules/core/infrastructure/persistence"
	"github.com/dchoinie/church-membership-app-sub003/pkg/itf"
)

func TestTenantRepository_Integration_DomainRoundTrip(t *testing.T) {
	f := itf.NewTestContext().
		WithModules(modules.BuiltInModules...).
		Build(t)

	repo := persistence.NewTenantRepository()

	created, err := repo.Create(f.Ctx, tenant.New("Grace Lutheran", "  Grace.Church  "))
	require.NoError(t, err)
	assert.Equal(t, "grace.church", created.Domain())
	assert.True(t, created.IsActive())

	// Lookups normalize the same way writes do.
	found, err := repo.GetByDomain(f.Ctx, "GRACE.CHURCH")
	require.NoError(t, err)
	assert.Equal(t, created.ID(), found.ID())
	assert.Equal(t, "Grace Lutheran", found.Name())

	moved, err := repo.Update(f.Ctx, found.WithDomain("Grace.Online"))
	require.NoError(t, err)
	assert.Equal(t, "grace.online", moved.Domain())

	_, err = repo.GetByDomain(f.Ctx, "grace.church")
	require.ErrorIs(t, err, persistence.ErrTenantNotFound)

	_, err = repo.GetByID(f.Ctx, uuid.New())
	require.ErrorIs(t, err, persistence.ErrTenantNotFound)

	// Updating a tenant that was never created reports not found.
	_, err = repo.Update(f.Ctx, tenant.New("Ghost Parish", "ghost.example"))
	require.ErrorIs(t, err, persistence.ErrTenantNotFound)
}
