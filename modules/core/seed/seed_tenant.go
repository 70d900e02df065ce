package seed

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/dchoinie/church-membership-app-sub003/modules/core/domain/entities/tenant"
	"github.com/dchoinie/church-membership-app-sub003/modules/core/infrastructure/persistence"
	"github.com/dchoinie/church-membership-app-sub003/pkg/application"
	"github.com/dchoinie/church-membership-app-sub003/pkg/configuration"
)

// DefaultTenantID is the fixed id of the seeded congregation, so running
// the seeder twice never produces a second tenant.
var DefaultTenantID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

const defaultTenantDomain = "default.localhost"

// CreateDefaultTenant makes sure a congregation exists to point local
// development and single-church installs at.
func CreateDefaultTenant(ctx context.Context, app application.Application) error {
	conf := configuration.Use()
	logger := conf.Logger()
	tenants := persistence.NewTenantRepository()

	existing, err := tenants.GetByID(ctx, DefaultTenantID)
	if errors.Is(err, persistence.ErrTenantNotFound) {
		logger.WithField("domain", defaultTenantDomain).Info("seeding default tenant")
		_, err := tenants.Create(ctx, tenant.New(
			"Default Congregation",
			defaultTenantDomain,
			tenant.WithID(DefaultTenantID),
		))
		return err
	}
	if err != nil {
		return err
	}

	// A database restored from another environment can carry that
	// environment's domain; outside production, point it back at
	// localhost so host-based tenant resolution keeps working.
	if conf.GoAppEnvironment != configuration.Production && existing.Domain() != defaultTenantDomain {
		if _, err := tenants.Update(ctx, existing.WithDomain(defaultTenantDomain)); err != nil {
			return err
		}
		logger.WithField("domain", defaultTenantDomain).Info("reset default tenant domain")
	}
	return nil
}
