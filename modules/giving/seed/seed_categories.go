package seed

import (
	"context"

	"github.com/dchoinie/church-membership-app-sub003/modules/giving/domain/aggregates/category"
	"github.com/dchoinie/church-membership-app-sub003/modules/giving/infrastructure/persistence"
	"github.com/dchoinie/church-membership-app-sub003/modules/giving/refdata"
	"github.com/dchoinie/church-membership-app-sub003/pkg/application"
	"github.com/dchoinie/church-membership-app-sub003/pkg/composables"
	"github.com/dchoinie/church-membership-app-sub003/pkg/configuration"
)

// CreateDefaultCategories seeds the standard giving buckets for the
// tenant carried by ctx. Names already present (case-insensitively) are
// left untouched, so the seed is re-runnable.
func CreateDefaultCategories(ctx context.Context, app application.Application) error {
	logger := configuration.Use().Logger()

	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}

	categories := persistence.NewCategoryRepository()
	existing, err := categories.GetAll(ctx)
	if err != nil {
		return err
	}

	taken := make(map[string]struct{}, len(existing))
	for _, c := range existing {
		taken[refdata.NormalizeHeader(c.Name())] = struct{}{}
	}

	created := 0
	for i, name := range refdata.DefaultCategories() {
		if _, ok := taken[refdata.NormalizeHeader(name)]; ok {
			continue
		}
		if _, err := categories.Create(ctx, category.New(
			tenantID,
			name,
			category.WithPosition(i),
		)); err != nil {
			logger.Errorf("Failed to seed category %q: %v", name, err)
			return err
		}
		created++
	}

	if created > 0 {
		logger.Infof("Seeded %d giving categories", created)
	} else {
		logger.Infof("Giving categories already seeded")
	}
	return nil
}
