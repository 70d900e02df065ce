package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dchoinie/church-membership-app-sub003/modules"
	"github.com/dchoinie/church-membership-app-sub003/modules/core/domain/entities/tenant"
	"github.com/dchoinie/church-membership-app-sub003/modules/core/infrastructure/persistence"
	coreseed "github.com/dchoinie/church-membership-app-sub003/modules/core/seed"
	givingseed "github.com/dchoinie/church-membership-app-sub003/modules/giving/seed"
	"github.com/dchoinie/church-membership-app-sub003/pkg/application"
	"github.com/dchoinie/church-membership-app-sub003/pkg/composables"
	"github.com/dchoinie/church-membership-app-sub003/pkg/configuration"
	"github.com/dchoinie/church-membership-app-sub003/pkg/constants"
	"github.com/dchoinie/church-membership-app-sub003/pkg/eventbus"
)

type seedOptions struct {
	tenant       string
	tenantName   string
	tenantDomain string
}

func newSeedCmd() *cobra.Command {
	var opts seedOptions

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Apply schema and seed baseline data (tenant, giving categories)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.tenant, "tenant", "", "Existing tenant UUID or domain to seed (default: the default tenant)")
	cmd.Flags().StringVar(&opts.tenantName, "tenant-name", "", "Create a tenant with this name before seeding")
	cmd.Flags().StringVar(&opts.tenantDomain, "tenant-domain", "", "Domain of the tenant created with --tenant-name")
	cmd.MarkFlagsRequiredTogether("tenant-name", "tenant-domain")
	cmd.MarkFlagsMutuallyExclusive("tenant", "tenant-name")
	return cmd
}

type seedSummary struct {
	Status   string `json:"status"`
	TenantID string `json:"tenant_id"`
	Domain   string `json:"domain,omitempty"`
}

func runSeed(ctx context.Context, opts seedOptions) error {
	pool, err := connectDB(ctx)
	if err != nil {
		return withCode(exitDB, err)
	}
	defer pool.Close()

	conf := configuration.Use()
	logger := conf.Logger()

	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		Bundle:   application.LoadBundle(),
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	if err := modules.Load(app, modules.BuiltInModules...); err != nil {
		return withCode(exitDB, fmt.Errorf("load modules: %w", err))
	}
	if err := app.Migrations().Run(ctx); err != nil {
		return withCode(exitDBWrite, fmt.Errorf("apply schema: %w", err))
	}

	ctx = composables.WithPool(ctx, pool)
	ctx = context.WithValue(ctx, constants.LoggerKey, logrus.NewEntry(logger))

	seeder := app.Seeder()
	tenantID := coreseed.DefaultTenantID
	domain := ""
	switch {
	case opts.tenantName != "":
		domain = tenant.NormalizeDomain(opts.tenantDomain)
		if _, err := persistence.NewTenantRepository().GetByDomain(ctx, domain); err == nil {
			return withCode(exitValidation, fmt.Errorf("tenant domain %q already in use", domain))
		} else if !is(err, persistence.ErrTenantNotFound) {
			return withCode(exitDB, fmt.Errorf("check tenant domain %q: %w", domain, err))
		}
		created := tenant.New(opts.tenantName, domain)
		tenantID = created.ID()
		seeder.Register(func(ctx context.Context, _ application.Application) error {
			_, err := persistence.NewTenantRepository().Create(ctx, created)
			return err
		})
	case opts.tenant != "":
		tenantID, err = resolveTenant(ctx, opts.tenant)
		if err != nil {
			return err
		}
	default:
		seeder.Register(coreseed.CreateDefaultTenant)
	}
	seeder.Register(givingseed.CreateDefaultCategories)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return withCode(exitDB, fmt.Errorf("begin tx: %w", err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	seedCtx := composables.WithTenantID(composables.WithTx(ctx, tx), tenantID)
	if err := seeder.Seed(seedCtx, app); err != nil {
		return withCode(exitDBWrite, fmt.Errorf("seed: %w", err))
	}
	if err := tx.Commit(seedCtx); err != nil {
		return withCode(exitDBWrite, fmt.Errorf("commit: %w", err))
	}

	return writeJSONLine(seedSummary{Status: "seeded", TenantID: tenantID.String(), Domain: domain})
}
