// Package itf is the integration test fixture. Each Build provisions a
// fresh database with migrations applied, commits a tenant, and returns
// a context wired the way the middleware chain wires production
// requests. The fixture transaction rolls back in cleanup, so tests
// never see each other's rows.
package itf

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/dchoinie/church-membership-app-sub003/pkg/application"
	"github.com/dchoinie/church-membership-app-sub003/pkg/composables"
	"github.com/dchoinie/church-membership-app-sub003/pkg/configuration"
	"github.com/dchoinie/church-membership-app-sub003/pkg/constants"
)

type TestContext struct {
	modules []application.Module
}

func NewTestContext() *TestContext {
	return &TestContext{}
}

func (tc *TestContext) WithModules(mods ...application.Module) *TestContext {
	tc.modules = append(tc.modules, mods...)
	return tc
}

// Build provisions the database and application and returns the ready
// environment. Cleanup is registered on tb.
func (tc *TestContext) Build(tb testing.TB) *TestEnvironment {
	tb.Helper()

	if err := createDB(tb.Name()); err != nil {
		tb.Fatal(err)
	}
	pool, err := newPool(tb.Name())
	if err != nil {
		tb.Fatal(err)
	}

	app, err := setupApplication(pool, tc.modules...)
	if err != nil {
		pool.Close()
		tb.Fatal(err)
	}

	ctx := context.Background()
	tenant, err := createTestTenant(ctx, pool)
	if err != nil {
		pool.Close()
		tb.Fatal(err)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		pool.Close()
		tb.Fatal(err)
	}

	ctx = composables.WithPool(ctx, pool)
	ctx = composables.WithTx(ctx, tx)
	ctx = composables.WithTenantID(ctx, tenant.ID)
	ctx = composables.WithParams(ctx, defaultParams())
	ctx = context.WithValue(ctx, constants.LoggerKey, logrus.NewEntry(configuration.Use().Logger()))

	tb.Cleanup(func() {
		if err := tx.Rollback(context.Background()); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			tb.Logf("fixture rollback failed: %v", err)
		}
		pool.Close()
	})

	return &TestEnvironment{
		Ctx:    ctx,
		Pool:   pool,
		Tx:     tx,
		App:    app,
		Tenant: tenant,
	}
}

// TestEnvironment is the assembled fixture handed to tests.
type TestEnvironment struct {
	Ctx    context.Context
	Pool   *pgxpool.Pool
	Tx     pgx.Tx
	App    application.Application
	Tenant *composables.Tenant
}

// GetService fetches a registered service by its type.
func GetService[T any](te *TestEnvironment) *T {
	var zero T
	svc := te.App.Service(zero)
	if svc == nil {
		return nil
	}
	return svc.(*T)
}

func (te *TestEnvironment) TenantID() uuid.UUID {
	return te.Tenant.ID
}
