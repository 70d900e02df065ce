package itf

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"github.com/dchoinie/church-membership-app-sub003/modules"
	"github.com/dchoinie/church-membership-app-sub003/pkg/application"
	"github.com/dchoinie/church-membership-app-sub003/pkg/composables"
	"github.com/dchoinie/church-membership-app-sub003/pkg/configuration"
	"github.com/dchoinie/church-membership-app-sub003/pkg/eventbus"
)

// Postgres limits identifiers to 63 bytes; longer test names get
// truncated with a hash suffix to stay unique.
const (
	maxDBNameLen  = 63
	hashSuffixLen = 9
)

// createDB drops and recreates the per-test database. Admin statements
// go through database/sql with the lib/pq driver because CREATE DATABASE
// has to run outside the app pool.
func createDB(name string) error {
	c := configuration.Use()
	admin, err := sql.Open("postgres", fmt.Sprintf(
		"host=%s port=%s user=%s dbname=postgres password=%s sslmode=disable",
		c.Database.Host, c.Database.Port, c.Database.User, c.Database.Password,
	))
	if err != nil {
		return err
	}
	defer func() { _ = admin.Close() }()

	dbName := testDBName(name)
	if _, err := admin.Exec(fmt.Sprintf("DROP DATABASE IF EXISTS %s", dbName)); err != nil {
		return err
	}
	if _, err := admin.Exec(fmt.Sprintf("CREATE DATABASE %s", dbName)); err != nil {
		return err
	}
	return nil
}

func newPool(name string) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c := configuration.Use()
	config, err := pgxpool.ParseConfig(fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		c.Database.Host, c.Database.Port, c.Database.User, testDBName(name), c.Database.Password,
	))
	if err != nil {
		return nil, err
	}
	config.MaxConns = 4
	config.MinConns = 1
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 30 * time.Second

	return pgxpool.NewWithConfig(ctx, config)
}

// testDBName turns a test name (slashes, spaces, mixed case) into a
// valid Postgres database name.
func testDBName(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, name)
	for strings.Contains(mapped, "__") {
		mapped = strings.ReplaceAll(mapped, "__", "_")
	}
	mapped = strings.Trim(mapped, "_")
	if mapped == "" {
		mapped = "test_db"
	}
	if len(mapped) <= maxDBNameLen {
		return mapped
	}
	sum := sha256.Sum256([]byte(name))
	return fmt.Sprintf("%s_%x", mapped[:maxDBNameLen-hashSuffixLen], sum[:4])
}

// setupApplication assembles the app the way cmd/server does, minus the
// HTTP listener, and runs migrations against the fresh database.
func setupApplication(pool *pgxpool.Pool, mods ...application.Module) (application.Application, error) {
	conf := configuration.Use()
	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		Bundle:   application.LoadBundle(),
		EventBus: eventbus.NewEventPublisher(conf.Logger()),
		Logger:   conf.Logger(),
	})
	if err := modules.Load(app, mods...); err != nil {
		return nil, err
	}
	if err := app.Migrations().Run(context.Background()); err != nil {
		return nil, err
	}
	return app, nil
}

// createTestTenant commits a tenant through the pool before the fixture
// transaction begins, so rows created inside the transaction can
// reference it.
func createTestTenant(ctx context.Context, pool *pgxpool.Pool) (*composables.Tenant, error) {
	id := uuid.New()
	t := &composables.Tenant{
		ID:     id,
		Name:   "Test Tenant " + id.String()[:8],
		Domain: id.String()[:8] + ".test.com",
	}
	_, err := pool.Exec(ctx,
		"INSERT INTO tenants (id, name, domain, created_at, updated_at) VALUES ($1, $2, $3, now(), now()) ON CONFLICT (id) DO NOTHING",
		t.ID, t.Name, t.Domain,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create test tenant: %w", err)
	}
	return t, nil
}

// defaultParams stands in for the RequestParams middleware so code under
// test can call composables.UseParams without a real HTTP request.
func defaultParams() *composables.Params {
	return &composables.Params{
		IP:        "127.0.0.1",
		UserAgent: "itf-test",
	}
}
