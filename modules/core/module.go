package core

import (
	"embed"

	"github.com/dchoinie/church-membership-app-sub003/modules/core/infrastructure/persistence"
	"github.com/dchoinie/church-membership-app-sub003/modules/core/presentation/controllers"
	"github.com/dchoinie/church-membership-app-sub003/modules/core/services"
	"github.com/dchoinie/church-membership-app-sub003/pkg/application"
)

//go:embed presentation/locales/*.json
var LocaleFiles embed.FS

//go:embed infrastructure/persistence/schema/core-schema.sql
var MigrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	app.Migrations().RegisterSchema(&MigrationFiles)
	app.RegisterLocaleFiles(&LocaleFiles)

	importEvents := services.NewImportEventService(
		persistence.NewImportEventRepository(),
		app.DB(),
		app.Logger(),
	)

	app.RegisterServices(
		services.NewTenantService(persistence.NewTenantRepository()),
		importEvents,
	)

	// The outbox relay publishes through the bus; without this
	// subscription every import event would exhaust its retries.
	app.EventPublisher().Subscribe(importEvents.HandleOutboxEvent)

	app.RegisterControllers(
		controllers.NewHealthController(app),
		controllers.NewImportHistoryController(app),
	)

	return nil
}

func (m *Module) Name() string {
	return "core"
}
