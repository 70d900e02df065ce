package giving

import (
	"embed"

	"github.com/dchoinie/church-membership-app-sub003/modules/giving/infrastructure/persistence"
	"github.com/dchoinie/church-membership-app-sub003/modules/giving/presentation/controllers"
	"github.com/dchoinie/church-membership-app-sub003/modules/giving/services"
	membershippersistence "github.com/dchoinie/church-membership-app-sub003/modules/membership/infrastructure/persistence"
	"github.com/dchoinie/church-membership-app-sub003/pkg/application"
	"github.com/dchoinie/church-membership-app-sub003/pkg/outbox"
)

//go:embed presentation/locales/*.json
var LocaleFiles embed.FS

//go:embed infrastructure/persistence/schema/giving-schema.sql
var MigrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	app.Migrations().RegisterSchema(&MigrationFiles)
	app.RegisterLocaleFiles(&LocaleFiles)

	categoryRepo := persistence.NewCategoryRepository()
	givingRepo := persistence.NewGivingRepository()
	memberRepo := membershippersistence.NewMemberRepository()

	app.RegisterServices(
		services.NewCategoryService(categoryRepo),
		services.NewGivingService(givingRepo),
		services.NewGivingImportService(givingRepo, categoryRepo, memberRepo, outbox.NewPublisher()),
	)

	app.RegisterControllers(
		controllers.NewGivingAPIController(app),
	)

	return nil
}

func (m *Module) Name() string {
	return "giving"
}
