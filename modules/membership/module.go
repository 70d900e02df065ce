package membership

import (
	"embed"

	"github.com/dchoinie/church-membership-app-sub003/modules/membership/infrastructure/persistence"
	"github.com/dchoinie/church-membership-app-sub003/modules/membership/presentation/controllers"
	"github.com/dchoinie/church-membership-app-sub003/modules/membership/services"
	"github.com/dchoinie/church-membership-app-sub003/pkg/application"
	"github.com/dchoinie/church-membership-app-sub003/pkg/outbox"
)

//go:embed presentation/locales/*.json
var LocaleFiles embed.FS

//go:embed infrastructure/persistence/schema/membership-schema.sql
var MigrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

type Module struct{}

func (m *Module) Register(app application.Application) error {
	app.Migrations().RegisterSchema(&MigrationFiles)
	app.RegisterLocaleFiles(&LocaleFiles)

	memberRepo := persistence.NewMemberRepository()
	householdRepo := persistence.NewHouseholdRepository()

	app.RegisterServices(
		services.NewMemberService(memberRepo, householdRepo),
		services.NewHouseholdService(householdRepo, memberRepo),
		services.NewMemberImportService(memberRepo, householdRepo, outbox.NewPublisher()),
	)

	app.RegisterControllers(
		controllers.NewMembershipAPIController(app),
	)

	return nil
}

func (m *Module) Name() string {
	return "membership"
}
