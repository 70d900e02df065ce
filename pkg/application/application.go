// Package application is the assembly point of the modular monolith.
// Modules register their services, controllers, migrations, seed funcs
// and locale files against an Application; the HTTP server and the data
// CLI then consume whatever ended up registered.
package application

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"reflect"

	"github.com/BurntSushi/toml"
	"github.com/gorilla/mux"
	"github.com/iota-uz/go-i18n/v2/i18n"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/language"

	"github.com/dchoinie/church-membership-app-sub003/pkg/eventbus"
)

// Controller is an HTTP surface registered by a module. Key must be
// stable and unique; re-registering the same key replaces the controller.
type Controller interface {
	Key() string
	Register(r *mux.Router)
}

type Application interface {
	DB() *pgxpool.Pool
	EventPublisher() eventbus.EventBus
	Logger() *logrus.Logger
	Bundle() *i18n.Bundle
	GetSupportedLanguages() []string

	Controllers() []Controller
	Middleware() []mux.MiddlewareFunc
	Migrations() MigrationManager
	Seeder() Seeder

	RegisterControllers(controllers ...Controller)
	RegisterMiddleware(middleware ...mux.MiddlewareFunc)
	RegisterLocaleFiles(fs ...*embed.FS)
	RegisterServices(services ...any)
	Service(service any) any
}

type ApplicationOptions struct {
	Pool               *pgxpool.Pool
	EventBus           eventbus.EventBus
	Logger             *logrus.Logger
	Bundle             *i18n.Bundle
	SupportedLanguages []string
}

// LoadBundle builds the i18n bundle modules feed their locale files
// into. English is the parse fallback for message files.
func LoadBundle() *i18n.Bundle {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)
	return bundle
}

func New(opts *ApplicationOptions) Application {
	langs := opts.SupportedLanguages
	if len(langs) == 0 {
		langs = []string{"en", "es"}
	}
	return &application{
		pool:               opts.Pool,
		eventPublisher:     opts.EventBus,
		logger:             opts.Logger,
		bundle:             opts.Bundle,
		controllers:        map[string]Controller{},
		services:           map[reflect.Type]any{},
		migrations:         NewMigrationManager(opts.Pool),
		seeder:             NewSeeder(),
		supportedLanguages: langs,
	}
}

type application struct {
	pool               *pgxpool.Pool
	eventPublisher     eventbus.EventBus
	logger             *logrus.Logger
	bundle             *i18n.Bundle
	controllers        map[string]Controller
	services           map[reflect.Type]any
	middleware         []mux.MiddlewareFunc
	migrations         MigrationManager
	seeder             Seeder
	supportedLanguages []string
}

func (app *application) DB() *pgxpool.Pool                  { return app.pool }
func (app *application) EventPublisher() eventbus.EventBus  { return app.eventPublisher }
func (app *application) Logger() *logrus.Logger             { return app.logger }
func (app *application) Bundle() *i18n.Bundle               { return app.bundle }
func (app *application) GetSupportedLanguages() []string    { return app.supportedLanguages }
func (app *application) Middleware() []mux.MiddlewareFunc   { return app.middleware }
func (app *application) Migrations() MigrationManager       { return app.migrations }
func (app *application) Seeder() Seeder                     { return app.seeder }

func (app *application) Controllers() []Controller {
	out := make([]Controller, 0, len(app.controllers))
	for _, c := range app.controllers {
		out = append(out, c)
	}
	return out
}

func (app *application) RegisterControllers(controllers ...Controller) {
	for _, c := range controllers {
		app.controllers[c.Key()] = c
	}
}

func (app *application) RegisterMiddleware(middleware ...mux.MiddlewareFunc) {
	app.middleware = append(app.middleware, middleware...)
}

// RegisterServices stores each service under its element type, so a
// *services.TenantService registers as services.TenantService. Modules
// call this during Register; a failure to load locale or service wiring
// at that point is a programming error, hence the panics below.
func (app *application) RegisterServices(services ...any) {
	for _, svc := range services {
		app.services[reflect.TypeOf(svc).Elem()] = svc
	}
}

// Service looks a service up by the type of its argument: pass the zero
// value, get the registered pointer back.
//
//	app.Service(services.TenantService{}).(*services.TenantService)
func (app *application) Service(service any) any {
	t := reflect.TypeOf(service)
	svc, ok := app.services[t]
	if !ok {
		panic(fmt.Sprintf("service %v is not registered; is its module loaded?", t))
	}
	return svc
}

// RegisterLocaleFiles parses every file in the given filesystems into
// the bundle. File names (en.json, es.toml) decide language and format.
func (app *application) RegisterLocaleFiles(fsys ...*embed.FS) {
	for _, f := range fsys {
		walkErr := fs.WalkDir(f, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			raw, err := f.ReadFile(path)
			if err != nil {
				return err
			}
			app.bundle.MustParseMessageFileBytes(raw, filepath.Base(path))
			return nil
		})
		if walkErr != nil {
			panic(fmt.Errorf("loading locale files: %w", walkErr))
		}
	}
}
