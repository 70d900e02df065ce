package modules

import (
	"github.com/dchoinie/church-membership-app-sub003/modules/core"
	"github.com/dchoinie/church-membership-app-sub003/modules/giving"
	"github.com/dchoinie/church-membership-app-sub003/modules/membership"
	"github.com/dchoinie/church-membership-app-sub003/pkg/application"
)

// BuiltInModules is the full application in registration order. Core
// must come first: it owns the tenants table the other schemas
// reference.
var BuiltInModules = []application.Module{
	core.NewModule(),
	membership.NewModule(),
	giving.NewModule(),
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range externalModules {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
