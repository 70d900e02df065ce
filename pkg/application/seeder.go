package application

import (
	"context"

	"github.com/dchoinie/church-membership-app-sub003/pkg/configuration"
)

type SeedFunc func(ctx context.Context, app Application) error

// Seeder collects module seed functions and runs them in registration
// order.
type Seeder interface {
	Register(seedFuncs ...SeedFunc)
	Seed(ctx context.Context, app Application) error
}

func NewSeeder() Seeder {
	return &seeder{}
}

type seeder struct {
	seedFuncs []SeedFunc
}

func (s *seeder) Seed(ctx context.Context, app Application) error {
	conf := configuration.Use()
	for i, seedFunc := range s.seedFuncs {
		conf.Logger().Infof("Seeding step %d/%d", i+1, len(s.seedFuncs))
		if err := seedFunc(ctx, app); err != nil {
			return err
		}
	}
	return nil
}

func (s *seeder) Register(seedFuncs ...SeedFunc) {
	s.seedFuncs = append(s.seedFuncs, seedFuncs...)
}
