package application

// Module is a self-contained feature (membership, giving, ...) that wires
// its services, controllers, schema and locales into the application.
type Module interface {
	Name() string
	Register(app Application) error
}
