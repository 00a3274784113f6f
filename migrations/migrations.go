// Package migrations registers the store's schema versions. Each version lives in its own file and
// registers itself from init; latest.go holds the schema a fresh store is created with.
package migrations

import (
	"github.com/mmdatafocus/fieldsales_backend/migrate"
)

var registry = migrate.NewRegistry()

// Registry returns the registry holding every schema version.
func Registry() *migrate.Registry {
	return registry
}

// Latest is the newest schema version the binary knows about.
func Latest() int {
	return registry.Latest()
}

func register(m migrate.Migration) {
	registry.MustRegister(m)
}
