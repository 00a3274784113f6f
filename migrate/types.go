// Package migrate evolves the local store's schema through ordered, additive, introspection-guarded
// steps. The schema version lives in SQLite's user_version header field.
package migrate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNoMigrationPath is returned when the stored version cannot be brought to the latest one
	// and destructive rebuilds are disabled.
	ErrNoMigrationPath = errors.New("migrate: no migration path from stored schema version")
	// ErrDuplicateVersion is returned when registering the same version twice.
	ErrDuplicateVersion = errors.New("migrate: duplicate migration version")
)

// Step is one structural statement. Apply must consult insp before mutating and report
// whether it changed anything.
type Step interface {
	Name() string
	Apply(ctx context.Context, tx *gorm.DB, insp Inspector) (bool, error)
}

// Migration moves the schema from Version-1 to Version.
type Migration struct {
	Version        int
	Description    string
	Steps          []Step
	RequiresBackup bool
}

// Checksum identifies the step list; it is stored in the ledger for drift detection.
func (m Migration) Checksum() string {
	names := make([]string, 0, len(m.Steps))
	for _, s := range m.Steps {
		names = append(names, s.Name())
	}
	sum := sha256.Sum256([]byte(strings.Join(names, "\n")))
	return hex.EncodeToString(sum[:8])
}

// Bootstrap creates the latest schema directly on an empty store.
type Bootstrap func(ctx context.Context, tx *gorm.DB) error
