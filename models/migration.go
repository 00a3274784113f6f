package models

import (
	"context"

	"github.com/mmdatafocus/fieldsales_backend/config"
	"github.com/mmdatafocus/fieldsales_backend/migrate"
	"github.com/mmdatafocus/fieldsales_backend/migrations"
)

// MigrateTable brings the global DB to the latest schema version. It runs once when the store
// is opened, before anything reads or writes it.
func MigrateTable(ctx context.Context, settings config.Settings) (*migrate.Report, error) {
	db := config.GetDB()
	logger := config.GetLogger()

	runner, err := migrate.NewRunner(db, migrations.Registry(), migrations.Bootstrap, migrate.Config{
		DatabasePath:     settings.DatabasePath,
		BackupDir:        settings.BackupDir,
		RetainBackups:    settings.RetainBackups,
		AllowDestructive: config.AllowDestructiveRebuild(),
	}, logger)
	if err != nil {
		return nil, err
	}
	report, err := runner.ApplyAll(ctx)
	if err != nil {
		config.LogError(logger, "models", "MigrateTable", "apply migrations", settings.DatabasePath, err)
		return report, err
	}
	logger.WithField("from", report.From).WithField("to", report.To).
		WithField("rebuilt", report.Rebuilt).Info("schema ready")
	return report, nil
}
