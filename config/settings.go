package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Settings groups the paths and sizes the sync service runs with.
// Values come from the environment (optionally a .env file) with local defaults.
type Settings struct {
	DatabasePath  string
	SnapshotDir   string
	ExportDir     string
	OutboxDir     string
	BackupDir     string
	RetainBackups int
	Workers       int
	QueueSize     int
	Locale        string
	PhoneRegion   string
	Port          string
}

func LoadSettings() Settings {
	dataDir := stringFromEnv("FIELDSYNC_DATA_DIR", "data")
	return Settings{
		DatabasePath:  stringFromEnv("FIELDSYNC_DB_PATH", filepath.Join(dataDir, "fieldsales.db")),
		SnapshotDir:   stringFromEnv("FIELDSYNC_SNAPSHOT_DIR", filepath.Join(dataDir, "inbox")),
		ExportDir:     stringFromEnv("FIELDSYNC_EXPORT_DIR", filepath.Join(dataDir, "export")),
		OutboxDir:     stringFromEnv("FIELDSYNC_OUTBOX_DIR", filepath.Join(dataDir, "outbox")),
		BackupDir:     stringFromEnv("FIELDSYNC_BACKUP_DIR", filepath.Join(dataDir, "backups")),
		RetainBackups: intFromEnv("FIELDSYNC_RETAIN_BACKUPS", 5),
		Workers:       intFromEnv("FIELDSYNC_WORKERS", 4),
		QueueSize:     intFromEnv("FIELDSYNC_QUEUE_SIZE", 32),
		Locale:        stringFromEnv("FIELDSYNC_LOCALE", "en"),
		PhoneRegion:   stringFromEnv("FIELDSYNC_PHONE_REGION", "ES"),
		Port:          stringFromEnv("PORT", "8080"),
	}
}

func stringFromEnv(key string, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}
