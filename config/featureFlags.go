package config

import (
	"os"
	"strings"
)

func boolFromEnv(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return def
	}
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// StrictOrdinalReferences makes an out-of-range ordinal reference in a snapshot fail the kind
// instead of falling back to the first stored representative.
//
// Set via env:
// - STRICT_ORDINAL_REFERENCES=true
func StrictOrdinalReferences() bool {
	return boolFromEnv("STRICT_ORDINAL_REFERENCES", false)
}

// AllowDestructiveRebuild lets the migrator drop and recreate the store when no migration path
// exists from the stored schema version. A backup is taken first.
//
// Set via env:
// - ALLOW_DESTRUCTIVE_REBUILD=false to refuse and return an error instead
func AllowDestructiveRebuild() bool {
	return boolFromEnv("ALLOW_DESTRUCTIVE_REBUILD", true)
}

// ExportWorkbook adds an xlsx stock workbook next to the catalog snapshot on full exports.
func ExportWorkbook() bool {
	return boolFromEnv("EXPORT_WORKBOOK", false)
}

// TracingEnabled installs the otelgorm plugin on the store.
func TracingEnabled() bool {
	return boolFromEnv("TRACING_ENABLED", false)
}

// WatchInbox makes the server import snapshot files dropped into the snapshot directory.
//
// Set via env:
// - WATCH_INBOX=true
func WatchInbox() bool {
	return boolFromEnv("WATCH_INBOX", false)
}
