package migrations

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/mmdatafocus/fieldsales_backend/migrate"
)

// latestTables is the schema at the newest version, written out directly. A store created from
// it must be indistinguishable from one that walked every version.
var latestTables = []struct {
	name string
	ddl  string
}{
	{"representatives", `CREATE TABLE representatives (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	code TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	surname TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	birth_date TEXT NOT NULL DEFAULT '',
	photo TEXT NOT NULL DEFAULT ''
)`},
	{"counterparts", `CREATE TABLE counterparts (
	id INTEGER PRIMARY KEY,
	code TEXT NOT NULL UNIQUE,
	national_id TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL DEFAULT '',
	surname TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	province TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	birth_date TEXT NOT NULL DEFAULT '',
	photo TEXT NOT NULL DEFAULT '',
	representative_code TEXT NOT NULL DEFAULT '',
	representative_id INTEGER,
	created_date TEXT
)`},
	{"catalog_items", `CREATE TABLE catalog_items (
	article_code TEXT PRIMARY KEY NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	unit_price TEXT NOT NULL DEFAULT '0',
	stock INTEGER NOT NULL DEFAULT 0,
	image_name TEXT NOT NULL DEFAULT ''
)`},
	{"order_headers", `CREATE TABLE order_headers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	number TEXT NOT NULL UNIQUE,
	order_date TEXT NOT NULL DEFAULT '',
	owner_code TEXT NOT NULL DEFAULT '',
	owner_id INTEGER,
	delegation TEXT NOT NULL DEFAULT '',
	counterpart_code TEXT NOT NULL DEFAULT '',
	counterpart_id INTEGER,
	created_date TEXT NOT NULL DEFAULT ''
)`},
	{"order_lines", `CREATE TABLE order_lines (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_number TEXT NOT NULL REFERENCES order_headers(number) ON DELETE CASCADE,
	article_code TEXT NOT NULL DEFAULT '',
	article_name TEXT NOT NULL DEFAULT '',
	quantity INTEGER NOT NULL DEFAULT 0,
	unit_price TEXT NOT NULL DEFAULT '0'
)`},
	{"credentials", `CREATE TABLE credentials (
	login TEXT PRIMARY KEY NOT NULL,
	password_hash TEXT NOT NULL DEFAULT '',
	representative_code TEXT NOT NULL DEFAULT '',
	representative_id INTEGER
)`},
	{"visits", `CREATE TABLE visits (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	visit_date TEXT NOT NULL DEFAULT '',
	visit_time TEXT NOT NULL DEFAULT '',
	owner_code TEXT NOT NULL DEFAULT '',
	owner_id INTEGER,
	counterpart_code TEXT NOT NULL DEFAULT '',
	counterpart_id INTEGER,
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending'
)`},
	{"purchase_history", `CREATE TABLE purchase_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	shipment_id TEXT NOT NULL DEFAULT '',
	counterpart_code TEXT NOT NULL DEFAULT '',
	counterpart_id INTEGER,
	representative_code TEXT NOT NULL DEFAULT '',
	representative_id INTEGER,
	article_code TEXT NOT NULL DEFAULT '',
	article_name TEXT NOT NULL DEFAULT '',
	purchase_date TEXT NOT NULL DEFAULT '',
	quantity INTEGER NOT NULL DEFAULT 0,
	shipped INTEGER NOT NULL DEFAULT 0,
	unit_price TEXT NOT NULL DEFAULT '0',
	photo TEXT NOT NULL DEFAULT '',
	fulfilled BOOLEAN NOT NULL DEFAULT 0
)`},
	{"sync_runs", v12SyncRuns},
}

var latestIndexes = []migrate.AddIndex{
	idxCounterpartsRepresentativeCode,
	idxCounterpartsNationalID,
	idxOrderHeadersOwnerCode,
	idxOrderHeadersCounterpartCode,
	idxOrderLinesOrderNumber,
	idxOrderLinesArticleCode,
	idxCredentialsRepresentativeCode,
	idxVisitsOwnerCode,
	idxVisitsVisitDate,
	idxVisitsCounterpartCode,
	idxVisitsOwnerCounterpartDate,
	idxPurchaseHistoryCounterpartCode,
	idxPurchaseHistoryShipmentID,
	idxPurchaseHistoryArticleCode,
	idxSyncRunsRunID,
}

// Bootstrap creates the latest schema on an empty store.
func Bootstrap(ctx context.Context, tx *gorm.DB) error {
	db := tx.WithContext(ctx)
	for _, t := range latestTables {
		if err := db.Exec(t.ddl).Error; err != nil {
			return fmt.Errorf("create table %s: %w", t.name, err)
		}
	}
	for _, idx := range latestIndexes {
		if err := db.Exec(idx.Statement()).Error; err != nil {
			return fmt.Errorf("create index %s: %w", idx.Index, err)
		}
	}
	return nil
}
