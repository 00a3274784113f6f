package migrations

import "github.com/mmdatafocus/fieldsales_backend/migrate"

const v1Representatives = `CREATE TABLE representatives (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	code TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	surname TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	birth_date TEXT NOT NULL DEFAULT '',
	photo TEXT NOT NULL DEFAULT ''
)`

const v1Counterparts = `CREATE TABLE counterparts (
	id INTEGER PRIMARY KEY,
	code TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	address TEXT NOT NULL DEFAULT '',
	province TEXT NOT NULL DEFAULT '',
	representative_code TEXT NOT NULL DEFAULT '',
	representative_id INTEGER
)`

const v1CatalogItems = `CREATE TABLE catalog_items (
	article_code TEXT PRIMARY KEY NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	unit_price TEXT NOT NULL DEFAULT '0',
	stock INTEGER NOT NULL DEFAULT 0
)`

const v1OrderHeaders = `CREATE TABLE order_headers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	number TEXT NOT NULL UNIQUE,
	order_date TEXT NOT NULL DEFAULT '',
	owner_code TEXT NOT NULL DEFAULT '',
	owner_id INTEGER,
	delegation TEXT NOT NULL DEFAULT '',
	counterpart_code TEXT NOT NULL DEFAULT '',
	counterpart_id INTEGER,
	created_date TEXT NOT NULL DEFAULT ''
)`

const v1OrderLines = `CREATE TABLE order_lines (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	order_number TEXT NOT NULL REFERENCES order_headers(number) ON DELETE CASCADE,
	article_code TEXT NOT NULL DEFAULT '',
	quantity INTEGER NOT NULL DEFAULT 0,
	unit_price TEXT NOT NULL DEFAULT '0'
)`

const v1Credentials = `CREATE TABLE credentials (
	login TEXT PRIMARY KEY NOT NULL,
	password_hash TEXT NOT NULL DEFAULT '',
	representative_code TEXT NOT NULL DEFAULT ''
)`

var (
	idxCounterpartsRepresentativeCode = migrate.AddIndex{Index: "idx_counterparts_representative_code", Table: "counterparts", Columns: []string{"representative_code"}}
	idxOrderHeadersOwnerCode          = migrate.AddIndex{Index: "idx_order_headers_owner_code", Table: "order_headers", Columns: []string{"owner_code"}}
	idxOrderHeadersCounterpartCode    = migrate.AddIndex{Index: "idx_order_headers_counterpart_code", Table: "order_headers", Columns: []string{"counterpart_code"}}
	idxOrderLinesOrderNumber          = migrate.AddIndex{Index: "idx_order_lines_order_number", Table: "order_lines", Columns: []string{"order_number"}}
	idxCredentialsRepresentativeCode  = migrate.AddIndex{Index: "idx_credentials_representative_code", Table: "credentials", Columns: []string{"representative_code"}}
)

func init() {
	register(migrate.Migration{
		Version:     1,
		Description: "base tables",
		Steps: []migrate.Step{
			migrate.AddTable{Table: "representatives", DDL: v1Representatives},
			migrate.AddTable{Table: "counterparts", DDL: v1Counterparts},
			migrate.AddTable{Table: "catalog_items", DDL: v1CatalogItems},
			migrate.AddTable{Table: "order_headers", DDL: v1OrderHeaders},
			migrate.AddTable{Table: "order_lines", DDL: v1OrderLines},
			migrate.AddTable{Table: "credentials", DDL: v1Credentials},
			idxCounterpartsRepresentativeCode,
			idxOrderHeadersOwnerCode,
			idxOrderHeadersCounterpartCode,
			idxOrderLinesOrderNumber,
			idxCredentialsRepresentativeCode,
		},
	})
}
