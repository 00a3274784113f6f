package migrations

import "github.com/mmdatafocus/fieldsales_backend/migrate"

const v12SyncRuns = `CREATE TABLE sync_runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL DEFAULT '',
	kind TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	inserted INTEGER NOT NULL DEFAULT 0,
	updated INTEGER NOT NULL DEFAULT 0,
	deleted INTEGER NOT NULL DEFAULT 0,
	skipped INTEGER NOT NULL DEFAULT 0,
	degraded INTEGER NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT '',
	started_at DATETIME,
	finished_at DATETIME
)`

var idxSyncRunsRunID = migrate.AddIndex{Index: "idx_sync_runs_run_id", Table: "sync_runs", Columns: []string{"run_id"}}

func init() {
	register(migrate.Migration{
		Version:     12,
		Description: "sync run ledger",
		Steps: []migrate.Step{
			migrate.AddTable{Table: "sync_runs", DDL: v12SyncRuns},
			idxSyncRunsRunID,
		},
	})
}
