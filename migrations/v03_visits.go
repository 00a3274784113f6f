package migrations

import "github.com/mmdatafocus/fieldsales_backend/migrate"

const v3Visits = `CREATE TABLE visits (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	visit_date TEXT NOT NULL DEFAULT '',
	owner_code TEXT NOT NULL DEFAULT '',
	counterpart_code TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending'
)`

var (
	idxVisitsOwnerCode       = migrate.AddIndex{Index: "idx_visits_owner_code", Table: "visits", Columns: []string{"owner_code"}}
	idxVisitsVisitDate       = migrate.AddIndex{Index: "idx_visits_visit_date", Table: "visits", Columns: []string{"visit_date"}}
	idxVisitsCounterpartCode = migrate.AddIndex{Index: "idx_visits_counterpart_code", Table: "visits", Columns: []string{"counterpart_code"}}
)

func init() {
	register(migrate.Migration{
		Version:     3,
		Description: "visits agenda",
		Steps: []migrate.Step{
			migrate.AddTable{Table: "visits", DDL: v3Visits},
			idxVisitsOwnerCode,
			idxVisitsVisitDate,
			idxVisitsCounterpartCode,
		},
	})
}
