package migrations

import "github.com/mmdatafocus/fieldsales_backend/migrate"

var idxVisitsOwnerCounterpartDate = migrate.AddIndex{
	Index:   "idx_visits_owner_counterpart_date",
	Table:   "visits",
	Columns: []string{"owner_code", "counterpart_code", "visit_date"},
}

func init() {
	register(migrate.Migration{
		Version:     8,
		Description: "visit time and resolved ids",
		Steps: []migrate.Step{
			migrate.AddColumn{Table: "visits", Column: "visit_time", Definition: "TEXT NOT NULL DEFAULT ''"},
			migrate.AddColumn{Table: "visits", Column: "owner_id", Definition: "INTEGER"},
			migrate.AddColumn{Table: "visits", Column: "counterpart_id", Definition: "INTEGER"},
			idxVisitsOwnerCounterpartDate,
		},
	})
}
