package migrations

import "github.com/mmdatafocus/fieldsales_backend/migrate"

var idxCounterpartsNationalID = migrate.AddIndex{Index: "idx_counterparts_national_id", Table: "counterparts", Columns: []string{"national_id"}}

func init() {
	register(migrate.Migration{
		Version:     5,
		Description: "member profile columns",
		Steps: []migrate.Step{
			migrate.AddColumn{Table: "counterparts", Column: "national_id", Definition: "TEXT NOT NULL DEFAULT ''"},
			migrate.AddColumn{Table: "counterparts", Column: "surname", Definition: "TEXT NOT NULL DEFAULT ''"},
			idxCounterpartsNationalID,
		},
	})
}
