package migrations

import "github.com/mmdatafocus/fieldsales_backend/migrate"

func init() {
	register(migrate.Migration{
		Version:     11,
		Description: "credential representative id",
		Steps: []migrate.Step{
			migrate.AddColumn{Table: "credentials", Column: "representative_id", Definition: "INTEGER"},
		},
	})
}
