package migrations

import "github.com/mmdatafocus/fieldsales_backend/migrate"

func init() {
	register(migrate.Migration{
		Version:     4,
		Description: "counterpart contact columns",
		Steps: []migrate.Step{
			migrate.AddColumn{Table: "counterparts", Column: "phone", Definition: "TEXT NOT NULL DEFAULT ''"},
			migrate.AddColumn{Table: "counterparts", Column: "email", Definition: "TEXT NOT NULL DEFAULT ''"},
			migrate.AddColumn{Table: "counterparts", Column: "birth_date", Definition: "TEXT NOT NULL DEFAULT ''"},
			migrate.AddColumn{Table: "counterparts", Column: "photo", Definition: "TEXT NOT NULL DEFAULT ''"},
		},
	})
}
