package migrations

import "github.com/mmdatafocus/fieldsales_backend/migrate"

func init() {
	register(migrate.Migration{
		Version:     6,
		Description: "catalog image reference",
		Steps: []migrate.Step{
			migrate.AddColumn{Table: "catalog_items", Column: "image_name", Definition: "TEXT NOT NULL DEFAULT ''"},
		},
	})
}
