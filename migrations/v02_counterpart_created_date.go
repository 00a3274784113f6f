package migrations

import (
	"github.com/mmdatafocus/fieldsales_backend/migrate"
	"github.com/mmdatafocus/fieldsales_backend/utils"
)

// Rows that predate the column are stamped with the migration date, so they are not reported
// as new by the daily delta export of a later day.
func init() {
	register(migrate.Migration{
		Version:        2,
		Description:    "counterpart creation date",
		RequiresBackup: true,
		Steps: []migrate.Step{
			migrate.AddColumn{Table: "counterparts", Column: "created_date", Definition: "TEXT"},
			migrate.Backfill{Table: "counterparts", Column: "created_date", Value: func() any { return utils.Today() }},
		},
	})
}
