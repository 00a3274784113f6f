package migrations

import "github.com/mmdatafocus/fieldsales_backend/migrate"

var idxOrderLinesArticleCode = migrate.AddIndex{Index: "idx_order_lines_article_code", Table: "order_lines", Columns: []string{"article_code"}}

func init() {
	register(migrate.Migration{
		Version:     10,
		Description: "order line article name",
		Steps: []migrate.Step{
			migrate.AddColumn{Table: "order_lines", Column: "article_name", Definition: "TEXT NOT NULL DEFAULT ''"},
			idxOrderLinesArticleCode,
		},
	})
}
