package migrations

import "github.com/mmdatafocus/fieldsales_backend/migrate"

var idxPurchaseHistoryArticleCode = migrate.AddIndex{Index: "idx_purchase_history_article_code", Table: "purchase_history", Columns: []string{"article_code"}}

func init() {
	register(migrate.Migration{
		Version:     9,
		Description: "purchase history resolved ids",
		Steps: []migrate.Step{
			migrate.AddColumn{Table: "purchase_history", Column: "counterpart_id", Definition: "INTEGER"},
			migrate.AddColumn{Table: "purchase_history", Column: "representative_id", Definition: "INTEGER"},
			idxPurchaseHistoryArticleCode,
		},
	})
}
