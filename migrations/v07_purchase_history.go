package migrations

import "github.com/mmdatafocus/fieldsales_backend/migrate"

const v7PurchaseHistory = `CREATE TABLE purchase_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	shipment_id TEXT NOT NULL DEFAULT '',
	counterpart_code TEXT NOT NULL DEFAULT '',
	representative_code TEXT NOT NULL DEFAULT '',
	article_code TEXT NOT NULL DEFAULT '',
	article_name TEXT NOT NULL DEFAULT '',
	purchase_date TEXT NOT NULL DEFAULT '',
	quantity INTEGER NOT NULL DEFAULT 0,
	shipped INTEGER NOT NULL DEFAULT 0,
	unit_price TEXT NOT NULL DEFAULT '0',
	photo TEXT NOT NULL DEFAULT '',
	fulfilled BOOLEAN NOT NULL DEFAULT 0
)`

var (
	idxPurchaseHistoryCounterpartCode = migrate.AddIndex{Index: "idx_purchase_history_counterpart_code", Table: "purchase_history", Columns: []string{"counterpart_code"}}
	idxPurchaseHistoryShipmentID      = migrate.AddIndex{Index: "idx_purchase_history_shipment_id", Table: "purchase_history", Columns: []string{"shipment_id"}}
)

func init() {
	register(migrate.Migration{
		Version:     7,
		Description: "purchase history",
		Steps: []migrate.Step{
			migrate.AddTable{Table: "purchase_history", DDL: v7PurchaseHistory},
			idxPurchaseHistoryCounterpartCode,
			idxPurchaseHistoryShipmentID,
		},
	})
}
