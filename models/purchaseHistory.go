package models

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mmdatafocus/fieldsales_backend/config"
	"github.com/mmdatafocus/fieldsales_backend/utils"
)

// PurchaseHistory is one shipped line of a member's past purchases. Lines are only appended;
// the fulfilled flag is the single field changed locally.
type PurchaseHistory struct {
	ID                 int             `gorm:"primaryKey" json:"id"`
	ShipmentID         string          `gorm:"index;not null" json:"shipment_id"`
	CounterpartCode    string          `gorm:"index;not null" json:"counterpart_code"`
	CounterpartID      *int            `json:"counterpart_id"`
	RepresentativeCode string          `gorm:"not null" json:"representative_code"`
	RepresentativeID   *int            `json:"representative_id"`
	ArticleCode        string          `gorm:"index;not null" json:"article_code"`
	ArticleName        string          `gorm:"not null" json:"article_name"`
	PurchaseDate       string          `gorm:"not null" json:"purchase_date"`
	Quantity           int             `gorm:"not null" json:"quantity"`
	Shipped            int             `gorm:"not null" json:"shipped"`
	UnitPrice          decimal.Decimal `gorm:"type:TEXT;not null" json:"unit_price"`
	Photo              string          `gorm:"not null" json:"photo"`
	Fulfilled          bool            `gorm:"not null" json:"fulfilled"`
}

func (PurchaseHistory) TableName() string { return "purchase_history" }

// ListPurchaseHistory returns a member's lines, limited to those recorded for the active
// representative.
func ListPurchaseHistory(ctx context.Context, counterpartCode string) ([]*PurchaseHistory, error) {
	code, err := utils.RequireRepresentativeCode(ctx)
	if err != nil {
		return nil, err
	}
	var results []*PurchaseHistory
	err = config.GetDB().WithContext(ctx).
		Where("representative_code = ? AND counterpart_code = ?", code, counterpartCode).
		Order("purchase_date DESC").Order("id").
		Find(&results).Error
	if err != nil {
		return nil, utils.StorageError("list purchase history", err)
	}
	return results, nil
}

// SetPurchaseFulfilled flips the fulfilled flag of one of the active representative's lines.
func SetPurchaseFulfilled(ctx context.Context, id int, fulfilled bool) (*PurchaseHistory, error) {
	const op = "set purchase fulfilled"
	code, err := utils.RequireRepresentativeCode(ctx)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	res := db.WithContext(ctx).Model(&PurchaseHistory{}).
		Where("id = ? AND representative_code = ?", id, code).
		UpdateColumn("fulfilled", fulfilled)
	if res.Error != nil {
		return nil, utils.StorageError(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, utils.ErrorRecordNotFound
	}
	return utils.FetchModel[PurchaseHistory](ctx, db, id)
}

// ListPurchaseHistoryByCounterparts groups the active representative's lines by member code.
func ListPurchaseHistoryByCounterparts(ctx context.Context, counterpartCodes []string) (map[string][]*PurchaseHistory, error) {
	code, err := utils.RequireRepresentativeCode(ctx)
	if err != nil {
		return nil, err
	}
	grouped := make(map[string][]*PurchaseHistory)
	for _, chunk := range utils.ChunkSlice(counterpartCodes, 500) {
		var results []*PurchaseHistory
		err := config.GetDB().WithContext(ctx).
			Where("representative_code = ? AND counterpart_code IN ?", code, chunk).
			Order("purchase_date DESC").Order("id").
			Find(&results).Error
		if err != nil {
			return nil, utils.StorageError("list purchase history", err)
		}
		for _, p := range results {
			grouped[p.CounterpartCode] = append(grouped[p.CounterpartCode], p)
		}
	}
	return grouped, nil
}
