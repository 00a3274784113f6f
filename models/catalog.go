package models

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmdatafocus/fieldsales_backend/config"
	"github.com/mmdatafocus/fieldsales_backend/utils"
)

type CatalogItem struct {
	ArticleCode string          `gorm:"primaryKey" json:"article_code"`
	Name        string          `gorm:"not null" json:"name"`
	UnitPrice   decimal.Decimal `gorm:"type:TEXT;not null" json:"unit_price"`
	Stock       int             `gorm:"not null" json:"stock"`
	ImageName   string          `gorm:"not null" json:"image_name"`
}

func GetCatalogItem(ctx context.Context, articleCode string) (*CatalogItem, error) {
	return utils.FetchModelByKey[CatalogItem](ctx, nil, "article_code", strings.TrimSpace(articleCode))
}

func ListCatalogItems(ctx context.Context) ([]*CatalogItem, error) {
	return utils.FetchAllModels[CatalogItem](ctx, nil, "article_code")
}

// SetCatalogImage records a locally resolved image for an article.
func SetCatalogImage(ctx context.Context, articleCode string, imageName string) (*CatalogItem, error) {
	item, err := GetCatalogItem(ctx, articleCode)
	if err != nil {
		return nil, err
	}
	err = config.GetDB().WithContext(ctx).Model(item).UpdateColumn("image_name", imageName).Error
	if err != nil {
		return nil, utils.StorageError("set catalog image", err)
	}
	return item, nil
}
