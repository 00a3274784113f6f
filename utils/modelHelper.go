package utils

import (
	"context"
	"errors"

	"github.com/mmdatafocus/fieldsales_backend/config"
	"gorm.io/gorm"
)

/* DB fetching */

// fetch model by its natural key
// (owner scope applies through the guard plugin, may return RecordNotFound)
func FetchModelByKey[T any](ctx context.Context, db *gorm.DB, column string, key interface{}, associations ...string) (*T, error) {
	if db == nil {
		db = config.GetDB()
	}
	dbCtx := db.WithContext(ctx).Where(column+" = ?", key)
	// preloading
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.Take(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrorRecordNotFound
		}
		return nil, StorageError("fetch", err)
	}
	return &result, nil
}

// fetch model by internal id
func FetchModel[T any](ctx context.Context, db *gorm.DB, id int, associations ...string) (*T, error) {
	return FetchModelByKey[T](ctx, db, "id", id, associations...)
}

// fetch all models from db ordered by the given clauses
func FetchAllModels[T any](ctx context.Context, db *gorm.DB, orders ...string) ([]*T, error) {
	if db == nil {
		db = config.GetDB()
	}
	dbCtx := db.WithContext(ctx)
	for _, order := range orders {
		dbCtx = dbCtx.Order(order)
	}
	var results []*T
	if err := dbCtx.Find(&results).Error; err != nil {
		return nil, StorageError("fetch all", err)
	}
	return results, nil
}
