package models

import (
	"context"

	"github.com/mmdatafocus/fieldsales_backend/config"
	"github.com/mmdatafocus/fieldsales_backend/utils"
)

// OwnedResource is a model carrying the owner_code column the owner guard scopes on.
type OwnedResource interface {
	GetOwnerCode() string
}

// fetch by id for the active representative; another representative's row is not found
func GetOwnedResource[T OwnedResource](ctx context.Context, id int, associations ...string) (*T, error) {
	code, err := utils.RequireRepresentativeCode(ctx)
	if err != nil {
		return nil, err
	}
	result, err := utils.FetchModel[T](ctx, nil, id, associations...)
	if err != nil {
		return nil, err
	}
	if (*result).GetOwnerCode() != code {
		return nil, utils.ErrorRecordNotFound
	}
	return result, nil
}

// GetOwnedResourceByKey is GetOwnedResource for a natural key column.
func GetOwnedResourceByKey[T OwnedResource](ctx context.Context, column string, key any, associations ...string) (*T, error) {
	code, err := utils.RequireRepresentativeCode(ctx)
	if err != nil {
		return nil, err
	}
	result, err := utils.FetchModelByKey[T](ctx, nil, column, key, associations...)
	if err != nil {
		return nil, err
	}
	if (*result).GetOwnerCode() != code {
		return nil, utils.ErrorRecordNotFound
	}
	return result, nil
}

// list the active representative's rows matching the optional condition
func ListOwnedResource[T OwnedResource](ctx context.Context, condition string, args []any, orders ...string) ([]*T, error) {
	if _, err := utils.RequireRepresentativeCode(ctx); err != nil {
		return nil, err
	}
	dbCtx := config.GetDB().WithContext(ctx)
	if condition != "" {
		dbCtx = dbCtx.Where(condition, args...)
	}
	for _, order := range orders {
		dbCtx = dbCtx.Order(order)
	}
	var model T
	var results []*T
	if err := dbCtx.Model(&model).Find(&results).Error; err != nil {
		return nil, utils.StorageError("list", err)
	}
	return results, nil
}

// DeleteOwnedResource deletes rows matching column = key for the active representative and
// returns how many went. Zero rows is reported as not found.
func DeleteOwnedResource[T OwnedResource](ctx context.Context, column string, key any) (int64, error) {
	if _, err := utils.RequireRepresentativeCode(ctx); err != nil {
		return 0, err
	}
	var model T
	res := config.GetDB().WithContext(ctx).Where(column+" = ?", key).Delete(&model)
	if res.Error != nil {
		return 0, utils.StorageError("delete", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, utils.ErrorRecordNotFound
	}
	return res.RowsAffected, nil
}
