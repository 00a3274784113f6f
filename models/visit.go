package models

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/mmdatafocus/fieldsales_backend/config"
	"github.com/mmdatafocus/fieldsales_backend/utils"
)

// Visit is one agenda entry of a representative with a member.
type Visit struct {
	ID              int         `gorm:"primaryKey" json:"id"`
	VisitDate       string      `gorm:"index;not null" json:"visit_date"`
	VisitTime       string      `gorm:"not null" json:"visit_time"`
	OwnerCode       string      `gorm:"index;not null" json:"owner_code"`
	OwnerID         *int        `json:"owner_id"`
	CounterpartCode string      `gorm:"index;not null" json:"counterpart_code"`
	CounterpartID   *int        `json:"counterpart_id"`
	Description     string      `gorm:"not null" json:"description"`
	Status          VisitStatus `gorm:"not null" json:"status"`
}

func (v Visit) GetOwnerCode() string { return v.OwnerCode }

type NewVisit struct {
	VisitDate       string      `json:"visit_date" validate:"required,storeddate"`
	VisitTime       string      `json:"visit_time"`
	CounterpartCode string      `json:"counterpart_code" validate:"required"`
	Description     string      `json:"description"`
	Status          VisitStatus `json:"status" validate:"omitempty,oneof=done pending cancelled"`
}

// resolve owner and member for a visit, both must exist
func (input *NewVisit) resolve(ctx context.Context, tx *gorm.DB, op string, ownerCode string) (*Representative, *Counterpart, error) {
	owner, err := utils.FetchModelByKey[Representative](ctx, tx, "code", ownerCode)
	if err != nil {
		return nil, nil, utils.IntegrityError(op, "representative %s does not exist", ownerCode)
	}
	var member Counterpart
	err = tx.WithContext(ctx).Scopes(BandMember.Scope()).
		Where("code = ?", strings.TrimSpace(input.CounterpartCode)).Take(&member).Error
	if err != nil {
		return nil, nil, utils.IntegrityError(op, "member %s does not exist", input.CounterpartCode)
	}
	return owner, &member, nil
}

func CreateVisit(ctx context.Context, input *NewVisit) (*Visit, error) {
	const op = "create visit"
	ownerCode, err := utils.RequireRepresentativeCode(ctx)
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateInput(op, input); err != nil {
		return nil, err
	}
	if input.Status == "" {
		input.Status = VisitStatusPending
	}

	var visit Visit
	err = config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owner, member, err := input.resolve(ctx, tx, op, ownerCode)
		if err != nil {
			return err
		}
		visit = Visit{
			VisitDate:       utils.NormalizeDate(input.VisitDate),
			VisitTime:       input.VisitTime,
			OwnerCode:       owner.Code,
			OwnerID:         &owner.ID,
			CounterpartCode: member.Code,
			CounterpartID:   &member.ID,
			Description:     input.Description,
			Status:          input.Status,
		}
		if err := tx.Create(&visit).Error; err != nil {
			return utils.StorageError(op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &visit, nil
}

func UpdateVisit(ctx context.Context, id int, input *NewVisit) (*Visit, error) {
	const op = "update visit"
	if err := utils.ValidateInput(op, input); err != nil {
		return nil, err
	}
	visit, err := GetOwnedResource[Visit](ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Status == "" {
		input.Status = visit.Status
	}

	err = config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, member, err := input.resolve(ctx, tx, op, visit.OwnerCode)
		if err != nil {
			return err
		}
		res := tx.Model(&Visit{}).Where("id = ?", id).Updates(map[string]interface{}{
			"VisitDate":       utils.NormalizeDate(input.VisitDate),
			"VisitTime":       input.VisitTime,
			"CounterpartCode": member.Code,
			"CounterpartID":   member.ID,
			"Description":     input.Description,
			"Status":          input.Status,
		})
		if res.Error != nil {
			return utils.StorageError(op, res.Error)
		}
		if res.RowsAffected == 0 {
			return utils.ErrorRecordNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return GetOwnedResource[Visit](ctx, id)
}

func SetVisitStatus(ctx context.Context, id int, status VisitStatus) (*Visit, error) {
	if !status.IsValid() {
		return nil, utils.ValidationError("set visit status", nil)
	}
	visit, err := GetOwnedResource[Visit](ctx, id)
	if err != nil {
		return nil, err
	}
	res := config.GetDB().WithContext(ctx).Model(&Visit{}).Where("id = ?", id).UpdateColumn("status", status)
	if res.Error != nil {
		return nil, utils.StorageError("set visit status", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, utils.ErrorRecordNotFound
	}
	visit.Status = status
	return visit, nil
}

func GetVisit(ctx context.Context, id int) (*Visit, error) {
	return GetOwnedResource[Visit](ctx, id)
}

// ListVisits returns the active representative's visits dated from..to inclusive.
// Empty bounds leave that side open.
func ListVisits(ctx context.Context, from string, to string) ([]*Visit, error) {
	var conds []string
	var args []any
	if from != "" {
		conds = append(conds, "visit_date >= ?")
		args = append(args, utils.NormalizeDate(from))
	}
	if to != "" {
		conds = append(conds, "visit_date <= ?")
		args = append(args, utils.NormalizeDate(to))
	}
	return ListOwnedResource[Visit](ctx, strings.Join(conds, " AND "), args, "visit_date", "visit_time", "id")
}

// DeleteVisit returns the number of rows removed; another representative's visit removes none.
func DeleteVisit(ctx context.Context, id int) (int64, error) {
	return DeleteOwnedResource[Visit](ctx, "id", id)
}
