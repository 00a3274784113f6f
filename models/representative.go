package models

import (
	"context"
	"strings"

	"github.com/mmdatafocus/fieldsales_backend/config"
	"github.com/mmdatafocus/fieldsales_backend/utils"
)

type Representative struct {
	ID        int    `gorm:"primaryKey" json:"id"`
	Code      string `gorm:"uniqueIndex;not null" json:"code"`
	Name      string `gorm:"not null" json:"name"`
	Surname   string `gorm:"not null" json:"surname"`
	Email     string `gorm:"not null" json:"email"`
	BirthDate string `gorm:"not null" json:"birth_date"`
	Photo     string `gorm:"not null" json:"photo"`
}

type NewRepresentative struct {
	Code      string `json:"code" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Surname   string `json:"surname"`
	Email     string `json:"email" validate:"omitempty,email"`
	BirthDate string `json:"birth_date" validate:"omitempty,storeddate"`
	Photo     string `json:"photo"`
}

func (r Representative) FullName() string {
	return strings.TrimSpace(r.Name + " " + r.Surname)
}

func CreateRepresentative(ctx context.Context, input *NewRepresentative) (*Representative, error) {
	if err := utils.ValidateInput("create representative", input); err != nil {
		return nil, err
	}
	db := config.GetDB()
	count, err := utils.ResourceCountWhere[Representative](ctx, db, "code = ?", input.Code)
	if err != nil {
		return nil, utils.StorageError("create representative", err)
	}
	if count > 0 {
		return nil, utils.IntegrityError("create representative", "code %s already exists", input.Code)
	}

	rep := Representative{
		Code:      strings.TrimSpace(input.Code),
		Name:      input.Name,
		Surname:   input.Surname,
		Email:     input.Email,
		BirthDate: utils.NormalizeDate(input.BirthDate),
		Photo:     input.Photo,
	}
	if err := db.WithContext(ctx).Create(&rep).Error; err != nil {
		return nil, utils.StorageError("create representative", err)
	}
	return &rep, nil
}

func GetRepresentativeByCode(ctx context.Context, code string) (*Representative, error) {
	return utils.FetchModelByKey[Representative](ctx, nil, "code", strings.TrimSpace(code))
}

// ListRepresentatives returns representatives in store order, which is also the order
// ordinal references fall back to.
func ListRepresentatives(ctx context.Context) ([]*Representative, error) {
	return utils.FetchAllModels[Representative](ctx, nil, "id")
}
