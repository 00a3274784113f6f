package models

import (
	"context"
	"database/sql"
	"strings"

	"gorm.io/gorm"

	"github.com/mmdatafocus/fieldsales_backend/config"
	"github.com/mmdatafocus/fieldsales_backend/utils"
)

// MemberBandStart splits the counterparts table: partners take ids below it, members take ids
// from it upwards. No other code compares counterpart ids against a literal.
const MemberBandStart = 1000

type Band int

const (
	BandPartner Band = iota + 1
	BandMember
)

func (b Band) String() string {
	if b == BandMember {
		return "member"
	}
	return "partner"
}

func (b Band) Contains(id int) bool {
	if b == BandMember {
		return id >= MemberBandStart
	}
	return id > 0 && id < MemberBandStart
}

// Scope restricts a counterparts query to the band.
func (b Band) Scope() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if b == BandMember {
			return db.Where("counterparts.id >= ?", MemberBandStart)
		}
		return db.Where("counterparts.id < ?", MemberBandStart)
	}
}

// NextID returns the next free id inside the band.
func (b Band) NextID(ctx context.Context, tx *gorm.DB) (int, error) {
	var maxID sql.NullInt64
	row := tx.WithContext(ctx).Model(&Counterpart{}).Scopes(b.Scope()).Select("MAX(id)").Row()
	if err := row.Scan(&maxID); err != nil {
		return 0, err
	}
	next := 1
	if b == BandMember {
		next = MemberBandStart
	}
	if maxID.Valid && int(maxID.Int64) >= next {
		next = int(maxID.Int64) + 1
	}
	if b == BandPartner && next >= MemberBandStart {
		return 0, utils.IntegrityError("allocate partner id", "partner band is full")
	}
	return next, nil
}

func BandOf(id int) Band {
	if BandMember.Contains(id) {
		return BandMember
	}
	return BandPartner
}

// Counterpart is either a partner or a member depending on its id band.
type Counterpart struct {
	ID                 int     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Code               string  `gorm:"uniqueIndex;not null" json:"code"`
	NationalID         string  `gorm:"column:national_id;not null" json:"national_id"`
	Name               string  `gorm:"not null" json:"name"`
	Surname            string  `gorm:"not null" json:"surname"`
	Address            string  `gorm:"not null" json:"address"`
	Province           string  `gorm:"not null" json:"province"`
	Phone              string  `gorm:"not null" json:"phone"`
	Email              string  `gorm:"not null" json:"email"`
	BirthDate          string  `gorm:"not null" json:"birth_date"`
	Photo              string  `gorm:"not null" json:"photo"`
	RepresentativeCode string  `gorm:"index;not null" json:"representative_code"`
	RepresentativeID   *int    `json:"representative_id"`
	CreatedDate        *string `json:"created_date"`
}

func (c Counterpart) Band() Band { return BandOf(c.ID) }

type NewPartner struct {
	Code               string `json:"code" validate:"required"`
	Name               string `json:"name" validate:"required"`
	Address            string `json:"address"`
	Province           string `json:"province"`
	RepresentativeCode string `json:"representative_code"`
}

type NewMember struct {
	NationalID         string `json:"national_id" validate:"required,nationalid"`
	Name               string `json:"name" validate:"required"`
	Surname            string `json:"surname"`
	Phone              string `json:"phone" validate:"omitempty,phone"`
	Email              string `json:"email" validate:"omitempty,email"`
	BirthDate          string `json:"birth_date" validate:"omitempty,storeddate"`
	Photo              string `json:"photo"`
	RepresentativeCode string `json:"representative_code"`
}

// CreatePartner inserts a partner stamped with today's creation date.
func CreatePartner(ctx context.Context, input *NewPartner) (*Counterpart, error) {
	if err := utils.ValidateInput("create partner", input); err != nil {
		return nil, err
	}
	c := Counterpart{
		Code:               strings.TrimSpace(input.Code),
		Name:               input.Name,
		Address:            input.Address,
		Province:           input.Province,
		RepresentativeCode: input.RepresentativeCode,
	}
	return createCounterpart(ctx, "create partner", BandPartner, &c)
}

// CreateMember inserts a member; its national id is the natural key.
func CreateMember(ctx context.Context, input *NewMember) (*Counterpart, error) {
	if err := utils.ValidateInput("create member", input); err != nil {
		return nil, err
	}
	nationalID := utils.NormalizeNationalId(input.NationalID)
	c := Counterpart{
		Code:               nationalID,
		NationalID:         nationalID,
		Name:               input.Name,
		Surname:            input.Surname,
		Phone:              input.Phone,
		Email:              input.Email,
		BirthDate:          utils.NormalizeDate(input.BirthDate),
		Photo:              input.Photo,
		RepresentativeCode: input.RepresentativeCode,
	}
	if c.RepresentativeCode == "" {
		c.RepresentativeCode, _ = utils.GetRepresentativeCodeFromContext(ctx)
	}
	return createCounterpart(ctx, "create member", BandMember, &c)
}

func createCounterpart(ctx context.Context, op string, band Band, c *Counterpart) (*Counterpart, error) {
	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		count, err := utils.ResourceCountWhere[Counterpart](ctx, tx, "code = ?", c.Code)
		if err != nil {
			return utils.StorageError(op, err)
		}
		if count > 0 {
			return utils.IntegrityError(op, "counterpart %s already exists", c.Code)
		}
		if c.RepresentativeCode != "" {
			rep, err := utils.FetchModelByKey[Representative](ctx, tx, "code", c.RepresentativeCode)
			if err != nil {
				return utils.IntegrityError(op, "representative %s does not exist", c.RepresentativeCode)
			}
			c.RepresentativeID = &rep.ID
		}
		id, err := band.NextID(ctx, tx)
		if err != nil {
			return utils.StorageError(op, err)
		}
		c.ID = id
		today := utils.Today()
		c.CreatedDate = &today
		if err := tx.Create(c).Error; err != nil {
			return utils.StorageError(op, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func GetCounterpartByCode(ctx context.Context, code string) (*Counterpart, error) {
	return utils.FetchModelByKey[Counterpart](ctx, nil, "code", strings.TrimSpace(code))
}

// GetMember looks a member up by national id.
func GetMember(ctx context.Context, nationalID string) (*Counterpart, error) {
	var result Counterpart
	err := config.GetDB().WithContext(ctx).Scopes(BandMember.Scope()).
		Where("code = ?", utils.NormalizeNationalId(nationalID)).Take(&result).Error
	if err != nil {
		return nil, utils.StorageError("get member", err)
	}
	return &result, nil
}

func ListCounterparts(ctx context.Context, band Band) ([]*Counterpart, error) {
	var results []*Counterpart
	if err := config.GetDB().WithContext(ctx).Scopes(band.Scope()).Order("id").Find(&results).Error; err != nil {
		return nil, utils.StorageError("list counterparts", err)
	}
	return results, nil
}

// ListCounterpartsCreatedOn returns the band's rows stamped with date (yyyy-MM-dd).
func ListCounterpartsCreatedOn(ctx context.Context, band Band, date string) ([]*Counterpart, error) {
	var results []*Counterpart
	err := config.GetDB().WithContext(ctx).Scopes(band.Scope()).
		Where("created_date = ?", date).Order("id").Find(&results).Error
	if err != nil {
		return nil, utils.StorageError("list new counterparts", err)
	}
	return results, nil
}
