package models

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mmdatafocus/fieldsales_backend/config"
	"github.com/mmdatafocus/fieldsales_backend/utils"
)

type Credential struct {
	Login              string `gorm:"primaryKey" json:"login"`
	PasswordHash       string `gorm:"not null" json:"-"`
	RepresentativeCode string `gorm:"index;not null" json:"representative_code"`
	RepresentativeID   *int   `json:"representative_id"`
}

// SetCredential creates or replaces the login of a representative.
func SetCredential(ctx context.Context, login string, password string, representativeCode string) (*Credential, error) {
	const op = "set credential"
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, utils.ValidationError(op, nil)
	}

	db := config.GetDB()
	rep, err := utils.FetchModelByKey[Representative](ctx, db, "code", representativeCode)
	if err != nil {
		return nil, utils.IntegrityError(op, "representative %s does not exist", representativeCode)
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	cred := Credential{
		Login:              login,
		PasswordHash:       string(hash),
		RepresentativeCode: rep.Code,
		RepresentativeID:   &rep.ID,
	}
	err = db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&cred).Error
	if err != nil {
		return nil, utils.StorageError(op, err)
	}
	return &cred, nil
}

// Authenticate checks login and password and returns the representative they belong to.
func Authenticate(ctx context.Context, login string, password string) (*Representative, error) {
	const op = "authenticate"
	db := config.GetDB()
	var cred Credential
	err := db.WithContext(ctx).Where("login = ?", strings.TrimSpace(login)).Take(&cred).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.SessionError(op, "invalid login or password")
		}
		return nil, utils.StorageError(op, err)
	}
	if err := utils.ComparePassword(cred.PasswordHash, password); err != nil {
		return nil, utils.SessionError(op, "invalid login or password")
	}
	rep, err := utils.FetchModelByKey[Representative](ctx, db, "code", cred.RepresentativeCode)
	if err != nil {
		return nil, utils.IntegrityError(op, "representative %s does not exist", cred.RepresentativeCode)
	}
	return rep, nil
}
