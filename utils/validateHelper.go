package utils

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mmdatafocus/fieldsales_backend/config"
	"gorm.io/gorm"
)

// PhoneRegion is the default region for numbers written without a country prefix.
var PhoneRegion = "ES"

var nationalIdPattern = regexp.MustCompile(`^\d{8}-?[A-Za-z]$`)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("nationalid", func(fl validator.FieldLevel) bool {
			return IsValidNationalId(fl.Field().String())
		})
		_ = validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return ValidatePhoneNumber(fl.Field().String(), PhoneRegion) == nil
		})
		_ = validate.RegisterValidation("storeddate", func(fl validator.FieldLevel) bool {
			_, err := time.Parse(DateLayout, NormalizeDate(fl.Field().String()))
			return err == nil
		})
	})
	return validate
}

// IsValidNationalId accepts 8 digits followed by a letter, with an optional dash.
func IsValidNationalId(s string) bool {
	return nationalIdPattern.MatchString(strings.TrimSpace(s))
}

// NormalizeNationalId strips the dash and upper-cases the letter.
func NormalizeNationalId(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.ReplaceAll(s, "-", "")
}

// ValidateInput runs struct tag validation and wraps failures as VALIDATION errors.
func ValidateInput(op string, input any) error {
	err := getValidator().Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := ProcessValidationErrors(verrs)
		parts := make([]string, 0, len(fields))
		for field, tag := range fields {
			parts = append(parts, field+":"+tag)
		}
		return ValidationError(op, fmt.Errorf("%s", strings.Join(parts, ", ")))
	}
	return ValidationError(op, err)
}

func ProcessValidationErrors(validationErrors validator.ValidationErrors) map[string]string {
	errorResponse := make(map[string]string)
	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}
	return errorResponse
}

// count records of T matching condition inside db (a transaction or the global DB)
func ResourceCountWhere[T any](ctx context.Context, db *gorm.DB, condition string, value ...interface{}) (int64, error) {
	var model T
	if db == nil {
		db = config.GetDB()
	}
	var count int64
	if err := db.WithContext(ctx).Model(&model).Where(condition, value...).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ValidateResourceCodes checks that ALL codes exist for T.
func ValidateResourceCodes[T any](ctx context.Context, db *gorm.DB, column string, codes []string) ([]string, error) {
	unq := UniqueSlice(codes)
	if len(unq) == 0 {
		return nil, nil
	}
	if db == nil {
		db = config.GetDB()
	}
	var model T
	var found []string
	if err := db.WithContext(ctx).Model(&model).Where(column+" IN ?", unq).Pluck(column, &found).Error; err != nil {
		return nil, err
	}
	present := make(map[string]struct{}, len(found))
	for _, c := range found {
		present[c] = struct{}{}
	}
	var missing []string
	for _, c := range unq {
		if _, ok := present[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing, nil
}
