package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ttacon/libphonenumber"
)

const (
	// DateLayout is the stored date form.
	DateLayout = "2006-01-02"
	// ExportDateLayout is the form written into outbound snapshots.
	ExportDateLayout = "2006/01/02"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func ValidatePhoneNumber(phoneNumber, countryCode string) error {
	p, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil {
		return err // Phone number is invalid
	}

	if !libphonenumber.IsValidNumber(p) {
		return fmt.Errorf("phone number is not valid")
	}

	return nil
}

func UniqueSlice[T comparable](slice []T) []T {
	seen := make(map[T]struct{}, len(slice))
	result := make([]T, 0, len(slice))
	for _, v := range slice {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}

// ChunkSlice splits s into consecutive slices of at most size elements.
func ChunkSlice[T any](s []T, size int) [][]T {
	if size <= 0 {
		size = len(s)
	}
	var chunks [][]T
	for len(s) > size {
		chunks = append(chunks, s[:size])
		s = s[size:]
	}
	if len(s) > 0 {
		chunks = append(chunks, s)
	}
	return chunks
}

// ParseDecimal converts a string to a decimal.Decimal value. A comma decimal separator is accepted.
func ParseDecimal(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, errors.New("empty decimal string")
	}
	value = strings.ReplaceAll(value, ",", ".")
	return decimal.NewFromString(value)
}

// DecimalOrZero is ParseDecimal without the error.
func DecimalOrZero(value string) decimal.Decimal {
	d, err := ParseDecimal(value)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// IntOrDefault parses a trimmed integer, returning def when blank or malformed.
func IntOrDefault(value string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return def
	}
	return n
}

// BoolOrFalse accepts true/1/yes in any case.
func BoolOrFalse(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "bai", "si":
		return true
	}
	return false
}

func Today() string {
	return time.Now().Format(DateLayout)
}

// GetThisMonthRange returns the first and last day of the current month as stored dates.
func GetThisMonthRange() (string, string) {
	now := time.Now()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	last := first.AddDate(0, 1, -1)
	return first.Format(DateLayout), last.Format(DateLayout)
}

// NormalizeDate turns yyyy/MM/dd, yyyy-MM-dd or a date-time prefix into the stored yyyy-MM-dd form.
// Unparseable input is returned trimmed and unchanged.
func NormalizeDate(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	candidate := value
	if i := strings.IndexAny(candidate, " T"); i > 0 {
		candidate = candidate[:i]
	}
	candidate = strings.ReplaceAll(candidate, "/", "-")
	if t, err := time.Parse(DateLayout, candidate); err == nil {
		return t.Format(DateLayout)
	}
	return value
}

// ExportDate renders a stored date the way outbound snapshots carry it.
func ExportDate(value string) string {
	return strings.ReplaceAll(NormalizeDate(value), "-", "/")
}

func NilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func DereferencePtr[T any](ptr *T, defaults ...T) T {
	if ptr != nil {
		return *ptr
	}
	var zero T
	if len(defaults) > 0 {
		return defaults[0]
	}
	return zero
}
