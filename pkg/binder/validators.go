package binder

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"January 2, 2006",
}

// dateValidator ensures the value parses as a calendar date. The empty string
// is allowed so that the same validator can be used on optional fields; pair
// it with `required` when the field must be present.
func dateValidator(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, value); err == nil {
			return true
		}
	}
	return false
}

// notBlankValidator rejects values that are empty after trimming whitespace.
func notBlankValidator(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// ParseDate parses a value previously accepted by the date validator. The
// boolean is false when no layout matches.
func ParseDate(value string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
