package validation

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// ValidateName validates an amenity name
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)

	if trimmed == "" {
		return errors.New("name is required")
	}

	if utf8.RuneCountInString(trimmed) > 100 {
		return errors.New("name is too long (max 100 characters)")
	}

	return nil
}

// ValidateDescription validates an optional free-text description
func ValidateDescription(description string) error {
	if utf8.RuneCountInString(strings.TrimSpace(description)) > 1000 {
		return errors.New("description is too long (max 1000 characters)")
	}
	return nil
}
