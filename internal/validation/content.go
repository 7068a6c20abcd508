package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Text limits shared by the services.
const (
	MaxNameLen          = 120
	MaxTitleLen         = 300
	MaxPostContentLen   = 50000
	MaxCommentLen       = 10000
	MaxBioLen           = 500
	MaxCommunityNameLen = 80
	MaxDescriptionLen   = 2000
	MaxTagLen           = 40
	MaxURLLen           = 2048
)

// RequiredText trims value and checks it is non-empty and within max runes.
func RequiredText(field, value string, max int) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%s is required", field)
	}
	if utf8.RuneCountInString(value) > max {
		return "", fmt.Errorf("%s too long (max %d characters)", field, max)
	}
	return value, nil
}

// OptionalText trims value. A blank value yields nil.
func OptionalText(field string, value *string, max int) (*string, error) {
	if value == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(trimmed) > max {
		return nil, fmt.Errorf("%s too long (max %d characters)", field, max)
	}
	return &trimmed, nil
}
