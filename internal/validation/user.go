package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 128
	maxEmailLen    = 254
	maxEmailLocal  = 64
	minUsernameLen = 3
	maxUsernameLen = 30
)

var (
	emailRegex    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@.]+$`)
	usernameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9._]*[a-z0-9]$`)
	usernameStrip = regexp.MustCompile(`[^a-z0-9._]+`)
)

// Route segments and system names that must never become a username.
var reservedUsernames = map[string]struct{}{
	"admin":       {},
	"api":         {},
	"auth":        {},
	"me":          {},
	"users":       {},
	"posts":       {},
	"comments":    {},
	"communities": {},
	"onboarding":  {},
	"options":     {},
	"ws":          {},
	"swagger":     {},
	"metrics":     {},
	"health":      {},
	"login":       {},
	"logout":      {},
	"register":    {},
	"system":      {},
}

// ValidateEmail checks the address shape and RFC 5321 length limits.
func ValidateEmail(email string) error {
	if len(email) > maxEmailLen {
		return fmt.Errorf("email must be at most %d characters", maxEmailLen)
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	if at := strings.IndexByte(email, '@'); at > maxEmailLocal {
		return fmt.Errorf("email local part must be at most %d characters", maxEmailLocal)
	}
	return nil
}

// ValidatePassword requires 8-128 characters with at least one letter and one digit.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < minPasswordLen || n > maxPasswordLen {
		return fmt.Errorf("password must be %d-%d characters", minPasswordLen, maxPasswordLen)
	}
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return fmt.Errorf("password must contain at least one letter and one digit")
	}
	return nil
}

// ValidateUsername validates username format and reserved names.
func ValidateUsername(username string) error {
	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return fmt.Errorf("username must be %d-%d characters", minUsernameLen, maxUsernameLen)
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username may only contain lowercase letters, numbers, dots and underscores, and must start and end with a letter or number")
	}
	if IsReservedUsername(username) {
		return fmt.Errorf("username is reserved")
	}
	return nil
}

// IsReservedUsername reports whether name collides with a system name.
func IsReservedUsername(name string) bool {
	_, ok := reservedUsernames[name]
	return ok
}

// UsernameBase turns an email local part into a username candidate.
// The result is always a valid username shape, but may be reserved or taken.
func UsernameBase(email string) string {
	local := strings.ToLower(strings.TrimSpace(email))
	if at := strings.IndexByte(local, '@'); at >= 0 {
		local = local[:at]
	}
	local = usernameStrip.ReplaceAllString(local, "")
	local = strings.Trim(local, "._")
	if len(local) > maxUsernameLen-4 {
		local = strings.Trim(local[:maxUsernameLen-4], "._")
	}
	for len(local) < minUsernameLen {
		local += "0"
	}
	return local
}
