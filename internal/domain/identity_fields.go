package domain

import (
	"net/mail"
	"regexp"
	"strings"
)

var (
	nationalIDRegex = regexp.MustCompile(`^\d{16}$`)
	phoneRegex      = regexp.MustCompile(`^07\d{8}$`)
)

// ValidNationalID reports whether id is a 16-digit national identifier.
func ValidNationalID(id string) bool {
	return nationalIDRegex.MatchString(id)
}

// ValidPhoneNumber reports whether phone is a 10-digit mobile number starting with 07.
func ValidPhoneNumber(phone string) bool {
	return phoneRegex.MatchString(phone)
}

// NormalizeEmail lowercases and trims an address; uniqueness is enforced on this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether email is a bare RFC 5322 address.
func ValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// MaskNationalID hides all but the first four digits.
func MaskNationalID(id string) string {
	if len(id) <= 4 {
		return strings.Repeat("*", len(id))
	}
	return id[:4] + strings.Repeat("*", len(id)-4)
}
