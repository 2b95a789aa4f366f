package util

import (
	"html"
	"net/mail"
	"strings"
)

// NormalizeEmail lowercases and trims an email address. The normalized form
// is the identity key for login and reset lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether the address parses as a bare RFC 5322 address.
func ValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email
}

// SanitizeInput trims and escapes HTML-significant characters.
func SanitizeInput(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}
