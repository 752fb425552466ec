package validator

import (
	"net/mail"
	"strings"
)

// ValidEmail validates email address structure: a parseable local part, a
// single @ and a domain containing a dot. This is a cheap syntactic gate, not
// deliverability proof.
func ValidEmail(field, value string) Rule {
	return Rule{
		Check: func() bool {
			return IsValidEmail(value)
		},
		Error: ValidationError{
			Field:   field,
			Message: "must be a valid email address",
		},
	}
}

// IsValidEmail reports whether the string looks like a deliverable address.
func IsValidEmail(value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}

	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		return false
	}

	parts := strings.Split(addr.Address, "@")
	if len(parts) != 2 {
		return false
	}

	// Bare hostnames parse fine but are almost never intended for web signups.
	return strings.Contains(parts[1], ".")
}
