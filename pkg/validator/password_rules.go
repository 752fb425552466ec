package validator

import (
	"fmt"
	"regexp"
	"strings"
)

// PasswordMinLength is the minimum accepted password length.
const PasswordMinLength = 8

var (
	uppercaseRegex   = regexp.MustCompile(`[A-Z]`)
	lowercaseRegex   = regexp.MustCompile(`[a-z]`)
	digitRegex       = regexp.MustCompile(`[0-9]`)
	specialCharRegex = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>\/?~` + "`" + `]`)

	// Frequently compromised passwords that pass the structural checks.
	commonPasswords = map[string]bool{
		"password":    true,
		"password1":   true,
		"password123": true,
		"password!":   true,
		"qwerty123":   true,
		"qwertyuiop":  true,
		"asdfghjkl":   true,
		"1234567890":  true,
		"123456789":   true,
		"12345678":    true,
		"iloveyou":    true,
		"letmein":     true,
		"trustno1":    true,
		"admin123":    true,
		"welcome1":    true,
		"sunshine":    true,
		"princess":    true,
		"football":    true,
		"baseball":    true,
		"superman":    true,
		"dragon123":   true,
	}
)

// PasswordRules returns the full password policy as individual rules so that
// Apply reports every violated requirement together, not just the first.
func PasswordRules(field, value string) []Rule {
	return []Rule{
		PasswordLength(field, value),
		PasswordLowercase(field, value),
		PasswordUppercase(field, value),
		PasswordDigit(field, value),
		PasswordSpecialChar(field, value),
		NotCommonPassword(field, value),
	}
}

func PasswordLength(field, value string) Rule {
	return Rule{
		Check: func() bool {
			return len(value) >= PasswordMinLength
		},
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be at least %d characters long", PasswordMinLength),
		},
	}
}

func PasswordLowercase(field, value string) Rule {
	return Rule{
		Check: func() bool {
			return lowercaseRegex.MatchString(value)
		},
		Error: ValidationError{
			Field:   field,
			Message: "must contain at least one lowercase letter",
		},
	}
}

func PasswordUppercase(field, value string) Rule {
	return Rule{
		Check: func() bool {
			return uppercaseRegex.MatchString(value)
		},
		Error: ValidationError{
			Field:   field,
			Message: "must contain at least one uppercase letter",
		},
	}
}

func PasswordDigit(field, value string) Rule {
	return Rule{
		Check: func() bool {
			return digitRegex.MatchString(value)
		},
		Error: ValidationError{
			Field:   field,
			Message: "must contain at least one digit",
		},
	}
}

func PasswordSpecialChar(field, value string) Rule {
	return Rule{
		Check: func() bool {
			return specialCharRegex.MatchString(value)
		},
		Error: ValidationError{
			Field:   field,
			Message: "must contain at least one special character",
		},
	}
}

func NotCommonPassword(field, value string) Rule {
	return Rule{
		Check: func() bool {
			return !commonPasswords[strings.ToLower(value)]
		},
		Error: ValidationError{
			Field:   field,
			Message: "password is too common, please choose a different one",
		},
	}
}
