// Package validator provides a small rule-based validation engine used by the
// authentication services. Rules are composed with Apply, which evaluates every
// rule and returns the complete set of violations as ValidationErrors.
package validator
