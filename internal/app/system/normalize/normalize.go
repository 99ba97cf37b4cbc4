// Package normalize provides helper functions for consistent string normalization
// across the portal. Use these helpers instead of scattered strings.ToLower
// and strings.TrimSpace calls so that search boxes, form fields and stored keys
// agree on one canonical form.
package normalize

import "strings"

// Query normalizes free-text search input: trimmed and lower-cased.
// The empty result means "no filter".
func Query(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// LoginID normalizes a login identifier by trimming whitespace and converting to lowercase.
func LoginID(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name normalizes a display name by trimming whitespace.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Code normalizes a record code (institution code, manual id, exam code)
// by trimming whitespace and converting to uppercase.
func Code(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Status normalizes a status value by trimming whitespace and converting to lowercase.
func Status(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Role normalizes a role value by trimming whitespace and converting to lowercase.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// QueryParam normalizes a query parameter by trimming whitespace.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}
