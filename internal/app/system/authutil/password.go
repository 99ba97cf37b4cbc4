// internal/app/system/authutil/password.go
// Package authutil holds password rules and hashing for portal accounts.
package authutil

import (
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 72 // bcrypt ignores bytes past 72
	BcryptCost        = 12
)

var (
	ErrPasswordTooShort  = errors.New("Password must be at least 8 characters.")
	ErrPasswordTooLong   = errors.New("Password must be at most 72 bytes.")
	ErrPasswordCommon    = errors.New("This password is too common. Please choose a different one.")
	ErrPasswordIsLoginID = errors.New("Password must not be the same as your login ID.")
)

// Checked case-insensitively. Includes the usual suspects plus a few that
// show up on campus machines.
var commonPasswords = map[string]bool{
	"12345678": true, "123456789": true, "1234567890": true,
	"password": true, "password1": true, "password123": true,
	"qwerty123": true, "qwertyuiop": true, "iloveyou": true,
	"11111111": true, "00000000": true, "abcd1234": true,
	"welcome1": true, "welcome123": true, "letmein1": true,
	"admin123": true, "admin@123": true, "college123": true,
	"student123": true, "faculty123": true, "principal": true,
	"naac2024": true, "naac2025": true, "university": true,
}

// PasswordRules describes the rules for display on password forms.
func PasswordRules() string {
	return "Use at least 8 characters. Avoid common passwords and your login ID."
}

// ValidatePassword checks password against the rules. loginID may be empty.
func ValidatePassword(password, loginID string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	lower := strings.ToLower(password)
	if commonPasswords[lower] {
		return ErrPasswordCommon
	}
	if loginID != "" && lower == strings.ToLower(strings.TrimSpace(loginID)) {
		return ErrPasswordIsLoginID
	}
	return nil
}

// HashPassword returns the bcrypt hash of password. Validate first.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
