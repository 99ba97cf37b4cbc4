package authutil

import (
	"strings"
	"testing"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		loginID  string
		wantErr  error
	}{
		{"valid", "correct horse", "", nil},
		{"valid with symbols", "P@ssw0rd!2025", "rkumar", nil},
		{"valid max length", strings.Repeat("a", 72), "", nil},
		{"multibyte counts runes", "पासवर्डकोड१२", "", nil},

		{"empty", "", "", ErrPasswordTooShort},
		{"seven chars", "abcdefg", "", ErrPasswordTooShort},
		{"too long", strings.Repeat("a", 73), "", ErrPasswordTooLong},

		{"common", "password123", "", ErrPasswordCommon},
		{"common uppercase", "COLLEGE123", "", ErrPasswordCommon},

		{"same as login", "rkumar2025", "rkumar2025", ErrPasswordIsLoginID},
		{"same as login case", "RKumar2025", " rkumar2025 ", ErrPasswordIsLoginID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidatePassword(tt.password, tt.loginID); err != tt.wantErr {
				t.Errorf("ValidatePassword(%q, %q) = %v, want %v", tt.password, tt.loginID, err, tt.wantErr)
			}
		})
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	const pw = "accreditation-ready"

	hash, err := HashPassword(pw)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("hash %q is not bcrypt", hash)
	}

	hash2, err := HashPassword(pw)
	if err != nil {
		t.Fatalf("HashPassword() second call error = %v", err)
	}
	if hash == hash2 {
		t.Error("hashes should differ because of the salt")
	}

	if !CheckPassword(pw, hash) {
		t.Error("CheckPassword() rejected the right password")
	}
	if CheckPassword("wrong-password", hash) {
		t.Error("CheckPassword() accepted a wrong password")
	}
	if CheckPassword(pw, "not-a-hash") {
		t.Error("CheckPassword() accepted a malformed hash")
	}
}

func TestPasswordRules(t *testing.T) {
	if !strings.Contains(PasswordRules(), "8") {
		t.Errorf("PasswordRules() = %q, should mention the minimum length", PasswordRules())
	}
}
