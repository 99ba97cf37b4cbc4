// internal/domain/models/authmethods.go
package models

// AuthMethod represents an authentication method option for the UI.
type AuthMethod struct {
	Value string
	Label string
}

// Supported auth methods. Trust login is only honoured in development.
const (
	AuthPassword = "password"
	AuthTrust    = "trust"
)

// AllAuthMethods lists the auth methods an account may be assigned.
var AllAuthMethods = []AuthMethod{
	{Value: AuthPassword, Label: "Password"},
	{Value: AuthTrust, Label: "Trust (development only)"},
}

// IsValidAuthMethod checks if a value is a valid auth method.
func IsValidAuthMethod(value string) bool {
	for _, m := range AllAuthMethods {
		if m.Value == value {
			return true
		}
	}
	return false
}
