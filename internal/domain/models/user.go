// internal/domain/models/user.go
package models

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - LoginID / loginID / login_id: The human-readable string users type to log in

import (
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is a portal account. Accounts are created by seeding or by an admin;
// there is no self-registration.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName   string             `bson:"full_name" json:"full_name"`
	FullNameCI string             `bson:"full_name_ci" json:"-"` // folded for search

	LoginID    string `bson:"login_id" json:"login_id"` // lowercase
	LoginIDCI  string `bson:"login_id_ci" json:"-"`     // folded, unique
	AuthMethod string `bson:"auth_method" json:"auth_method"`

	PasswordHash *string `bson:"password_hash,omitempty" json:"-"`

	Role   string `bson:"role" json:"role"`
	Status string `bson:"status" json:"status"` // active, disabled

	// Department or institution the user works for. Display only.
	Department string `bson:"department,omitempty" json:"department,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// User roles
const (
	RoleAdmin       = "admin"
	RoleCoordinator = "coordinator" // IQAC / accreditation coordinator
	RoleFaculty     = "faculty"
)

// AllRoles returns all valid user roles.
func AllRoles() []string {
	return []string{RoleAdmin, RoleCoordinator, RoleFaculty}
}

// IsValidRole checks if a role is valid.
func IsValidRole(role string) bool {
	return slices.Contains(AllRoles(), role)
}

// User statuses
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)
