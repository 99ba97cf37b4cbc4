// internal/app/system/authz/authz.go
package authz

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - LoginID / loginID / login_id: The human-readable string users type to log in

import (
	"net/http"

	"github.com/dalemusser/strataportal/internal/app/system/auth"
	"github.com/dalemusser/strataportal/internal/app/system/normalize"
	"github.com/dalemusser/strataportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Visitor is the role reported for anonymous requests.
const Visitor = "visitor"

// UserCtx returns the normalized role, display name and ObjectID of the
// signed-in user. A missing user or a malformed id reports Visitor and ok=false,
// so ok=true always comes with a usable ObjectID.
func UserCtx(r *http.Request) (role, name string, userID primitive.ObjectID, ok bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return Visitor, "", primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return Visitor, "", primitive.NilObjectID, false
	}
	return normalize.Role(u.Role), u.Name, userID, true
}

// Role returns the current user's role, or Visitor.
func Role(r *http.Request) string {
	role, _, _, _ := UserCtx(r)
	return role
}

// HasRole reports whether the current user holds one of roles.
func HasRole(r *http.Request, roles ...string) bool {
	role, _, _, ok := UserCtx(r)
	if !ok {
		return false
	}
	for _, allowed := range roles {
		if normalize.Role(allowed) == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the current user is an admin.
func IsAdmin(r *http.Request) bool { return HasRole(r, models.RoleAdmin) }

// CanEdit reports whether the current user may change accreditation and
// academic records. Faculty have read access only.
func CanEdit(r *http.Request) bool {
	return HasRole(r, models.RoleAdmin, models.RoleCoordinator)
}

// IsLoggedIn reports whether there is a user in the request context.
func IsLoggedIn(r *http.Request) bool {
	_, ok := auth.CurrentUser(r)
	return ok
}
