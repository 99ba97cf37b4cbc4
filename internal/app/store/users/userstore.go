// internal/app/store/users/userstore.go
package userstore

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - LoginID / loginID / login_id: The human-readable string users type to log in

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/strataportal/internal/app/store/storeutil"
	"github.com/dalemusser/strataportal/internal/app/system/normalize"
	"github.com/dalemusser/strataportal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrDuplicateLoginID is returned when attempting to create a user with a login_id that already exists.
	ErrDuplicateLoginID = errors.New("a user with this login ID already exists")
	// ErrLastAdmin is returned when a change would leave no active admin.
	// The change is not kept.
	ErrLastAdmin        = errors.New("at least one active admin is required")
	errBadRole          = errors.New("invalid role")
	errBadAuthMethod    = errors.New("invalid auth method")
)

// Store provides access to the users collection.
type Store struct {
	storeutil.Collection[models.User]
}

func New(db *mongo.Database) *Store {
	return &Store{storeutil.NewCollection[models.User](
		db.Collection("users"),
		bson.D{{Key: "full_name_ci", Value: 1}},
	)}
}

// GetByLoginID looks up a user by case/diacritic-insensitive login_id.
// Returns storeutil.ErrNotFound if there is no such user.
func (s *Store) GetByLoginID(ctx context.Context, loginID string) (*models.User, error) {
	return s.FindOne(ctx, bson.M{"login_id_ci": text.Fold(normalize.LoginID(loginID))})
}

// CreateInput holds the fields for creating a new user.
type CreateInput struct {
	FullName     string
	LoginID      string
	AuthMethod   string
	Role         string
	Department   string
	PasswordHash *string
}

// Create inserts a new active user after normalizing & validating fields.
func (s *Store) Create(ctx context.Context, in CreateInput) (*models.User, error) {
	if !models.IsValidRole(in.Role) {
		return nil, errBadRole
	}
	if !models.IsValidAuthMethod(in.AuthMethod) {
		return nil, errBadAuthMethod
	}

	loginID := normalize.LoginID(in.LoginID)
	name := normalize.Name(in.FullName)
	now := time.Now().UTC()
	u := models.User{
		ID:           primitive.NewObjectID(),
		FullName:     name,
		FullNameCI:   text.Fold(name),
		LoginID:      loginID,
		LoginIDCI:    text.Fold(loginID),
		AuthMethod:   in.AuthMethod,
		PasswordHash: in.PasswordHash,
		Role:         in.Role,
		Status:       models.StatusActive,
		Department:   normalize.Name(in.Department),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Insert(ctx, &u); err != nil {
		if errors.Is(err, storeutil.ErrDuplicate) {
			return nil, ErrDuplicateLoginID
		}
		return nil, err
	}
	return &u, nil
}

// SetStatus enables or disables a user. Disabling the last active admin
// returns ErrLastAdmin.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	return s.setKeepingAdmin(ctx, id, bson.M{"status": normalize.Status(status), "updated_at": time.Now().UTC()})
}

// setKeepingAdmin applies set and then re-counts active admins. If the user
// was an active admin and none remain, its role and status are put back and
// ErrLastAdmin is returned. Two admins demoting each other at once can both
// be refused, but the count never settles at zero.
func (s *Store) setKeepingAdmin(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	var before models.User
	err := s.Raw().FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return storeutil.ErrNotFound
	}
	if err != nil {
		return err
	}
	if before.Role != models.RoleAdmin || before.Status != models.StatusActive {
		return nil
	}

	n, err := s.CountActiveAdmins(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if err := s.Set(ctx, id, bson.M{
		"role":       before.Role,
		"status":     before.Status,
		"updated_at": time.Now().UTC(),
	}); err != nil {
		return err
	}
	return ErrLastAdmin
}

// UpdatePassword stores a new password hash.
func (s *Store) UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error {
	return s.Set(ctx, id, bson.M{"password_hash": passwordHash, "updated_at": time.Now().UTC()})
}

// CountActiveAdmins returns the number of users with role=admin and status=active.
func (s *Store) CountActiveAdmins(ctx context.Context) (int64, error) {
	return s.Count(ctx, bson.M{"role": models.RoleAdmin, "status": models.StatusActive})
}

// UpdateInput holds the admin-editable fields of a user. The login id is
// fixed once created.
type UpdateInput struct {
	FullName   string
	AuthMethod string
	Role       string
	Department string
}

// Update replaces the editable profile fields of a user. Demoting the last
// active admin returns ErrLastAdmin.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, in UpdateInput) error {
	if !models.IsValidRole(in.Role) {
		return errBadRole
	}
	if !models.IsValidAuthMethod(in.AuthMethod) {
		return errBadAuthMethod
	}
	name := normalize.Name(in.FullName)
	return s.setKeepingAdmin(ctx, id, bson.M{
		"full_name":    name,
		"full_name_ci": text.Fold(name),
		"auth_method":  in.AuthMethod,
		"role":         in.Role,
		"department":   normalize.Name(in.Department),
		"updated_at":   time.Now().UTC(),
	})
}
