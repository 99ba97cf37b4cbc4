// internal/app/store/users/fetcher.go
package userstore

import (
	"context"

	"github.com/dalemusser/strataportal/internal/app/system/auth"
	"github.com/dalemusser/strataportal/internal/app/system/normalize"
	"github.com/dalemusser/strataportal/internal/app/system/timeouts"
	"github.com/dalemusser/strataportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Fetcher implements auth.UserFetcher so that role changes and disabled
// accounts take effect on the next request.
type Fetcher struct {
	store  *Store
	logger *zap.Logger
}

// NewFetcher creates a UserFetcher backed by store.
func NewFetcher(store *Store, logger *zap.Logger) *Fetcher {
	return &Fetcher{store: store, logger: logger}
}

// FetchUser returns nil if the user is missing, disabled, or the lookup fails.
func (f *Fetcher) FetchUser(ctx context.Context, userID string) *auth.SessionUser {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	u, err := f.store.Get(ctx, oid)
	if err != nil {
		f.logger.Debug("session user lookup failed", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	if normalize.Status(u.Status) == models.StatusDisabled {
		return nil
	}

	return &auth.SessionUser{
		ID:         u.ID.Hex(),
		Name:       u.FullName,
		LoginID:    u.LoginID,
		Role:       normalize.Role(u.Role),
		Department: u.Department,
	}
}
