// internal/app/store/throttle/throttle.go
// Package throttle locks a login ID out after repeated failed sign-ins.
package throttle

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/strataportal/internal/app/system/normalize"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection holds one document per login ID with recent failures.
const Collection = "login_failures"

// record is the stored state for one login ID. The _id is the folded login
// ID, so lookups need no extra index.
type record struct {
	Key         string     `bson:"_id"`
	Failures    int        `bson:"failures"`
	WindowStart time.Time  `bson:"window_start"`
	LockedUntil *time.Time `bson:"locked_until,omitempty"`
	LastFailure time.Time  `bson:"last_failure"`
}

// Config sets the lockout policy.
type Config struct {
	MaxFailures int           // failures within Window that trigger a lockout
	Window      time.Duration // failures older than this are forgotten
	Lockout     time.Duration // how long a locked login ID stays locked
}

// Store counts failed sign-ins per login ID.
type Store struct {
	c   *mongo.Collection
	cfg Config
	now func() time.Time
}

// New creates a throttle store. It returns nil when cfg.MaxFailures is not
// positive; a nil *Store never locks anyone out.
func New(db *mongo.Database, cfg Config) *Store {
	if cfg.MaxFailures <= 0 {
		return nil
	}
	return &Store{c: db.Collection(Collection), cfg: cfg, now: time.Now}
}

func key(loginID string) string {
	return text.Fold(normalize.LoginID(loginID))
}

// Locked reports whether loginID is locked out, and until when.
func (s *Store) Locked(ctx context.Context, loginID string) (time.Time, bool, error) {
	if s == nil {
		return time.Time{}, false, nil
	}
	var rec record
	err := s.c.FindOne(ctx, bson.M{"_id": key(loginID)}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	if rec.LockedUntil != nil && s.now().Before(*rec.LockedUntil) {
		return *rec.LockedUntil, true, nil
	}
	return time.Time{}, false, nil
}

// Fail records a failed sign-in. It reports the lockout end when this
// failure reached the limit.
func (s *Store) Fail(ctx context.Context, loginID string) (time.Time, bool, error) {
	if s == nil {
		return time.Time{}, false, nil
	}
	now := s.now().UTC()
	k := key(loginID)

	// A stale window starts over.
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": k, "window_start": bson.M{"$lt": now.Add(-s.cfg.Window)}},
		bson.M{"$set": bson.M{"failures": 0, "window_start": now}, "$unset": bson.M{"locked_until": ""}},
	)
	if err != nil {
		return time.Time{}, false, err
	}

	var rec record
	err = s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": k},
		bson.M{
			"$inc":         bson.M{"failures": 1},
			"$set":         bson.M{"last_failure": now},
			"$setOnInsert": bson.M{"window_start": now},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&rec)
	if err != nil {
		return time.Time{}, false, err
	}
	if rec.Failures < s.cfg.MaxFailures {
		return time.Time{}, false, nil
	}

	until := now.Add(s.cfg.Lockout)
	if _, err := s.c.UpdateOne(ctx, bson.M{"_id": k}, bson.M{"$set": bson.M{"locked_until": until}}); err != nil {
		return time.Time{}, false, err
	}
	return until, true, nil
}

// Clear forgets the failures of loginID after a successful sign-in.
func (s *Store) Clear(ctx context.Context, loginID string) error {
	if s == nil {
		return nil
	}
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": key(loginID)})
	return err
}
