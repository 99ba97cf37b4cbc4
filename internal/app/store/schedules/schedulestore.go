// internal/app/store/schedules/schedulestore.go
package schedulestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/strataportal/internal/app/store/storeutil"
	"github.com/dalemusser/strataportal/internal/app/system/inputval"
	"github.com/dalemusser/strataportal/internal/app/system/normalize"
	"github.com/dalemusser/strataportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrRoomBusy is returned when a slot overlaps another slot in the same room
// on the same day.
var ErrRoomBusy = errors.New("the room is already booked for part of this time")

// ErrInvalidTime is returned when Start or End is not a 24-hour HH:MM time
// or End is not after Start.
var ErrInvalidTime = errors.New("slot times must be HH:MM with end after start")

// Store provides access to the schedule_slots collection.
type Store struct {
	storeutil.Collection[models.ScheduleSlot]
}

// New creates a schedule store.
func New(db *mongo.Database) *Store {
	return &Store{storeutil.NewCollection[models.ScheduleSlot](
		db.Collection("schedule_slots"),
		bson.D{{Key: "day", Value: 1}, {Key: "start", Value: 1}},
	)}
}

// Input holds the editable fields of a slot. Start and End are HH:MM.
type Input struct {
	Day     string
	Start   string
	End     string
	Course  string
	Room    string
	Faculty string
}

func (in Input) normalized() Input {
	in.Start = inputval.CanonicalClock(in.Start)
	in.End = inputval.CanonicalClock(in.End)
	in.Course = normalize.Name(in.Course)
	in.Room = normalize.Code(in.Room)
	in.Faculty = normalize.Name(in.Faculty)
	return in
}

func (in Input) checkTimes() error {
	start, okStart := inputval.ClockMinutes(in.Start)
	end, okEnd := inputval.ClockMinutes(in.End)
	if !okStart || !okEnd || end <= start {
		return ErrInvalidTime
	}
	return nil
}

// Overlaps reports whether [aStart,aEnd) and [bStart,bEnd) intersect,
// comparing minutes after midnight. A range with an unparseable bound
// overlaps nothing.
func Overlaps(aStart, aEnd, bStart, bEnd string) bool {
	as, ok1 := inputval.ClockMinutes(aStart)
	ae, ok2 := inputval.ClockMinutes(aEnd)
	bs, ok3 := inputval.ClockMinutes(bStart)
	be, ok4 := inputval.ClockMinutes(bEnd)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return false
	}
	return as < be && bs < ae
}

// checkRoom rejects a slot that collides with another slot (other than
// exclude) in the same room on the same day.
func (s *Store) checkRoom(ctx context.Context, in Input, exclude primitive.ObjectID) error {
	same, err := s.List(ctx, bson.M{"day": in.Day, "room": in.Room})
	if err != nil {
		return err
	}
	for _, slot := range same {
		if slot.ID == exclude {
			continue
		}
		if Overlaps(in.Start, in.End, slot.Start, slot.End) {
			return ErrRoomBusy
		}
	}
	return nil
}

// Create inserts a slot after checking room availability.
func (s *Store) Create(ctx context.Context, in Input) (*models.ScheduleSlot, error) {
	in = in.normalized()
	if err := in.checkTimes(); err != nil {
		return nil, err
	}
	if err := s.checkRoom(ctx, in, primitive.NilObjectID); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	slot := models.ScheduleSlot{
		ID:        primitive.NewObjectID(),
		Day:       in.Day,
		Start:     in.Start,
		End:       in.End,
		Course:    in.Course,
		Room:      in.Room,
		Faculty:   in.Faculty,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Insert(ctx, &slot); err != nil {
		return nil, err
	}
	return &slot, nil
}

// Update replaces a slot's fields after checking room availability.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, in Input) error {
	in = in.normalized()
	if err := in.checkTimes(); err != nil {
		return err
	}
	if err := s.checkRoom(ctx, in, id); err != nil {
		return err
	}
	return s.Set(ctx, id, bson.M{
		"day":        in.Day,
		"start":      in.Start,
		"end":        in.End,
		"course":     in.Course,
		"room":       in.Room,
		"faculty":    in.Faculty,
		"updated_at": time.Now().UTC(),
	})
}
