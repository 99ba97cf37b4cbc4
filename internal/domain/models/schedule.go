// internal/domain/models/schedule.go
package models

import (
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ScheduleSlot is one weekly timetable entry.
type ScheduleSlot struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Day       string             `bson:"day" json:"day"`
	Start     string             `bson:"start" json:"start"` // HH:MM, 24h
	End       string             `bson:"end" json:"end"`
	Course    string             `bson:"course" json:"course"`
	Room      string             `bson:"room" json:"room"`
	Faculty   string             `bson:"faculty" json:"faculty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// Weekdays returns the teaching days in order.
func Weekdays() []string {
	return []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}
}

// IsValidWeekday reports whether d is a teaching day.
func IsValidWeekday(d string) bool {
	return slices.Contains(Weekdays(), d)
}
