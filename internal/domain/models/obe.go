// internal/domain/models/obe.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OBEConfig is the outcome-based-education setup of one programme.
// All sections are stored in one document and edited section by section.
type OBEConfig struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Program         string             `bson:"program" json:"program"` // unique
	ProgramOutcomes []Outcome          `bson:"program_outcomes" json:"program_outcomes"`
	CourseOutcomes  []Outcome          `bson:"course_outcomes" json:"course_outcomes"`
	Mappings        []COPOMapping      `bson:"mappings" json:"mappings"`
	Thresholds      Thresholds         `bson:"thresholds" json:"thresholds"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updated_at"`
}

// Outcome is a program outcome (PO1) or course outcome (CO1).
type Outcome struct {
	Code      string `bson:"code" json:"code"`
	Course    string `bson:"course,omitempty" json:"course,omitempty"` // course outcomes only
	Statement string `bson:"statement" json:"statement"`
}

// COPOMapping links a course outcome to a program outcome with a
// correlation level of 1 (low), 2 (medium) or 3 (high).
type COPOMapping struct {
	CO    string `bson:"co" json:"co"`
	PO    string `bson:"po" json:"po"`
	Level int    `bson:"level" json:"level"`
}

// Thresholds are the attainment targets, in percent.
type Thresholds struct {
	Target int `bson:"target" json:"target"` // % of students expected to reach Level1
	Level1 int `bson:"level1" json:"level1"`
	Level2 int `bson:"level2" json:"level2"`
	Level3 int `bson:"level3" json:"level3"`
}
