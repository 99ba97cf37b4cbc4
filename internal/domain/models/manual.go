// internal/domain/models/manual.go
package models

import (
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Manual is an accreditation manual published by an agency for one
// institution category, e.g. the NAAC manual for Engineering colleges.
type Manual struct {
	ID                  primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ManualID            string             `bson:"manual_id" json:"manual_id"` // M001, unique
	Title               string             `bson:"title" json:"title"`
	Agency              string             `bson:"agency" json:"agency"`
	Version             string             `bson:"version,omitempty" json:"version,omitempty"`
	InstitutionCategory string             `bson:"institution_category" json:"institution_category"`
	Year                int                `bson:"year,omitempty" json:"year,omitempty"`
	NotesHTML           string             `bson:"notes_html,omitempty" json:"notes_html,omitempty"` // sanitized
	CreatedAt           time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt           time.Time          `bson:"updated_at" json:"updated_at"`
}

// Accreditation agencies.
const (
	AgencyNAAC = "NAAC"
	AgencyNBA  = "NBA"
	AgencyNIRF = "NIRF"
)

// Agencies returns the agencies in display order.
func Agencies() []string {
	return []string{AgencyNAAC, AgencyNBA, AgencyNIRF}
}

// IsValidAgency reports whether a is a known agency.
func IsValidAgency(a string) bool {
	return slices.Contains(Agencies(), a)
}
