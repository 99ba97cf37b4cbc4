// internal/domain/models/institution.go
package models

import (
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Institution is a college or university registered in the portal.
type Institution struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Code        string             `bson:"code" json:"code"` // uppercase, unique
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"`
	Category    string             `bson:"category" json:"category"`
	Affiliation string             `bson:"affiliation,omitempty" json:"affiliation,omitempty"` // affiliating university
	City        string             `bson:"city,omitempty" json:"city,omitempty"`
	Established int                `bson:"established,omitempty" json:"established,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// Institution categories. Manuals are written per category.
const (
	CategoryEngineering = "Engineering"
	CategoryArtsScience = "Arts & Science"
	CategoryMedical     = "Medical"
	CategoryManagement  = "Management"
	CategoryPolytechnic = "Polytechnic"
)

// InstitutionCategories returns the categories in display order.
func InstitutionCategories() []string {
	return []string{
		CategoryEngineering,
		CategoryArtsScience,
		CategoryMedical,
		CategoryManagement,
		CategoryPolytechnic,
	}
}

// IsValidCategory reports whether c is a known institution category.
func IsValidCategory(c string) bool {
	return slices.Contains(InstitutionCategories(), c)
}
