// internal/domain/models/criterion.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Criterion is a top-level heading of a manual ("1 Curricular Aspects").
type Criterion struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ManualID  primitive.ObjectID `bson:"manual_id" json:"manual_id"`
	Number    string             `bson:"number" json:"number"` // unique within a manual
	Title     string             `bson:"title" json:"title"`
	Weightage float64            `bson:"weightage" json:"weightage"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// Metric is a measurable item under a criterion ("1.1.1").
type Metric struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CriterionID primitive.ObjectID `bson:"criterion_id" json:"criterion_id"`
	Number      string             `bson:"number" json:"number"`
	Description string             `bson:"description" json:"description"`
	Type        string             `bson:"type" json:"type"` // QlM or QnM
	MaxMarks    float64            `bson:"max_marks" json:"max_marks"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// Metric types: qualitative and quantitative.
const (
	MetricQualitative  = "QlM"
	MetricQuantitative = "QnM"
)

// IsValidMetricType reports whether t is QlM or QnM.
func IsValidMetricType(t string) bool {
	return t == MetricQualitative || t == MetricQuantitative
}
