// internal/domain/models/examination.go
package models

import (
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Examination is one scheduled assessment of a course.
// Status moves through the examination workflow; see the examinations store.
type Examination struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Code      string             `bson:"code" json:"code"` // unique
	Course    string             `bson:"course" json:"course"`
	Semester  int                `bson:"semester" json:"semester"`
	Type      string             `bson:"type" json:"type"`
	Date      time.Time          `bson:"date" json:"date"`
	Status    string             `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// Examination types.
const (
	ExamInternal  = "internal"
	ExamModel     = "model"
	ExamSemester  = "semester"
	ExamPractical = "practical"
)

// ExamTypes returns the examination types in display order.
func ExamTypes() []string {
	return []string{ExamInternal, ExamModel, ExamSemester, ExamPractical}
}

// IsValidExamType reports whether t is a known examination type.
func IsValidExamType(t string) bool {
	return slices.Contains(ExamTypes(), t)
}

// Examination workflow states.
const (
	ExamDraft            = "draft"
	ExamScheduled        = "scheduled"
	ExamInProgress       = "in_progress"
	ExamCompleted        = "completed"
	ExamResultsPublished = "results_published"
	ExamCancelled        = "cancelled"
)

// ExamStatuses returns every workflow state in order.
func ExamStatuses() []string {
	return []string{ExamDraft, ExamScheduled, ExamInProgress, ExamCompleted, ExamResultsPublished, ExamCancelled}
}
