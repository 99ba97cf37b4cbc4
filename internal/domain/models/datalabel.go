// internal/domain/models/datalabel.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DataLabel describes the evidence collected for a manual: the standard
// operating procedure, the accepted input types and the label types
// data-entry staff tag documents with.
type DataLabel struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ManualID   primitive.ObjectID `bson:"manual_id" json:"manual_id"`
	ManualCode string             `bson:"manual_code" json:"manual_code"` // denormalized M001
	SOPTitle   string             `bson:"sop_title" json:"sop_title"`
	SOPHTML    string             `bson:"sop_html" json:"sop_html"` // sanitized
	InputTypes []string           `bson:"input_types" json:"input_types"`
	LabelTypes []LabelType        `bson:"label_types" json:"label_types"`
	CreatedBy  string             `bson:"created_by,omitempty" json:"created_by,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}

// LabelType is one label, keyed by a URL-safe slug of its name.
type LabelType struct {
	Key  string `bson:"key" json:"key"`
	Name string `bson:"name" json:"name"`
}

// InputTypes returns the input types a data label may accept.
func InputTypes() []string {
	return []string{"Document", "Spreadsheet", "Image", "Link", "Text"}
}

// LabelDraft holds an unfinished data-label wizard between requests.
type LabelDraft struct {
	Token      string             `bson:"_id" json:"token"`
	Step       string             `bson:"step" json:"step"`
	ManualID   primitive.ObjectID `bson:"manual_id,omitempty" json:"manual_id"`
	ManualCode string             `bson:"manual_code,omitempty" json:"manual_code"`
	SOPTitle   string             `bson:"sop_title,omitempty" json:"sop_title"`
	SOPHTML    string             `bson:"sop_html,omitempty" json:"sop_html"`
	InputTypes []string           `bson:"input_types,omitempty" json:"input_types"`
	LabelTypes []LabelType        `bson:"label_types,omitempty" json:"label_types"`
	OwnerID    string             `bson:"owner_id" json:"owner_id"`
	ExpiresAt  time.Time          `bson:"expires_at" json:"expires_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}
