package datalabelstore

import (
	"testing"

	"github.com/dalemusser/strataportal/internal/domain/models"
	"github.com/dalemusser/strataportal/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_CreateFromDraft(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	manual := primitive.NewObjectID()
	draft := models.LabelDraft{
		Token:      "ignored",
		ManualID:   manual,
		ManualCode: "M001",
		SOPTitle:   "Student feedback",
		SOPHTML:    "<p>Collect each semester</p>",
		InputTypes: []string{"Document", "Spreadsheet"},
		LabelTypes: []models.LabelType{{Key: "feedback-form", Name: "Feedback form"}},
	}
	dl, err := store.CreateFromDraft(ctx, draft, "iqac")
	if err != nil {
		t.Fatalf("CreateFromDraft: %v", err)
	}
	if dl.ID.IsZero() || dl.CreatedAt.IsZero() || dl.CreatedBy != "iqac" {
		t.Errorf("CreateFromDraft = %+v", dl)
	}

	got, err := store.Get(ctx, dl.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ManualCode != "M001" || len(got.LabelTypes) != 1 || got.LabelTypes[0].Key != "feedback-form" {
		t.Errorf("stored label = %+v", got)
	}

	if _, err := store.CreateFromDraft(ctx, models.LabelDraft{ManualID: primitive.NewObjectID()}, "iqac"); err != nil {
		t.Fatalf("CreateFromDraft other manual: %v", err)
	}
	if n, err := store.CountByManual(ctx, manual); err != nil || n != 1 {
		t.Errorf("CountByManual = %d, %v; want 1", n, err)
	}
}
