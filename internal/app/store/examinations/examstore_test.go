package examstore

import (
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/strataportal/internal/app/store/storeutil"
	"github.com/dalemusser/strataportal/internal/app/system/wizard"
	"github.com/dalemusser/strataportal/internal/domain/models"
	"github.com/dalemusser/strataportal/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
)

func createExam(t *testing.T, store *Store, code string) *models.Examination {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e, err := store.Create(ctx, Input{
		Code:     code,
		Course:   "Data Structures",
		Semester: 3,
		Type:     models.ExamInternal,
		Date:     time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Create(%s): %v", code, err)
	}
	return e
}

func TestWorkflow(t *testing.T) {
	tests := []struct {
		from, to string
		ok       bool
	}{
		{models.ExamDraft, models.ExamScheduled, true},
		{models.ExamDraft, models.ExamCancelled, true},
		{models.ExamScheduled, models.ExamDraft, true},
		{models.ExamScheduled, models.ExamInProgress, true},
		{models.ExamInProgress, models.ExamCompleted, true},
		{models.ExamCompleted, models.ExamResultsPublished, true},
		{models.ExamDraft, models.ExamCompleted, false},
		{models.ExamInProgress, models.ExamCancelled, false},
		{models.ExamResultsPublished, models.ExamDraft, false},
		{models.ExamCancelled, models.ExamDraft, false},
	}
	for _, tt := range tests {
		err := Workflow.Check(wizard.Step(tt.from), wizard.Step(tt.to))
		if tt.ok && err != nil {
			t.Errorf("%s -> %s: unexpected error %v", tt.from, tt.to, err)
		}
		if !tt.ok && !errors.Is(err, wizard.ErrInvalidTransition) {
			t.Errorf("%s -> %s: error = %v, want ErrInvalidTransition", tt.from, tt.to, err)
		}
	}
}

func TestStore_CreateStartsInDraft(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)

	e := createExam(t, store, " cs301-ia1 ")
	if e.Status != models.ExamDraft {
		t.Errorf("Status = %q, want draft", e.Status)
	}
	if e.Code != "CS301-IA1" {
		t.Errorf("Code = %q, want CS301-IA1", e.Code)
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	_, err := store.Create(ctx, Input{Code: "CS301-IA1", Course: "Other", Type: models.ExamInternal})
	if !errors.Is(err, storeutil.ErrDuplicate) {
		t.Errorf("duplicate code error = %v, want ErrDuplicate", err)
	}
}

func TestStore_Transition(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	e := createExam(t, store, "CS301-IA1")
	ctx, cancel := testutil.TestContext()
	defer cancel()

	from, err := store.Transition(ctx, e.ID, models.ExamScheduled)
	if err != nil || from != models.ExamDraft {
		t.Fatalf("Transition to scheduled = %q, %v", from, err)
	}
	if _, err := store.Transition(ctx, e.ID, models.ExamResultsPublished); !errors.Is(err, wizard.ErrInvalidTransition) {
		t.Errorf("skip ahead error = %v, want ErrInvalidTransition", err)
	}
	if _, err := store.Transition(ctx, e.ID, "archived"); !errors.Is(err, wizard.ErrUnknownStep) {
		t.Errorf("unknown status error = %v, want ErrUnknownStep", err)
	}

	got, err := store.Get(ctx, e.ID)
	if err != nil || got.Status != models.ExamScheduled {
		t.Errorf("stored status = %v, %v; want scheduled", got, err)
	}
}

func TestStore_UpdateLockedAfterScheduled(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	e := createExam(t, store, "CS301-IA1")
	ctx, cancel := testutil.TestContext()
	defer cancel()

	in := Input{Code: "CS301-IA1", Course: "Advanced Data Structures", Semester: 3, Type: models.ExamInternal, Date: e.Date}
	if err := store.Update(ctx, e.ID, in); err != nil {
		t.Fatalf("Update draft: %v", err)
	}

	// Force the exam past scheduled.
	if _, err := store.Raw().UpdateOne(ctx, bson.M{"_id": e.ID}, bson.M{"$set": bson.M{"status": models.ExamInProgress}}); err != nil {
		t.Fatalf("UpdateOne: %v", err)
	}
	if err := store.Update(ctx, e.ID, in); !errors.Is(err, ErrLocked) {
		t.Errorf("Update in_progress error = %v, want ErrLocked", err)
	}
	if err := store.Update(ctx, createExam(t, store, "X").ID, Input{Code: "CS301-IA1"}); !errors.Is(err, storeutil.ErrDuplicate) {
		t.Errorf("Update to taken code error = %v, want ErrDuplicate", err)
	}
}

func TestEditable(t *testing.T) {
	for status, want := range map[string]bool{
		models.ExamDraft:            true,
		models.ExamScheduled:        true,
		models.ExamInProgress:       false,
		models.ExamResultsPublished: false,
		models.ExamCancelled:        false,
	} {
		if got := Editable(status); got != want {
			t.Errorf("Editable(%q) = %v, want %v", status, got, want)
		}
	}
}

func TestStore_CountByStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	a := createExam(t, store, "A")
	createExam(t, store, "B")
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if _, err := store.Transition(ctx, a.ID, models.ExamCancelled); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	got, err := store.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if got[models.ExamDraft] != 1 || got[models.ExamCancelled] != 1 {
		t.Errorf("CountByStatus = %v", got)
	}
}
