// internal/app/store/examinations/examstore.go
package examstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/strataportal/internal/app/store/storeutil"
	"github.com/dalemusser/strataportal/internal/app/system/normalize"
	"github.com/dalemusser/strataportal/internal/app/system/wizard"
	"github.com/dalemusser/strataportal/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Workflow is the examination status machine:
//
//	draft -> scheduled -> in_progress -> completed -> results_published
//
// A scheduled exam may go back to draft, and draft or scheduled exams may be
// cancelled. results_published and cancelled are terminal.
var Workflow = wizard.Must(wizard.New(models.ExamDraft,
	[]wizard.Step{
		models.ExamDraft,
		models.ExamScheduled,
		models.ExamInProgress,
		models.ExamCompleted,
		models.ExamResultsPublished,
		models.ExamCancelled,
	},
	map[wizard.Step][]wizard.Step{
		models.ExamDraft:      {models.ExamScheduled, models.ExamCancelled},
		models.ExamScheduled:  {models.ExamInProgress, models.ExamDraft, models.ExamCancelled},
		models.ExamInProgress: {models.ExamCompleted},
		models.ExamCompleted:  {models.ExamResultsPublished},
	},
))

var (
	// ErrStatusChanged is returned when another request moved the exam first.
	ErrStatusChanged = errors.New("the examination status changed; reload and try again")
	// ErrLocked is returned when editing an exam that has left draft/scheduled.
	ErrLocked = errors.New("only draft or scheduled examinations can be edited")
)

// Store provides access to the examinations collection.
type Store struct {
	storeutil.Collection[models.Examination]
}

// New creates an examination store.
func New(db *mongo.Database) *Store {
	return &Store{storeutil.NewCollection[models.Examination](
		db.Collection("examinations"),
		bson.D{{Key: "date", Value: 1}, {Key: "code", Value: 1}},
	)}
}

// Input holds the editable fields of an examination.
type Input struct {
	Code     string
	Course   string
	Semester int
	Type     string
	Date     time.Time
}

// Create inserts a new examination in draft status.
func (s *Store) Create(ctx context.Context, in Input) (*models.Examination, error) {
	now := time.Now().UTC()
	e := models.Examination{
		ID:        primitive.NewObjectID(),
		Code:      normalize.Code(in.Code),
		Course:    normalize.Name(in.Course),
		Semester:  in.Semester,
		Type:      in.Type,
		Date:      in.Date,
		Status:    string(Workflow.Start()),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Insert(ctx, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Editable reports whether an exam in status may still be edited.
func Editable(status string) bool {
	return status == models.ExamDraft || status == models.ExamScheduled
}

// Update replaces the editable fields. Exams past scheduled are locked.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, in Input) error {
	res, err := s.Raw().UpdateOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": []string{models.ExamDraft, models.ExamScheduled}}},
		bson.M{"$set": bson.M{
			"code":       normalize.Code(in.Code),
			"course":     normalize.Name(in.Course),
			"semester":   in.Semester,
			"type":       in.Type,
			"date":       in.Date,
			"updated_at": time.Now().UTC(),
		}})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return storeutil.ErrDuplicate
		}
		return err
	}
	if res.MatchedCount == 0 {
		if _, gerr := s.Get(ctx, id); gerr != nil {
			return gerr
		}
		return ErrLocked
	}
	return nil
}

// Transition moves the exam with id to status to. The move is validated
// against Workflow and applied only if the stored status is still the one
// that was validated. It returns the previous status.
func (s *Store) Transition(ctx context.Context, id primitive.ObjectID, to string) (string, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if err := Workflow.Check(wizard.Step(e.Status), wizard.Step(to)); err != nil {
		return e.Status, err
	}
	res, err := s.Raw().UpdateOne(ctx,
		bson.M{"_id": id, "status": e.Status},
		bson.M{"$set": bson.M{"status": to, "updated_at": time.Now().UTC()}})
	if err != nil {
		return e.Status, err
	}
	if res.MatchedCount == 0 {
		return e.Status, ErrStatusChanged
	}
	return e.Status, nil
}

// CountByStatus returns the number of exams per status.
func (s *Store) CountByStatus(ctx context.Context) (map[string]int, error) {
	all, err := s.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int)
	for _, e := range all {
		out[e.Status]++
	}
	return out, nil
}
