// internal/app/store/obe/obestore.go
package obestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/strataportal/internal/app/store/storeutil"
	"github.com/dalemusser/strataportal/internal/app/system/normalize"
	"github.com/dalemusser/strataportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Section names, matching the OBE screen's accordion steps.
const (
	SectionProgramOutcomes = "program_outcomes"
	SectionCourseOutcomes  = "course_outcomes"
	SectionMappings        = "mappings"
	SectionThresholds      = "thresholds"
)

// DefaultThresholds are used until a programme saves its own.
var DefaultThresholds = models.Thresholds{Target: 60, Level1: 50, Level2: 60, Level3: 70}

// Store provides access to the obe_configs collection.
type Store struct {
	storeutil.Collection[models.OBEConfig]
}

// New creates an OBE store.
func New(db *mongo.Database) *Store {
	return &Store{storeutil.NewCollection[models.OBEConfig](
		db.Collection("obe_configs"),
		bson.D{{Key: "program", Value: 1}},
	)}
}

// Get loads the configuration of program. A programme with nothing saved
// yet returns an empty configuration with default thresholds.
func (s *Store) Get(ctx context.Context, program string) (models.OBEConfig, error) {
	program = normalize.Code(program)
	cfg, err := s.FindOne(ctx, bson.M{"program": program})
	if errors.Is(err, storeutil.ErrNotFound) {
		return models.OBEConfig{Program: program, Thresholds: DefaultThresholds}, nil
	}
	if err != nil {
		return models.OBEConfig{}, err
	}
	return *cfg, nil
}

// SaveSection upserts one section of program's configuration. value must
// match the section: []models.Outcome, []models.COPOMapping or
// models.Thresholds.
func (s *Store) SaveSection(ctx context.Context, program, section string, value any) error {
	program = normalize.Code(program)
	set := bson.M{"updated_at": time.Now().UTC()}
	set[section] = value

	setOnInsert := bson.M{}
	if section != SectionThresholds {
		setOnInsert[SectionThresholds] = DefaultThresholds
	}

	update := bson.M{"$set": set}
	if len(setOnInsert) > 0 {
		update["$setOnInsert"] = setOnInsert
	}
	_, err := s.Raw().UpdateOne(ctx, bson.M{"program": program}, update, options.Update().SetUpsert(true))
	return err
}

// Programs returns the programme codes that have a configuration.
func (s *Store) Programs(ctx context.Context) ([]string, error) {
	all, err := s.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(all))
	for _, c := range all {
		out = append(out, c.Program)
	}
	return out, nil
}
