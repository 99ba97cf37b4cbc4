// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/dalemusser/strataportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// collection pairs a collection with its JSON-Schema validator (nil for none).
type collection struct {
	name   string
	schema bson.M
}

func collections() []collection {
	return []collection{
		{"users", usersSchema()},
		{"institutions", institutionsSchema()},
		{"manuals", manualsSchema()},
		{"criteria", nil},
		{"metrics", metricsSchema()},
		{"examinations", examinationsSchema()},
		{"schedule_slots", slotsSchema()},
		{"obe_configs", nil},
		{"data_labels", nil},
		{"label_drafts", nil},
		{"audit_logs", nil},
	}
}

// EnsureAll creates the portal's collections and attaches JSON-Schema
// validators. Servers without collMod support (some DocumentDB versions)
// are logged and skipped.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	existing, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		existing = nil // fall back to create-and-handle-race
	}

	var problems []string
	for _, c := range collections() {
		if !slices.Contains(existing, c.name) {
			if err := db.CreateCollection(ctx, c.name); err != nil && !isNamespaceExistsErr(err) {
				problems = append(problems, c.name+": "+err.Error())
				continue
			}
			zap.L().Info("created collection", zap.String("collection", c.name))
		}
		if c.schema == nil {
			continue
		}
		if err := setValidator(ctx, db, c.name, c.schema); err != nil {
			if isUnsupported(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", c.name))
				continue
			}
			problems = append(problems, c.name+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, schema bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: schema},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	return db.RunCommand(ctx, cmd).Err()
}

func commandError(err error, codes ...int32) (mongo.CommandError, bool) {
	var ce mongo.CommandError
	if errors.As(err, &ce) && slices.Contains(codes, ce.Code) {
		return ce, true
	}
	return ce, false
}

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	if _, ok := commandError(err, 48); ok {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

// isUnsupported matches "no such command" (59) and "not implemented" (115).
func isUnsupported(err error) bool {
	if err == nil {
		return false
	}
	if _, ok := commandError(err, 59, 115); ok {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "no such command") ||
		strings.Contains(s, "not implemented") ||
		strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

func enum(values []string) bson.M {
	a := make(bson.A, len(values))
	for i, v := range values {
		a[i] = v
	}
	return bson.M{"enum": a}
}

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func object(required []string, props bson.M) bson.M {
	req := make(bson.A, len(required))
	for i, r := range required {
		req[i] = r
	}
	return bson.M{"$jsonSchema": bson.M{
		"bsonType":   "object",
		"required":   req,
		"properties": props,
	}}
}

func usersSchema() bson.M {
	methods := make([]string, len(models.AllAuthMethods))
	for i, m := range models.AllAuthMethods {
		methods[i] = m.Value
	}
	return object([]string{"full_name", "login_id", "role", "status", "auth_method"}, bson.M{
		"full_name":   nonBlank,
		"login_id":    nonBlank,
		"login_id_ci": nonBlank,
		"role":        enum(models.AllRoles()),
		"status":      enum([]string{models.StatusActive, models.StatusDisabled}),
		"auth_method": enum(methods),
	})
}

func institutionsSchema() bson.M {
	return object([]string{"code", "name", "category"}, bson.M{
		"code":     nonBlank,
		"name":     nonBlank,
		"category": enum(models.InstitutionCategories()),
	})
}

func manualsSchema() bson.M {
	return object([]string{"manual_id", "title", "agency"}, bson.M{
		"manual_id": nonBlank,
		"title":     nonBlank,
		"agency":    enum(models.Agencies()),
	})
}

func metricsSchema() bson.M {
	return object([]string{"criterion_id", "number", "type"}, bson.M{
		"number":    nonBlank,
		"type":      enum([]string{models.MetricQualitative, models.MetricQuantitative}),
		"max_marks": bson.M{"bsonType": bson.A{"double", "int", "long"}, "minimum": 0},
	})
}

func examinationsSchema() bson.M {
	return object([]string{"code", "course", "type", "status"}, bson.M{
		"code":   nonBlank,
		"course": nonBlank,
		"type":   enum(models.ExamTypes()),
		"status": enum(models.ExamStatuses()),
	})
}

func slotsSchema() bson.M {
	clock := bson.M{"bsonType": "string", "pattern": "^([01][0-9]|2[0-3]):[0-5][0-9]$"}
	return object([]string{"day", "start", "end", "room"}, bson.M{
		"day":   enum(models.Weekdays()),
		"start": clock,
		"end":   clock,
		"room":  nonBlank,
	})
}
