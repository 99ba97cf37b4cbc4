// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup and by test database setup. Each ensure*
function is idempotent. Errors are aggregated so every problem is reported
and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	for _, step := range []struct {
		name string
		fn   func(context.Context, *mongo.Database) error
	}{
		{"users", ensureUsers},
		{"institutions", ensureInstitutions},
		{"manuals", ensureManuals},
		{"criteria", ensureCriteria},
		{"metrics", ensureMetrics},
		{"examinations", ensureExaminations},
		{"schedule_slots", ensureScheduleSlots},
		{"obe_configs", ensureOBEConfigs},
		{"data_labels", ensureDataLabels},
		{"label_drafts", ensureLabelDrafts},
		{"audit_logs", ensureAuditLogs},
		{"login_failures", ensureLoginFailures},
	} {
		if err := step.fn(ctx, db); err != nil {
			problems = append(problems, step.name+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Reconciliation                                                              */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
	TTL    *int32 `bson:"expireAfterSeconds,omitempty"`
}

// wanted is the comparable shape of a desired index.
type wanted struct {
	name   string
	sig    string
	unique bool
	ttl    int32 // -1 when the index does not expire
}

func describe(m mongo.IndexModel) wanted {
	w := wanted{sig: keySig(m.Keys.(bson.D)), ttl: -1}
	if o := m.Options; o != nil {
		if o.Name != nil {
			w.name = *o.Name
		}
		if o.Unique != nil {
			w.unique = *o.Unique
		}
		if o.ExpireAfterSeconds != nil {
			w.ttl = *o.ExpireAfterSeconds
		}
	}
	return w
}

func (w wanted) matches(ex existingIndex) bool {
	unique := ex.Unique != nil && *ex.Unique
	ttl := int32(-1)
	if ex.TTL != nil {
		ttl = *ex.TTL
	}
	return unique == w.unique && ttl == w.ttl
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	return strings.Contains(err.Error(), "E11000")
}

func listIndexes(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]existingIndex{}
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()), zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out, cur.Err()
}

// ensureIndexSet makes coll carry every index in models. An index with the
// same keys but different unique/TTL options is dropped and recreated; one
// that already matches is reused whatever its name.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	existing, err := listIndexes(ctx, coll)
	if err != nil {
		// A missing collection lists nothing; CreateOne will create it.
		existing = map[string]existingIndex{}
	}

	var errs []string
	for _, m := range models {
		w := describe(m)
		start := time.Now()
		log := zap.L().With(
			zap.String("collection", coll.Name()),
			zap.String("name", w.name),
			zap.String("keys", w.sig))

		if ex, ok := existing[w.sig]; ok {
			if w.matches(ex) {
				log.Debug("reusing existing index", zap.String("existing_name", ex.Name))
				continue
			}
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				log.Warn("drop existing index failed", zap.Error(err))
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), w.name, err))
				continue
			}
			log.Info("dropped index with stale options", zap.String("existing_name", ex.Name))
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if w.unique && isDuplicateKeyErr(err) {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), w.name))
			} else {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), w.name, err))
			}
			log.Warn("index ensure failed", zap.Error(err))
			continue
		}
		log.Info("index ensured",
			zap.Bool("unique", w.unique),
			zap.String("took", time.Since(start).String()))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func unique(name string) *options.IndexOptions {
	return options.Index().SetUnique(true).SetName(name)
}

func named(name string) *options.IndexOptions {
	return options.Index().SetName(name)
}

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("users"), []mongo.IndexModel{
		{Keys: bson.D{{Key: "login_id_ci", Value: 1}}, Options: unique("uniq_users_loginidci")},
		{Keys: bson.D{{Key: "role", Value: 1}, {Key: "status", Value: 1}}, Options: named("idx_users_role_status")},
	})
}

func ensureInstitutions(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("institutions"), []mongo.IndexModel{
		{Keys: bson.D{{Key: "code", Value: 1}}, Options: unique("uniq_institutions_code")},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "name_ci", Value: 1}}, Options: named("idx_institutions_category_name")},
	})
}

func ensureManuals(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("manuals"), []mongo.IndexModel{
		{Keys: bson.D{{Key: "manual_id", Value: 1}}, Options: unique("uniq_manuals_manualid")},
		{Keys: bson.D{{Key: "institution_category", Value: 1}}, Options: named("idx_manuals_category")},
	})
}

func ensureCriteria(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("criteria"), []mongo.IndexModel{
		// Criterion numbers are unique within a manual.
		{Keys: bson.D{{Key: "manual_id", Value: 1}, {Key: "number", Value: 1}}, Options: unique("uniq_criteria_manual_number")},
	})
}

func ensureMetrics(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("metrics"), []mongo.IndexModel{
		{Keys: bson.D{{Key: "criterion_id", Value: 1}, {Key: "number", Value: 1}}, Options: unique("uniq_metrics_criterion_number")},
	})
}

func ensureExaminations(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("examinations"), []mongo.IndexModel{
		{Keys: bson.D{{Key: "code", Value: 1}}, Options: unique("uniq_examinations_code")},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "date", Value: 1}}, Options: named("idx_examinations_status_date")},
	})
}

func ensureScheduleSlots(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("schedule_slots"), []mongo.IndexModel{
		// Room availability checks
		{Keys: bson.D{{Key: "day", Value: 1}, {Key: "room", Value: 1}, {Key: "start", Value: 1}}, Options: named("idx_slots_day_room_start")},
	})
}

func ensureOBEConfigs(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("obe_configs"), []mongo.IndexModel{
		{Keys: bson.D{{Key: "program", Value: 1}}, Options: unique("uniq_obe_program")},
	})
}

func ensureDataLabels(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("data_labels"), []mongo.IndexModel{
		{Keys: bson.D{{Key: "manual_id", Value: 1}, {Key: "created_at", Value: -1}}, Options: named("idx_datalabels_manual_created")},
	})
}

func ensureLabelDrafts(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("label_drafts"), []mongo.IndexModel{
		// TTL: documents are removed once expires_at has passed
		{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: named("ttl_label_drafts_expires").SetExpireAfterSeconds(0)},
		{Keys: bson.D{{Key: "owner_id", Value: 1}}, Options: named("idx_label_drafts_owner")},
	})
}

func ensureAuditLogs(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("audit_logs"), []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}, Options: named("idx_audit_created")},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "created_at", Value: -1}}, Options: named("idx_audit_category_created")},
		{Keys: bson.D{{Key: "entity", Value: 1}, {Key: "created_at", Value: -1}}, Options: named("idx_audit_entity_created")},
		{Keys: bson.D{{Key: "actor_id", Value: 1}, {Key: "created_at", Value: -1}}, Options: named("idx_audit_actor_created")},
	})
}

func ensureLoginFailures(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("login_failures"), []mongo.IndexModel{
		// TTL: forget a login ID a day after its last failure
		{Keys: bson.D{{Key: "last_failure", Value: 1}}, Options: named("ttl_login_failures_last").SetExpireAfterSeconds(86400)},
	})
}
