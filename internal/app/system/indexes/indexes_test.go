package indexes_test

import (
	"testing"

	"github.com/dalemusser/strataportal/internal/app/system/indexes"
	"github.com/dalemusser/strataportal/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t) // runs EnsureAll once
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("second EnsureAll() error: %v", err)
	}
}

func TestEnsureAll_DraftTTL(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cur, err := db.Collection("label_drafts").Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	var specs []bson.M
	if err := cur.All(ctx, &specs); err != nil {
		t.Fatalf("decode: %v", err)
	}

	found := false
	for _, s := range specs {
		if s["name"] == "ttl_label_drafts_expires" {
			found = true
			if _, ok := s["expireAfterSeconds"]; !ok {
				t.Error("draft index has no expireAfterSeconds")
			}
		}
	}
	if !found {
		t.Error("TTL index on label_drafts not created")
	}
}

func TestEnsureAll_UniqueCodes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	coll := db.Collection("institutions")
	if _, err := coll.InsertOne(ctx, bson.M{"code": "AU01"}); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := coll.InsertOne(ctx, bson.M{"code": "AU01"}); err == nil {
		t.Error("duplicate institution code accepted")
	}
}
