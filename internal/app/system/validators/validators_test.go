package validators

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/dalemusser/strataportal/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestEnsureAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll() error = %v", err)
	}
	if err := EnsureAll(ctx, db); err != nil {
		t.Fatalf("second EnsureAll() error = %v", err)
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames() error = %v", err)
	}
	for _, c := range collections() {
		if !slices.Contains(names, c.name) {
			t.Errorf("collection %q not created", c.name)
		}
	}
}

func TestEnsureAll_RejectsBadDocuments(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll() error = %v", err)
	}

	tests := []struct {
		coll string
		doc  bson.M
	}{
		{"examinations", bson.M{"code": "EX1", "course": "CS101", "type": "internal", "status": "archived"}},
		{"schedule_slots", bson.M{"day": "Monday", "start": "9:00", "end": "10:00", "room": "B1"}},
		{"institutions", bson.M{"code": "AU01", "name": "Anna", "category": "Law"}},
	}
	for _, tt := range tests {
		t.Run(tt.coll, func(t *testing.T) {
			if _, err := db.Collection(tt.coll).InsertOne(ctx, tt.doc); err == nil {
				t.Errorf("insert into %s accepted an invalid document", tt.coll)
			}
		})
	}

	ok := bson.M{"day": "Monday", "start": "09:00", "end": "10:00", "room": "B1", "created_at": time.Now()}
	if _, err := db.Collection("schedule_slots").InsertOne(ctx, ok); err != nil {
		t.Errorf("valid slot rejected: %v", err)
	}
}

func TestErrorClassifiers(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		exists      bool
		unsupported bool
	}{
		{"nil", nil, false, false},
		{"namespace code", mongo.CommandError{Code: 48, Message: "ns"}, true, false},
		{"namespace text", errors.New("collection already exists"), true, false},
		{"no such command", mongo.CommandError{Code: 59, Message: "no such command: collMod"}, false, true},
		{"not implemented", mongo.CommandError{Code: 115, Message: "x"}, false, true},
		{"not supported text", errors.New("feature not supported"), false, true},
		{"other", errors.New("boom"), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNamespaceExistsErr(tt.err); got != tt.exists {
				t.Errorf("isNamespaceExistsErr() = %v, want %v", got, tt.exists)
			}
			if got := isUnsupported(tt.err); got != tt.unsupported {
				t.Errorf("isUnsupported() = %v, want %v", got, tt.unsupported)
			}
		})
	}
}

func TestUsersSchema(t *testing.T) {
	js := usersSchema()["$jsonSchema"].(bson.M)
	props := js["properties"].(bson.M)
	roles := props["role"].(bson.M)["enum"].(bson.A)
	if len(roles) != 3 {
		t.Errorf("role enum = %v, want 3 roles", roles)
	}
}
