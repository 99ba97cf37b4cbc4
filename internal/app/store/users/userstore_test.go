package userstore

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/strataportal/internal/app/store/storeutil"
	"github.com/dalemusser/strataportal/internal/domain/models"
	"github.com/dalemusser/strataportal/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func createUser(t *testing.T, store *Store, loginID, role string) *models.User {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u, err := store.Create(ctx, CreateInput{
		FullName:   "  Test User ",
		LoginID:    loginID,
		AuthMethod: models.AuthTrust,
		Role:       role,
		Department: "Computer Science",
	})
	if err != nil {
		t.Fatalf("Create(%q) error = %v", loginID, err)
	}
	return u
}

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)

	u := createUser(t, store, " IQAC.Coordinator ", models.RoleCoordinator)

	if u.ID.IsZero() || u.CreatedAt.IsZero() || u.UpdatedAt.IsZero() {
		t.Error("Create() should set ID and timestamps")
	}
	if u.Status != models.StatusActive {
		t.Errorf("Status = %q, want %q", u.Status, models.StatusActive)
	}
	if u.LoginID != "iqac.coordinator" {
		t.Errorf("LoginID = %q, want iqac.coordinator", u.LoginID)
	}
	if u.FullName != "Test User" {
		t.Errorf("FullName = %q, want %q", u.FullName, "Test User")
	}
	if u.FullNameCI == "" || u.LoginIDCI == "" {
		t.Error("Create() should set folded fields")
	}
}

func TestStore_Create_Rejects(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tests := []struct {
		name string
		in   CreateInput
	}{
		{"bad role", CreateInput{FullName: "X", LoginID: "x1", AuthMethod: models.AuthTrust, Role: "principal"}},
		{"bad auth", CreateInput{FullName: "X", LoginID: "x2", AuthMethod: "google", Role: models.RoleFaculty}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.Create(ctx, tt.in); err == nil {
				t.Error("Create() should fail")
			}
		})
	}
}

func TestStore_Create_DuplicateLoginID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	createUser(t, store, "faculty01", models.RoleFaculty)

	_, err := store.Create(ctx, CreateInput{
		FullName:   "Other",
		LoginID:    "FACULTY01",
		AuthMethod: models.AuthTrust,
		Role:       models.RoleFaculty,
	})
	if !errors.Is(err, ErrDuplicateLoginID) {
		t.Errorf("Create() error = %v, want ErrDuplicateLoginID", err)
	}
}

func TestStore_GetByLoginID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	want := createUser(t, store, "hod.cse", models.RoleFaculty)

	got, err := store.GetByLoginID(ctx, "  HOD.CSE ")
	if err != nil {
		t.Fatalf("GetByLoginID() error = %v", err)
	}
	if got.ID != want.ID {
		t.Errorf("GetByLoginID() ID = %v, want %v", got.ID, want.ID)
	}

	if _, err := store.GetByLoginID(ctx, "nobody"); !errors.Is(err, storeutil.ErrNotFound) {
		t.Errorf("GetByLoginID(nobody) error = %v, want ErrNotFound", err)
	}
}

func TestStore_Update(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := createUser(t, store, "faculty02", models.RoleFaculty)

	err := store.Update(ctx, u.ID, UpdateInput{
		FullName:   "Dr. Meena",
		AuthMethod: models.AuthPassword,
		Role:       models.RoleCoordinator,
		Department: "IQAC",
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := store.Get(ctx, u.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.FullName != "Dr. Meena" || got.Role != models.RoleCoordinator || got.Department != "IQAC" {
		t.Errorf("after Update() = %+v", got)
	}
	if got.LoginID != "faculty02" {
		t.Errorf("Update() changed LoginID to %q", got.LoginID)
	}

	if err := store.Update(ctx, u.ID, UpdateInput{FullName: "x", AuthMethod: models.AuthTrust, Role: "root"}); err == nil {
		t.Error("Update() with bad role should fail")
	}
	if err := store.Update(ctx, primitive.NewObjectID(), UpdateInput{FullName: "x", AuthMethod: models.AuthTrust, Role: models.RoleFaculty}); !errors.Is(err, storeutil.ErrNotFound) {
		t.Errorf("Update(missing) error = %v, want ErrNotFound", err)
	}
}

func TestStore_SetStatusAndPassword(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := createUser(t, store, "faculty03", models.RoleFaculty)

	if err := store.SetStatus(ctx, u.ID, " Disabled "); err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}
	if err := store.UpdatePassword(ctx, u.ID, "hash"); err != nil {
		t.Fatalf("UpdatePassword() error = %v", err)
	}

	got, _ := store.Get(ctx, u.ID)
	if got.Status != models.StatusDisabled {
		t.Errorf("Status = %q, want disabled", got.Status)
	}
	if got.PasswordHash == nil || *got.PasswordHash != "hash" {
		t.Error("UpdatePassword() did not store the hash")
	}
}

func TestStore_CountActiveAdmins(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := createUser(t, store, "admin1", models.RoleAdmin)
	createUser(t, store, "admin2", models.RoleAdmin)
	createUser(t, store, "faculty04", models.RoleFaculty)

	n, err := store.CountActiveAdmins(ctx)
	if err != nil || n != 2 {
		t.Fatalf("CountActiveAdmins() = %d, %v, want 2", n, err)
	}

	_ = store.SetStatus(ctx, a.ID, models.StatusDisabled)
	if n, _ := store.CountActiveAdmins(ctx); n != 1 {
		t.Errorf("CountActiveAdmins() after disable = %d, want 1", n)
	}
}

func TestStore_KeepsLastAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := createUser(t, store, "admin1", models.RoleAdmin)
	b := createUser(t, store, "admin2", models.RoleAdmin)
	demote := UpdateInput{FullName: "Ex Admin", AuthMethod: models.AuthTrust, Role: models.RoleFaculty}

	if err := store.Update(ctx, a.ID, demote); err != nil {
		t.Fatalf("Update() with another admin left = %v", err)
	}
	if err := store.Update(ctx, b.ID, demote); !errors.Is(err, ErrLastAdmin) {
		t.Errorf("Update(last admin) error = %v, want ErrLastAdmin", err)
	}
	if err := store.SetStatus(ctx, b.ID, models.StatusDisabled); !errors.Is(err, ErrLastAdmin) {
		t.Errorf("SetStatus(last admin) error = %v, want ErrLastAdmin", err)
	}
	got, _ := store.Get(ctx, b.ID)
	if got.Role != models.RoleAdmin || got.Status != models.StatusActive {
		t.Errorf("last admin after refused changes: role %q status %q", got.Role, got.Status)
	}

	// Another admin is disabled by a concurrent request.
	c := createUser(t, store, "admin3", models.RoleAdmin)
	if _, err := store.Raw().UpdateOne(ctx, bson.M{"_id": b.ID}, bson.M{"$set": bson.M{"status": models.StatusDisabled}}); err != nil {
		t.Fatalf("UpdateOne: %v", err)
	}
	if err := store.SetStatus(ctx, c.ID, models.StatusDisabled); !errors.Is(err, ErrLastAdmin) {
		t.Errorf("SetStatus after concurrent disable = %v, want ErrLastAdmin", err)
	}
	if n, _ := store.CountActiveAdmins(ctx); n != 1 {
		t.Errorf("CountActiveAdmins() = %d, want 1", n)
	}

	// Changes to users who were not active admins are never refused.
	if err := store.SetStatus(ctx, b.ID, models.StatusDisabled); err != nil {
		t.Errorf("SetStatus(disabled admin) = %v", err)
	}
}

func TestFetcher_FetchUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := New(db)
	f := NewFetcher(store, zap.NewNop())

	u := createUser(t, store, "faculty05", models.RoleFaculty)

	got := f.FetchUser(context.Background(), u.ID.Hex())
	if got == nil {
		t.Fatal("FetchUser() = nil for an active user")
	}
	if got.LoginID != "faculty05" || got.Role != models.RoleFaculty || got.Department != "Computer Science" {
		t.Errorf("FetchUser() = %+v", got)
	}

	tests := []struct {
		name string
		id   string
	}{
		{"malformed", "not-an-id"},
		{"missing", primitive.NewObjectID().Hex()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if f.FetchUser(context.Background(), tt.id) != nil {
				t.Error("FetchUser() should return nil")
			}
		})
	}

	ctx, cancel := testutil.TestContext()
	defer cancel()
	_ = store.SetStatus(ctx, u.ID, models.StatusDisabled)
	if f.FetchUser(context.Background(), u.ID.Hex()) != nil {
		t.Error("FetchUser() should return nil for a disabled user")
	}
}
