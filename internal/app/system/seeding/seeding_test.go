package seeding

import (
	"testing"

	criteriastore "github.com/dalemusser/strataportal/internal/app/store/criteria"
	examstore "github.com/dalemusser/strataportal/internal/app/store/examinations"
	institutionstore "github.com/dalemusser/strataportal/internal/app/store/institutions"
	obestore "github.com/dalemusser/strataportal/internal/app/store/obe"
	userstore "github.com/dalemusser/strataportal/internal/app/store/users"
	"github.com/dalemusser/strataportal/internal/app/system/authutil"
	"github.com/dalemusser/strataportal/internal/domain/models"
	"github.com/dalemusser/strataportal/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func TestDemoYAML_Decodes(t *testing.T) {
	var data demoData
	if err := yaml.Unmarshal(demoYAML, &data); err != nil {
		t.Fatalf("decode demo.yaml: %v", err)
	}
	if len(data.Institutions) == 0 || len(data.Manuals) == 0 || len(data.Schedule) == 0 {
		t.Fatalf("demo.yaml is missing sections: %+v", data)
	}
	for _, in := range data.Institutions {
		if !models.IsValidCategory(in.Category) {
			t.Errorf("institution %s has unknown category %q", in.Code, in.Category)
		}
	}
	for _, e := range data.Examinations {
		if !models.IsValidExamType(e.Type) {
			t.Errorf("examination %s has unknown type %q", e.Code, e.Type)
		}
	}
	if data.Schedule[0].Day != "Monday" || data.Schedule[0].Start != "09:00" {
		t.Errorf("first slot = %+v", data.Schedule[0])
	}
}

func TestSeedAll_AdminAndDemo(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cfg := Config{AdminLoginID: "Admin", AdminName: "Portal Admin", AdminPassword: "s3cure-portal", Demo: true}
	if err := SeedAll(ctx, db, cfg, zap.NewNop()); err != nil {
		t.Fatalf("SeedAll() error = %v", err)
	}
	// Second run must be a no-op.
	if err := SeedAll(ctx, db, cfg, zap.NewNop()); err != nil {
		t.Fatalf("SeedAll() second run error = %v", err)
	}

	admin, err := userstore.New(db).GetByLoginID(ctx, "admin")
	if err != nil {
		t.Fatalf("admin not seeded: %v", err)
	}
	if admin.Role != models.RoleAdmin || admin.AuthMethod != models.AuthPassword {
		t.Errorf("admin = %+v", admin)
	}
	if admin.PasswordHash == nil || !authutil.CheckPassword("s3cure-portal", *admin.PasswordHash) {
		t.Error("admin password hash does not match")
	}

	n, _ := institutionstore.New(db).Count(ctx, nil)
	if n != 6 {
		t.Errorf("institutions = %d, want 6", n)
	}
	crits, _ := criteriastore.New(db).ListCriteria(ctx, primitive.NilObjectID)
	if len(crits) != 2 {
		t.Errorf("criteria = %d, want 2", len(crits))
	}
	counts, _ := examstore.New(db).CountByStatus(ctx)
	if counts[models.ExamDraft] != 4 {
		t.Errorf("draft examinations = %d, want 4", counts[models.ExamDraft])
	}
	cfgOBE, _ := obestore.New(db).Get(ctx, "be-cse")
	if len(cfgOBE.ProgramOutcomes) != 2 || cfgOBE.Thresholds != obestore.DefaultThresholds {
		t.Errorf("obe config = %+v", cfgOBE)
	}
}

func TestSeedAll_TrustAdminWithoutDemo(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := SeedAll(ctx, db, Config{AdminLoginID: "root"}, zap.NewNop()); err != nil {
		t.Fatalf("SeedAll() error = %v", err)
	}
	admin, err := userstore.New(db).GetByLoginID(ctx, "root")
	if err != nil {
		t.Fatalf("admin not seeded: %v", err)
	}
	if admin.AuthMethod != models.AuthTrust || admin.FullName != "Administrator" {
		t.Errorf("admin = %+v", admin)
	}
	if n, _ := institutionstore.New(db).Count(ctx, nil); n != 0 {
		t.Errorf("demo data loaded with Demo=false: %d institutions", n)
	}
}
