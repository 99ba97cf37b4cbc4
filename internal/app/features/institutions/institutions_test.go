package institutions

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	institutionstore "github.com/dalemusser/strataportal/internal/app/store/institutions"
	"github.com/dalemusser/strataportal/internal/app/system/auth"
	"github.com/dalemusser/strataportal/internal/app/system/tableview"
	"github.com/dalemusser/strataportal/internal/domain/models"
	"github.com/dalemusser/strataportal/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*Handler, *institutionstore.Store) {
	t.Helper()
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	h := NewHandler(db, nil, nil, zap.NewNop(), tableview.WithPageSizes(5, 10), tableview.WithPageSize(5))
	return h, institutionstore.New(db)
}

func seed(t *testing.T, store *institutionstore.Store, n int) []*models.Institution {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cats := models.InstitutionCategories()
	var out []*models.Institution
	for i := 0; i < n; i++ {
		inst, err := store.Create(ctx, institutionstore.Input{
			Code:     "INST-" + string(rune('A'+i)),
			Name:     "College " + string(rune('A'+i)),
			Category: cats[i%len(cats)],
			City:     "Chennai",
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		out = append(out, inst)
	}
	return out
}

func validForm() url.Values {
	return url.Values{
		"code":        {"psg-tech"},
		"name":        {"PSG College of Technology"},
		"category":    {models.CategoryEngineering},
		"affiliation": {"Anna University"},
		"city":        {"Coimbatore"},
		"established": {"1951"},
	}
}

func TestList(t *testing.T) {
	h, store := newTestHandler(t)
	seed(t, store, 7)

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/institutions", testutil.CoordinatorUser())
	rec := testutil.NewRecorder()
	h.list(rec, testutil.WithCSRFToken(req))

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "<html")
	rec.AssertContains(t, "INST-A")
	rec.AssertContains(t, "Page 1 of 2")
	if strings.Contains(rec.Body.String(), "INST-F") {
		t.Error("first page should hold five rows")
	}
}

func TestList_Partial(t *testing.T) {
	h, store := newTestHandler(t)
	seed(t, store, 3)

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/institutions?q=college+b", testutil.AdminUser())
	req.Header.Set("HX-Request", "true")
	req.Header.Set("HX-Target", tableview.TableTarget)
	rec := testutil.NewRecorder()
	h.list(rec, testutil.WithCSRFToken(req))

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `id="table-card"`)
	rec.AssertContains(t, "INST-B")
	body := rec.Body.String()
	if strings.Contains(body, "<html") {
		t.Error("partial response should not include the layout")
	}
	if strings.Contains(body, "INST-A") {
		t.Error("filter should exclude INST-A")
	}
}

func TestCreate(t *testing.T) {
	h, store := newTestHandler(t)

	rec := testutil.NewRecorder()
	h.create(rec, testutil.NewFormRequest("/institutions/new", validForm(), testutil.AdminUser()))

	rec.AssertStatus(t, http.StatusSeeOther)
	rec.AssertRedirect(t, "/institutions")

	ctx, cancel := testutil.TestContext()
	defer cancel()
	inst, err := store.GetByCode(ctx, "PSG-TECH")
	if err != nil {
		t.Fatalf("GetByCode: %v", err)
	}
	if inst.Established != 1951 || inst.City != "Coimbatore" {
		t.Errorf("stored %+v", inst)
	}
}

func TestCreate_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(url.Values)
		field string
	}{
		{"missing name", func(f url.Values) { f.Set("name", " ") }, "Name is required."},
		{"bad code", func(f url.Values) { f.Set("code", "A") }, "Code may use only"},
		{"bad category", func(f url.Values) { f.Set("category", "Law") }, "Choose a valid category."},
		{"future year", func(f url.Values) { f.Set("established", "3000") }, "Established must be a year"},
		{"year text", func(f url.Values) { f.Set("established", "old") }, "Established must be a year"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, store := newTestHandler(t)
			form := validForm()
			tt.edit(form)

			rec := testutil.NewRecorder()
			h.create(rec, testutil.NewFormRequest("/institutions/new", form, testutil.AdminUser()))

			rec.AssertStatus(t, http.StatusOK)
			rec.AssertContains(t, tt.field)

			ctx, cancel := testutil.TestContext()
			defer cancel()
			all, _ := store.List(ctx, nil)
			if len(all) != 0 {
				t.Errorf("stored %d institutions, want 0", len(all))
			}
		})
	}
}

func TestCreate_DuplicateCode(t *testing.T) {
	h, store := newTestHandler(t)
	seed(t, store, 1)

	form := validForm()
	form.Set("code", "inst-a")
	rec := testutil.NewRecorder()
	h.create(rec, testutil.NewFormRequest("/institutions/new", form, testutil.AdminUser()))

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "already exists")
}

func TestShowAndEdit(t *testing.T) {
	h, store := newTestHandler(t)
	insts := seed(t, store, 2)
	id := insts[1].ID.Hex()

	rec := testutil.NewRecorder()
	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/institutions/"+id, testutil.AdminUser())
	h.show(rec, testutil.WithChiParam(testutil.WithCSRFToken(req), "id", id))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "College B")

	rec = testutil.NewRecorder()
	req = testutil.NewAuthenticatedRequest(http.MethodGet, "/institutions/"+id+"/edit", testutil.AdminUser())
	h.showEdit(rec, testutil.WithChiParam(testutil.WithCSRFToken(req), "id", id))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, `action="/institutions/`+id+`"`)
}

func TestShow_NotFound(t *testing.T) {
	h, _ := newTestHandler(t)

	for _, id := range []string{"not-an-id", primitive.NewObjectID().Hex()} {
		rec := testutil.NewRecorder()
		req := testutil.NewAuthenticatedRequest(http.MethodGet, "/institutions/"+id, testutil.AdminUser())
		h.show(rec, testutil.WithChiParam(req, "id", id))
		rec.AssertStatus(t, http.StatusNotFound)
	}
}

func TestUpdate(t *testing.T) {
	h, store := newTestHandler(t)
	insts := seed(t, store, 1)
	id := insts[0].ID.Hex()

	form := validForm()
	form.Set("code", "INST-A")
	form.Set("name", "Renamed College")
	rec := testutil.NewRecorder()
	h.update(rec, testutil.WithChiParam(testutil.NewFormRequest("/institutions/"+id, form, testutil.CoordinatorUser()), "id", id))

	rec.AssertRedirect(t, "/institutions")

	ctx, cancel := testutil.TestContext()
	defer cancel()
	got, err := store.Get(ctx, insts[0].ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Renamed College" || got.Established != 1951 {
		t.Errorf("updated = %+v", got)
	}
}

func TestDelete(t *testing.T) {
	h, store := newTestHandler(t)
	insts := seed(t, store, 2)
	id := insts[0].ID.Hex()

	rec := testutil.NewRecorder()
	h.delete(rec, testutil.WithChiParam(testutil.NewFormRequest("/institutions/"+id+"/delete", url.Values{}, testutil.AdminUser()), "id", id))
	rec.AssertRedirect(t, "/institutions")

	ctx, cancel := testutil.TestContext()
	defer cancel()
	all, _ := store.List(ctx, nil)
	if len(all) != 1 || all[0].Code != "INST-B" {
		t.Errorf("remaining = %+v", all)
	}
}

func TestRoutes_FacultyDenied(t *testing.T) {
	h, _ := newTestHandler(t)
	sessionMgr, err := auth.NewSessionManager("test-session-key-for-testing-1234567890", "test-session", "", 24*time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	router := Routes(h, sessionMgr)

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/", testutil.FacultyUser())
	rec := testutil.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code == http.StatusOK {
		t.Errorf("faculty got %d, want a denial", rec.Code)
	}
}

func TestParseYear(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"", 0, true},
		{"1951", 1951, true},
		{"1799", 0, false},
		{"19x1", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseYear(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("parseYear(%q) = %d, %v", tt.in, got, ok)
		}
	}
}
