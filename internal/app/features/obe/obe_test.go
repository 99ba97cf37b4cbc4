package obe

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	obestore "github.com/dalemusser/strataportal/internal/app/store/obe"
	"github.com/dalemusser/strataportal/internal/testutil"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*Handler, *obestore.Store) {
	t.Helper()
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)
	return NewHandler(db, nil, nil, zap.NewNop()), obestore.New(db)
}

func (h *Handler) postSection(program, section string, form url.Values) *testutil.ResponseRecorder {
	req := testutil.NewFormRequest("/obe/"+program+"/"+section, form, testutil.CoordinatorUser())
	req = testutil.WithChiParam(req, "program", program)
	req = testutil.WithChiParam(req, "section", section)
	rec := testutil.NewRecorder()
	h.save(rec, req)
	return rec
}

func TestSave_WalksSections(t *testing.T) {
	h, store := newTestHandler(t)

	h.postSection("be-cse", "program_outcomes", url.Values{"outcomes": {"PO1 | Engineering knowledge\nPO2 | Problem analysis"}}).
		AssertRedirect(t, "/obe?program=BE-CSE&section=course_outcomes")
	h.postSection("BE-CSE", "course_outcomes", url.Values{"outcomes": {"CO1 | CS201 | Explain stacks"}}).
		AssertRedirect(t, "/obe?program=BE-CSE&section=mappings")
	h.postSection("BE-CSE", "mappings", url.Values{mappingField("CO1", "PO2"): {"2"}}).
		AssertRedirect(t, "/obe?program=BE-CSE&section=thresholds")
	h.postSection("BE-CSE", "thresholds", url.Values{"target": {"70"}, "level1": {"40"}, "level2": {"55"}, "level3": {"65"}}).
		AssertRedirect(t, "/obe?program=BE-CSE&section=thresholds")

	ctx, cancel := testutil.TestContext()
	defer cancel()
	cfg, err := store.Get(ctx, "BE-CSE")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(cfg.ProgramOutcomes) != 2 || len(cfg.CourseOutcomes) != 1 || cfg.CourseOutcomes[0].Course != "CS201" {
		t.Errorf("outcomes = %+v / %+v", cfg.ProgramOutcomes, cfg.CourseOutcomes)
	}
	if len(cfg.Mappings) != 1 || cfg.Mappings[0].Level != 2 {
		t.Errorf("mappings = %+v", cfg.Mappings)
	}
	if cfg.Thresholds.Target != 70 || cfg.Thresholds.Level3 != 65 {
		t.Errorf("thresholds = %+v", cfg.Thresholds)
	}
}

func TestSave_RemovingOutcomePrunesMappings(t *testing.T) {
	h, store := newTestHandler(t)
	h.postSection("MBA", "program_outcomes", url.Values{"outcomes": {"PO1 | Lead\nPO2 | Decide"}})
	h.postSection("MBA", "course_outcomes", url.Values{"outcomes": {"CO1 | MB101 | Analyse markets"}})
	h.postSection("MBA", "mappings", url.Values{mappingField("CO1", "PO1"): {"3"}, mappingField("CO1", "PO2"): {"1"}})

	h.postSection("MBA", "program_outcomes", url.Values{"outcomes": {"PO1 | Lead"}}).
		AssertRedirect(t, "/obe?program=MBA&section=course_outcomes")

	ctx, cancel := testutil.TestContext()
	defer cancel()
	cfg, _ := store.Get(ctx, "MBA")
	if len(cfg.Mappings) != 1 || cfg.Mappings[0].PO != "PO1" {
		t.Errorf("mappings = %+v", cfg.Mappings)
	}
}

func TestSave_InvalidKeepsSectionOpen(t *testing.T) {
	tests := []struct {
		name    string
		section string
		form    url.Values
		want    string
	}{
		{"outcome format", "program_outcomes", url.Values{"outcomes": {"PO1 knowledge"}}, "Line 1: write it as CODE | statement."},
		{"mapping without outcomes", "mappings", url.Values{}, "Add program and course outcomes before mapping them."},
		{"thresholds", "thresholds", url.Values{"target": {"150"}, "level1": {"40"}, "level2": {"50"}, "level3": {"60"}}, "Target must be a percentage from 0 to 100."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, store := newTestHandler(t)
			rec := h.postSection("ECE", tt.section, tt.form)
			rec.AssertStatus(t, http.StatusOK)
			rec.AssertContains(t, tt.want)
			rec.AssertContains(t, `accordion-item open`)

			ctx, cancel := testutil.TestContext()
			defer cancel()
			programs, _ := store.Programs(ctx)
			if len(programs) != 0 {
				t.Errorf("nothing should be saved, got %v", programs)
			}
		})
	}
}

func TestSave_UnknownSection(t *testing.T) {
	h, _ := newTestHandler(t)
	h.postSection("ECE", "syllabus", url.Values{}).AssertStatus(t, http.StatusNotFound)
	h.postSection("E", "thresholds", url.Values{}).AssertStatus(t, http.StatusNotFound)
}

func TestShow_OneSectionOpen(t *testing.T) {
	h, store := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := store.SaveSection(ctx, "CIVIL", obestore.SectionProgramOutcomes, parseOnly(t, "PO1 | Survey land")); err != nil {
		t.Fatalf("SaveSection: %v", err)
	}

	req := testutil.NewAuthenticatedRequest(http.MethodGet, "/obe?section=thresholds", testutil.FacultyUser())
	rec := testutil.NewRecorder()
	h.show(rec, testutil.WithCSRFToken(req))

	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "CIVIL")
	rec.AssertContains(t, `name="target" value="60"`)
	body := rec.Body.String()
	if n := strings.Count(body, "accordion-item open"); n != 1 {
		t.Errorf("open sections = %d, want 1", n)
	}
	if strings.Contains(body, "Save and continue") || strings.Contains(body, ">Save<") {
		t.Error("faculty should not see save buttons")
	}
}

func parseOnly(t *testing.T, text string) any {
	t.Helper()
	list, msg := parseOutcomes(text, false)
	if msg != "" {
		t.Fatal(msg)
	}
	return list
}
