package datalabels

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	datalabelstore "github.com/dalemusser/strataportal/internal/app/store/datalabels"
	draftstore "github.com/dalemusser/strataportal/internal/app/store/drafts"
	manualstore "github.com/dalemusser/strataportal/internal/app/store/manuals"
	"github.com/dalemusser/strataportal/internal/domain/models"
	"github.com/dalemusser/strataportal/internal/testutil"
	"go.uber.org/zap"
)

type fixture struct {
	h      *Handler
	labels *datalabelstore.Store
	drafts *draftstore.Store
	manual *models.Manual
	user   testutil.TestUser
}

func setup(t *testing.T) fixture {
	t.Helper()
	testutil.MustBootTemplates(t)
	db := testutil.SetupTestDB(t)

	ctx, cancel := testutil.TestContext()
	defer cancel()
	m, err := manualstore.New(db).Create(ctx, manualstore.Input{
		ManualID:            "M003",
		Title:               "NBA Diploma",
		Agency:              models.AgencyNBA,
		InstitutionCategory: models.CategoryPolytechnic,
	})
	if err != nil {
		t.Fatalf("create manual: %v", err)
	}
	return fixture{
		h:      NewHandler(db, nil, nil, zap.NewNop()),
		labels: datalabelstore.New(db),
		drafts: draftstore.New(db),
		manual: m,
		user:   testutil.CoordinatorUser(),
	}
}

// begin starts a draft and returns its token.
func (f fixture) begin(t *testing.T) string {
	t.Helper()
	rec := testutil.NewRecorder()
	f.h.start(rec, testutil.NewFormRequest("/datalabels/new", url.Values{}, f.user))
	rec.AssertStatus(t, http.StatusSeeOther)
	loc := rec.Header().Get("Location")
	token := strings.TrimPrefix(loc, "/datalabels/wizard/")
	if token == loc || token == "" {
		t.Fatalf("Location = %q", loc)
	}
	return token
}

func (f fixture) post(token string, form url.Values) *testutil.ResponseRecorder {
	rec := testutil.NewRecorder()
	req := testutil.NewFormRequest("/datalabels/wizard/"+token, form, f.user)
	f.h.submitStep(rec, testutil.WithChiParam(req, "token", token))
	return rec
}

func (f fixture) step(t *testing.T, token string) string {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	d, err := f.drafts.Get(ctx, token, f.user.ID)
	if err != nil {
		t.Fatalf("drafts.Get: %v", err)
	}
	return d.Step
}

func TestWizard_FullFlow(t *testing.T) {
	f := setup(t)
	token := f.begin(t)
	wizardURL := "/datalabels/wizard/" + token

	f.post(token, url.Values{"step": {"manual"}, "action": {"next"}, "manual_id": {f.manual.ID.Hex()}}).AssertRedirect(t, wizardURL)
	f.post(token, url.Values{"step": {"sop"}, "action": {"next"}, "sop_title": {"Lab records"}, "sop_body": {"<p>Collect <em>signed</em> registers.</p><script>x()</script>"}}).AssertRedirect(t, wizardURL)
	f.post(token, url.Values{"step": {"input_types"}, "action": {"next"}, "input_types": {"Image", "Document", "Bogus"}}).AssertRedirect(t, wizardURL)
	f.post(token, url.Values{"step": {"label_types"}, "action": {"next"}, "label_types": {"Lab Register\n\n  Attendance   Sheet \n"}}).AssertRedirect(t, wizardURL)

	if got := f.step(t, token); got != "review" {
		t.Fatalf("step = %q, want review", got)
	}

	req := testutil.NewAuthenticatedRequest(http.MethodGet, wizardURL, f.user)
	rec := testutil.NewRecorder()
	f.h.showStep(rec, testutil.WithChiParam(testutil.WithCSRFToken(req), "token", token))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "step 5 of 5")
	rec.AssertContains(t, "Attendance Sheet")

	f.post(token, url.Values{"step": {"review"}, "action": {"finish"}}).AssertRedirect(t, "/datalabels")

	ctx, cancel := testutil.TestContext()
	defer cancel()
	all, err := f.labels.List(ctx, nil)
	if err != nil || len(all) != 1 {
		t.Fatalf("labels = %d, %v", len(all), err)
	}
	dl := all[0]
	if dl.ManualCode != "M003" || strings.Contains(dl.SOPHTML, "script") {
		t.Errorf("label = %+v", dl)
	}
	if strings.Join(dl.InputTypes, ",") != "Document,Image" {
		t.Errorf("InputTypes = %v", dl.InputTypes)
	}
	if len(dl.LabelTypes) != 2 || dl.LabelTypes[1].Key != "attendance-sheet" {
		t.Errorf("LabelTypes = %+v", dl.LabelTypes)
	}
	if _, err := f.drafts.Get(ctx, token, f.user.ID); err != draftstore.ErrNotFound {
		t.Errorf("draft still present: %v", err)
	}
}

func TestWizard_ValidationKeepsStep(t *testing.T) {
	f := setup(t)
	token := f.begin(t)

	rec := f.post(token, url.Values{"step": {"manual"}, "action": {"next"}})
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Choose a manual.")
	if got := f.step(t, token); got != "manual" {
		t.Errorf("step = %q, want manual", got)
	}
}

func TestWizard_BackAndStalePost(t *testing.T) {
	f := setup(t)
	token := f.begin(t)
	wizardURL := "/datalabels/wizard/" + token

	f.post(token, url.Values{"step": {"manual"}, "action": {"next"}, "manual_id": {f.manual.ID.Hex()}}).AssertRedirect(t, wizardURL)

	// A second tab still showing the first step must not advance the draft.
	f.post(token, url.Values{"step": {"manual"}, "action": {"next"}, "manual_id": {f.manual.ID.Hex()}}).AssertRedirect(t, wizardURL)
	if got := f.step(t, token); got != "sop" {
		t.Fatalf("step = %q, want sop", got)
	}

	f.post(token, url.Values{"step": {"sop"}, "action": {"back"}}).AssertRedirect(t, wizardURL)
	if got := f.step(t, token); got != "manual" {
		t.Errorf("step = %q, want manual", got)
	}

	// Finish is only accepted on the review step.
	f.post(token, url.Values{"step": {"manual"}, "action": {"finish"}}).AssertRedirect(t, wizardURL)
}

func TestWizard_Cancel(t *testing.T) {
	f := setup(t)
	token := f.begin(t)

	f.post(token, url.Values{"step": {"manual"}, "action": {"cancel"}}).AssertRedirect(t, "/datalabels")
	f.post(token, url.Values{"step": {"manual"}, "action": {"next"}}).AssertStatus(t, http.StatusNotFound)
}

func TestWizard_OtherUsersDraft(t *testing.T) {
	f := setup(t)
	token := f.begin(t)

	other := f
	other.user = testutil.AdminUser()
	other.post(token, url.Values{"step": {"manual"}, "action": {"cancel"}}).AssertStatus(t, http.StatusNotFound)
}

func TestParseLabelTypes(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		keys    []string
		wantMsg string
	}{
		{"basic", "Fee Receipt\nMark Sheet", []string{"fee-receipt", "mark-sheet"}, ""},
		{"blank lines", "\n  Syllabus  \n\n", []string{"syllabus"}, ""},
		{"empty", " \n ", nil, "Enter at least one label type."},
		{"duplicate slug", "Mark Sheet\nmark   sheet", nil, "duplicates another label"},
		{"symbols only", "***", nil, "needs at least one letter or digit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, msg := parseLabelTypes(tt.in)
			if tt.wantMsg != "" {
				if !strings.Contains(msg, tt.wantMsg) {
					t.Errorf("msg = %q, want %q", msg, tt.wantMsg)
				}
				return
			}
			if msg != "" {
				t.Fatalf("unexpected msg %q", msg)
			}
			var keys []string
			for _, l := range got {
				keys = append(keys, l.Key)
			}
			if strings.Join(keys, ",") != strings.Join(tt.keys, ",") {
				t.Errorf("keys = %v, want %v", keys, tt.keys)
			}
		})
	}
}
