// internal/app/features/datalabels/wizard.go
package datalabels

import (
	"errors"
	"html/template"
	"net/http"
	"slices"
	"strings"

	draftstore "github.com/dalemusser/strataportal/internal/app/store/drafts"
	"github.com/dalemusser/strataportal/internal/app/store/storeutil"
	"github.com/dalemusser/strataportal/internal/app/system/auth"
	"github.com/dalemusser/strataportal/internal/app/system/htmlsanitize"
	"github.com/dalemusser/strataportal/internal/app/system/timeouts"
	"github.com/dalemusser/strataportal/internal/app/system/wizard"
	"github.com/dalemusser/strataportal/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"github.com/gosimple/slug"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Wizard steps in display order.
const (
	stepManual     wizard.Step = "manual"
	stepSOP        wizard.Step = "sop"
	stepInputTypes wizard.Step = "input_types"
	stepLabelTypes wizard.Step = "label_types"
	stepReview     wizard.Step = "review"
)

var flow = wizard.MustLinear(stepManual, stepSOP, stepInputTypes, stepLabelTypes, stepReview)

var stepLabels = map[wizard.Step]string{
	stepManual:     "Manual",
	stepSOP:        "SOP",
	stepInputTypes: "Input types",
	stepLabelTypes: "Label types",
	stepReview:     "Review",
}

const maxLabelTypes = 50

type stepVM struct {
	Label  string
	Active bool
	Done   bool
}

type option struct {
	Value   string
	Label   string
	Checked bool
}

// wizardData is the wizard card. Only the fields of the visible step are
// filled from the draft or the submitted form.
type wizardData struct {
	Action   string
	Cursor   *wizard.Cursor
	Steps    []stepVM
	Position int
	Total    int

	Manuals    []option
	SOPTitle   string
	SOPBody    string
	InputTypes []option
	LabelText  string

	Draft      *models.LabelDraft
	SOPPreview template.HTML
}

func ownerID(r *http.Request) string {
	if u, ok := auth.CurrentUser(r); ok {
		return u.ID
	}
	return ""
}

func wizardURL(token string) string {
	return basePath + "/wizard/" + token
}

// start opens a new draft and sends the browser to its first step.
func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "start label draft")
	defer cancel()

	d, err := h.drafts.Start(ctx, ownerID(r), string(flow.Start()))
	if err != nil {
		h.errLog.Fail(w, r, "failed to start data label draft", err)
		return
	}
	http.Redirect(w, r, wizardURL(d.Token), http.StatusSeeOther)
}

// loadDraft fetches the {token} draft of the current user and a cursor at
// its saved step.
func (h *Handler) loadDraft(w http.ResponseWriter, r *http.Request) (*models.LabelDraft, *wizard.Cursor) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "get label draft")
	defer cancel()

	d, err := h.drafts.Get(ctx, chi.URLParam(r, "token"), ownerID(r))
	if errors.Is(err, draftstore.ErrNotFound) {
		http.NotFound(w, r)
		return nil, nil
	}
	if err != nil {
		h.errLog.Fail(w, r, "failed to load data label draft", err)
		return nil, nil
	}
	cur, err := flow.CursorAt(wizard.Step(d.Step))
	if err != nil {
		h.logger.Warn("draft has unknown step; restarting", zap.String("token", d.Token), zap.String("step", d.Step))
		cur = flow.Cursor()
	}
	return d, cur
}

func (h *Handler) showStep(w http.ResponseWriter, r *http.Request) {
	d, cur := h.loadDraft(w, r)
	if d == nil {
		return
	}
	data := newData(r)
	wd, err := h.wizardView(r, d, cur)
	if err != nil {
		h.errLog.Fail(w, r, "failed to build wizard", err)
		return
	}
	data.Wizard = wd
	h.render(w, r, data)
}

// wizardView builds the card for the cursor's step from the saved draft.
func (h *Handler) wizardView(r *http.Request, d *models.LabelDraft, cur *wizard.Cursor) (*wizardData, error) {
	n, total := cur.Position()
	wd := &wizardData{
		Action:     wizardURL(d.Token),
		Cursor:     cur,
		Position:   n,
		Total:      total,
		SOPTitle:   d.SOPTitle,
		SOPBody:    d.SOPHTML,
		InputTypes: inputOptions(d.InputTypes),
		LabelText:  labelText(d.LabelTypes),
		Draft:      d,
		SOPPreview: htmlsanitize.PrepareForDisplay(d.SOPHTML),
	}
	for i, s := range flow.Steps() {
		wd.Steps = append(wd.Steps, stepVM{Label: stepLabels[s], Active: s == cur.Current(), Done: i < n-1})
	}
	if cur.Is(stepManual) {
		ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "list manuals")
		defer cancel()
		manuals, err := h.manuals.List(ctx, nil)
		if err != nil {
			return nil, err
		}
		for _, m := range manuals {
			wd.Manuals = append(wd.Manuals, option{
				Value:   m.ID.Hex(),
				Label:   m.ManualID + " · " + m.Title,
				Checked: m.ID == d.ManualID,
			})
		}
	}
	return wd, nil
}

func inputOptions(selected []string) []option {
	var out []option
	for _, t := range models.InputTypes() {
		out = append(out, option{Value: t, Label: t, Checked: slices.Contains(selected, t)})
	}
	return out
}

func labelText(labels []models.LabelType) string {
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = l.Name
	}
	return strings.Join(names, "\n")
}

// parseLabelTypes reads one label name per line. Keys are slugs of the
// names and must be unique. A non-empty msg explains why text was rejected.
func parseLabelTypes(text string) (labels []models.LabelType, msg string) {
	seen := map[string]bool{}
	for _, line := range strings.Split(text, "\n") {
		name := strings.Join(strings.Fields(line), " ")
		if name == "" {
			continue
		}
		key := slug.Make(name)
		if key == "" {
			return nil, "Label \"" + name + "\" needs at least one letter or digit."
		}
		if seen[key] {
			return nil, "Label \"" + name + "\" duplicates another label."
		}
		seen[key] = true
		labels = append(labels, models.LabelType{Key: key, Name: name})
	}
	if len(labels) == 0 {
		return nil, "Enter at least one label type."
	}
	if len(labels) > maxLabelTypes {
		return nil, "A data label may have at most 50 label types."
	}
	return labels, ""
}

// applyStep copies the submitted fields of step into d. A non-empty msg is
// shown to the user and leaves d unchanged; err is a store failure.
func (h *Handler) applyStep(r *http.Request, step wizard.Step, d *models.LabelDraft) (msg string, err error) {
	switch step {
	case stepManual:
		id, err := primitive.ObjectIDFromHex(r.FormValue("manual_id"))
		if err != nil {
			return "Choose a manual.", nil
		}
		ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "get manual")
		defer cancel()
		m, err := h.manuals.Get(ctx, id)
		if errors.Is(err, storeutil.ErrNotFound) {
			return "Choose an existing manual.", nil
		}
		if err != nil {
			return "", err
		}
		d.ManualID = m.ID
		d.ManualCode = m.ManualID

	case stepSOP:
		title := strings.TrimSpace(r.FormValue("sop_title"))
		body := htmlsanitize.Sanitize(r.FormValue("sop_body"))
		switch {
		case title == "":
			return "SOP title is required.", nil
		case len(title) > 200:
			return "SOP title must be at most 200 characters.", nil
		case htmlsanitize.Excerpt(body, 0) == "":
			return "Write the SOP before continuing.", nil
		}
		d.SOPTitle = title
		d.SOPHTML = body

	case stepInputTypes:
		var chosen []string
		for _, t := range models.InputTypes() {
			if slices.Contains(r.Form["input_types"], t) {
				chosen = append(chosen, t)
			}
		}
		if len(chosen) == 0 {
			return "Choose at least one input type.", nil
		}
		d.InputTypes = chosen

	case stepLabelTypes:
		labels, msg := parseLabelTypes(r.FormValue("label_types"))
		if msg != "" {
			return msg, nil
		}
		d.LabelTypes = labels
	}
	return "", nil
}

// submitStep handles the wizard buttons: next, back, finish and cancel.
// Next validates and saves the visible step before moving on; back moves
// without saving.
func (h *Handler) submitStep(w http.ResponseWriter, r *http.Request) {
	d, cur := h.loadDraft(w, r)
	if d == nil {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	// A stale tab may post a step the draft has left; show the saved step.
	if posted, err := flow.Parse(r.FormValue("step")); err != nil || posted != cur.Current() {
		http.Redirect(w, r, wizardURL(d.Token), http.StatusSeeOther)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "save label draft")
	defer cancel()

	switch r.FormValue("action") {
	case "cancel":
		if err := h.drafts.Discard(ctx, d.Token, d.OwnerID); err != nil {
			h.errLog.Fail(w, r, "failed to discard data label draft", err)
			return
		}
		http.Redirect(w, r, basePath, http.StatusSeeOther)
		return

	case "back":
		if err := cur.Back(); err != nil {
			http.Redirect(w, r, wizardURL(d.Token), http.StatusSeeOther)
			return
		}

	case "finish":
		if !cur.IsLast() {
			http.Redirect(w, r, wizardURL(d.Token), http.StatusSeeOther)
			return
		}
		h.finish(w, r, d)
		return

	default:
		msg, err := h.applyStep(r, cur.Current(), d)
		if err != nil {
			h.errLog.Fail(w, r, "failed to apply wizard step", err)
			return
		}
		if msg != "" {
			h.rerender(w, r, d, cur, msg)
			return
		}
		if err := cur.Next(); err != nil {
			http.Redirect(w, r, wizardURL(d.Token), http.StatusSeeOther)
			return
		}
	}

	d.Step = string(cur.Current())
	if err := h.drafts.Save(ctx, d); err != nil {
		if errors.Is(err, draftstore.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.errLog.Fail(w, r, "failed to save data label draft", err)
		return
	}
	http.Redirect(w, r, wizardURL(d.Token), http.StatusSeeOther)
}

// rerender shows the visible step again with the submitted values.
func (h *Handler) rerender(w http.ResponseWriter, r *http.Request, d *models.LabelDraft, cur *wizard.Cursor, msg string) {
	data := newData(r)
	data.SetError(msg)
	wd, err := h.wizardView(r, d, cur)
	if err != nil {
		h.errLog.Fail(w, r, "failed to build wizard", err)
		return
	}
	switch cur.Current() {
	case stepSOP:
		wd.SOPTitle = r.FormValue("sop_title")
		wd.SOPBody = r.FormValue("sop_body")
	case stepInputTypes:
		wd.InputTypes = inputOptions(r.Form["input_types"])
	case stepLabelTypes:
		wd.LabelText = r.FormValue("label_types")
	}
	data.Wizard = wd
	h.render(w, r, data)
}

// finish stores the reviewed draft as a data label and discards the draft.
func (h *Handler) finish(w http.ResponseWriter, r *http.Request, d *models.LabelDraft) {
	if d.ManualID.IsZero() || d.SOPTitle == "" || len(d.InputTypes) == 0 || len(d.LabelTypes) == 0 {
		cur, _ := flow.CursorAt(stepReview)
		h.rerender(w, r, d, cur, "The draft is incomplete. Go back and fill in every step.")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "create data label")
	defer cancel()

	dl, err := h.store.CreateFromDraft(ctx, *d, ownerID(r))
	if err != nil {
		h.errLog.Fail(w, r, "failed to create data label", err)
		return
	}
	if err := h.drafts.Discard(ctx, d.Token, d.OwnerID); err != nil {
		h.logger.Warn("failed to discard finished draft", zap.String("token", d.Token), zap.Error(err))
	}
	h.auditLogger.RecordCreated(ctx, r, "data_label", dl.ID.Hex(), dl.ManualCode+" "+dl.SOPTitle)
	http.Redirect(w, r, basePath, http.StatusSeeOther)
}
