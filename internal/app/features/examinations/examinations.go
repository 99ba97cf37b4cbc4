// internal/app/features/examinations/examinations.go
package examinations

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	errorsfeature "github.com/dalemusser/strataportal/internal/app/features/errors"
	examstore "github.com/dalemusser/strataportal/internal/app/store/examinations"
	"github.com/dalemusser/strataportal/internal/app/store/storeutil"
	"github.com/dalemusser/strataportal/internal/app/system/auditlog"
	"github.com/dalemusser/strataportal/internal/app/system/auth"
	"github.com/dalemusser/strataportal/internal/app/system/formutil"
	"github.com/dalemusser/strataportal/internal/app/system/inputval"
	"github.com/dalemusser/strataportal/internal/app/system/listpage"
	"github.com/dalemusser/strataportal/internal/app/system/tableview"
	"github.com/dalemusser/strataportal/internal/app/system/timeouts"
	"github.com/dalemusser/strataportal/internal/app/system/wizard"
	"github.com/dalemusser/strataportal/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	basePath   = "/examinations"
	dateLayout = "2006-01-02"
)

// Handler serves examinations and their status workflow.
type Handler struct {
	store       *examstore.Store
	errLog      *errorsfeature.ErrorLogger
	auditLogger *auditlog.Logger
	logger      *zap.Logger
	tableOpts   []tableview.Option
}

func NewHandler(db *mongo.Database, errLog *errorsfeature.ErrorLogger, auditLogger *auditlog.Logger, logger *zap.Logger, tableOpts ...tableview.Option) *Handler {
	return &Handler{
		store:       examstore.New(db),
		errLog:      errLog,
		auditLogger: auditLogger,
		logger:      logger,
		tableOpts:   tableOpts,
	}
}

// Routes mounts the screen. Faculty can follow exams but not change them.
func Routes(h *Handler, sessionMgr *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sessionMgr.RequireSignedIn)

	r.Get("/", h.list)
	r.Get("/{id}", h.show)

	r.Group(func(r chi.Router) {
		r.Use(sessionMgr.RequireRole(models.RoleAdmin, models.RoleCoordinator))
		r.Get("/new", h.showNew)
		r.Post("/new", h.create)
		r.Get("/{id}/edit", h.showEdit)
		r.Post("/{id}", h.update)
		r.Post("/{id}/status", h.transition)
		r.Post("/{id}/delete", h.delete)
	})
	return r
}

var statusLabels = map[string]string{
	models.ExamDraft:            "Draft",
	models.ExamScheduled:        "Scheduled",
	models.ExamInProgress:       "In progress",
	models.ExamCompleted:        "Completed",
	models.ExamResultsPublished: "Results published",
	models.ExamCancelled:        "Cancelled",
}

// actionLabels name the button that moves an exam into a status.
var actionLabels = map[string]string{
	models.ExamDraft:            "Back to draft",
	models.ExamScheduled:        "Schedule",
	models.ExamInProgress:       "Start",
	models.ExamCompleted:        "Complete",
	models.ExamResultsPublished: "Publish results",
	models.ExamCancelled:        "Cancel exam",
}

func statusLabel(s string) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return s
}

// row is an examination with display text for the table.
type row struct {
	models.Examination
	StatusText string
	DateText   string
	Editable   bool
}

func toRow(e models.Examination) row {
	return row{
		Examination: e,
		StatusText:  statusLabel(e.Status),
		DateText:    e.Date.Format(dateLayout),
		Editable:    examstore.Editable(e.Status),
	}
}

func columns() []tableview.Column[row] {
	return []tableview.Column[row]{
		{Key: "code", Label: "Code", Value: func(e row) string { return e.Code }},
		{Key: "course", Label: "Course", Value: func(e row) string { return e.Course }},
		{Key: "semester", Label: "Sem", Value: func(e row) string { return strconv.Itoa(e.Semester) }},
		{Key: "type", Label: "Type", Value: func(e row) string { return e.Type }},
		{Key: "date", Label: "Date", Value: func(e row) string { return e.DateText }},
		{Key: "status", Label: "Status", Value: func(e row) string { return e.StatusText }},
	}
}

func (h *Handler) newView() *tableview.View[row, string] {
	opts := append([]tableview.Option{tableview.WithDefaultSort("date", tableview.Ascending)}, h.tableOpts...)
	return tableview.New(func(e row) string { return e.ID.Hex() }, columns(), opts...)
}

type action struct {
	To    string
	Label string
}

type listData struct {
	formutil.Base
	Table   tableview.VM
	Rows    []row
	Form    *formData
	Record  *row
	Actions []action
}

type formData struct {
	Action   string
	Submit   string
	Code     string
	Course   string
	Semester string
	Type     string
	Date     string
	Types    []string
}

type examInput struct {
	Code     string `json:"code" validate:"required,code" label:"Exam code"`
	Course   string `json:"course" validate:"required,max=200" label:"Course"`
	Semester string `json:"semester" validate:"required" label:"Semester"`
	Type     string `json:"type" validate:"required,examtype" label:"Type"`
	Date     string `json:"date" validate:"required" label:"Date"`
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data listData) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.logger, "list examinations")
	defer cancel()

	all, err := h.store.List(ctx, nil)
	if err != nil {
		h.errLog.Fail(w, r, "failed to list examinations", err)
		return
	}
	rows := make([]row, len(all))
	for i, e := range all {
		rows[i] = toRow(e)
	}
	res, vm := tableview.Load(h.newView(), r, rows, basePath)
	data.Table = vm
	data.Rows = res.Rows
	listpage.Render(w, r, "examinations", data)
}

// conflict renders data with status 409.
func (h *Handler) conflict(w http.ResponseWriter, r *http.Request, data listData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusConflict)
	h.render(w, r, data)
}

func newData(r *http.Request) listData {
	return listData{Base: formutil.NewBase(r, "Examinations", "/dashboard")}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, newData(r))
}

func (h *Handler) showNew(w http.ResponseWriter, r *http.Request) {
	data := newData(r)
	data.Form = formFrom(examInput{Type: models.ExamInternal}, basePath+"/new", "Create")
	h.render(w, r, data)
}

func readForm(r *http.Request) examInput {
	return examInput{
		Code:     strings.TrimSpace(r.FormValue("code")),
		Course:   strings.TrimSpace(r.FormValue("course")),
		Semester: strings.TrimSpace(r.FormValue("semester")),
		Type:     r.FormValue("type"),
		Date:     strings.TrimSpace(r.FormValue("date")),
	}
}

func formFrom(in examInput, action, submit string) *formData {
	return &formData{
		Action:   action,
		Submit:   submit,
		Code:     in.Code,
		Course:   in.Course,
		Semester: in.Semester,
		Type:     in.Type,
		Date:     in.Date,
		Types:    models.ExamTypes(),
	}
}

func validate(in examInput, data *listData) (examstore.Input, bool) {
	if res := inputval.Validate(in); res.HasErrors() {
		for field, msg := range res.ByField() {
			data.FieldError(field, msg)
		}
	}
	sem, err := strconv.Atoi(in.Semester)
	if in.Semester != "" && (err != nil || sem < 1 || sem > 10) {
		data.FieldError("semester", "Semester must be a number from 1 to 10.")
	}
	date, err := time.Parse(dateLayout, in.Date)
	if in.Date != "" && err != nil {
		data.FieldError("date", "Date must look like 2025-04-30.")
	}
	if data.HasErrors() {
		data.Summary()
		return examstore.Input{}, false
	}
	return examstore.Input{
		Code:     in.Code,
		Course:   in.Course,
		Semester: sem,
		Type:     in.Type,
		Date:     date,
	}, true
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	in := readForm(r)
	data := newData(r)
	data.Form = formFrom(in, basePath+"/new", "Create")

	input, ok := validate(in, &data)
	if !ok {
		h.render(w, r, data)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "create examination")
	defer cancel()
	e, err := h.store.Create(ctx, input)
	if errors.Is(err, storeutil.ErrDuplicate) {
		data.FieldError("code", "An examination with this code already exists.")
		data.Summary()
		h.render(w, r, data)
		return
	}
	if err != nil {
		h.errLog.Fail(w, r, "failed to create examination", err)
		return
	}

	h.auditLogger.RecordCreated(ctx, r, "examination", e.Code, e.Course)
	http.Redirect(w, r, basePath, http.StatusSeeOther)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) *models.Examination {
	id, err := storeutil.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return nil
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "get examination")
	defer cancel()

	e, err := h.store.Get(ctx, id)
	if errors.Is(err, storeutil.ErrNotFound) {
		http.NotFound(w, r)
		return nil
	}
	if err != nil {
		h.errLog.Fail(w, r, "failed to load examination", err)
		return nil
	}
	return e
}

// detailData builds the detail card of e with the moves the workflow allows.
func detailData(r *http.Request, e *models.Examination) listData {
	data := newData(r)
	rec := toRow(*e)
	data.Record = &rec
	for _, to := range examstore.Workflow.Targets(wizard.Step(e.Status)) {
		data.Actions = append(data.Actions, action{To: string(to), Label: actionLabels[string(to)]})
	}
	return data
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	e := h.load(w, r)
	if e == nil {
		return
	}
	h.render(w, r, detailData(r, e))
}

func (h *Handler) showEdit(w http.ResponseWriter, r *http.Request) {
	e := h.load(w, r)
	if e == nil {
		return
	}
	if !examstore.Editable(e.Status) {
		data := detailData(r, e)
		data.SetError(examstore.ErrLocked.Error())
		h.render(w, r, data)
		return
	}
	data := newData(r)
	data.Form = formFrom(examInput{
		Code:     e.Code,
		Course:   e.Course,
		Semester: strconv.Itoa(e.Semester),
		Type:     e.Type,
		Date:     e.Date.Format(dateLayout),
	}, basePath+"/"+e.ID.Hex(), "Save")
	h.render(w, r, data)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	e := h.load(w, r)
	if e == nil {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	in := readForm(r)
	data := newData(r)
	data.Form = formFrom(in, basePath+"/"+e.ID.Hex(), "Save")

	input, ok := validate(in, &data)
	if !ok {
		h.render(w, r, data)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "update examination")
	defer cancel()
	err := h.store.Update(ctx, e.ID, input)
	switch {
	case errors.Is(err, examstore.ErrLocked):
		data = detailData(r, e)
		data.SetError(examstore.ErrLocked.Error())
		h.conflict(w, r, data)
		return
	case errors.Is(err, storeutil.ErrDuplicate):
		data.FieldError("code", "An examination with this code already exists.")
		data.Summary()
		h.render(w, r, data)
		return
	case errors.Is(err, storeutil.ErrNotFound):
		http.NotFound(w, r)
		return
	case err != nil:
		h.errLog.Fail(w, r, "failed to update examination", err)
		return
	}

	h.auditLogger.RecordUpdated(ctx, r, "examination", input.Code, input.Course)
	http.Redirect(w, r, basePath, http.StatusSeeOther)
}

// transition moves the exam to the posted status. Moves the workflow does
// not allow, and moves raced by another request, re-render the detail card
// with a 409.
func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	e := h.load(w, r)
	if e == nil {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	to := r.FormValue("to")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "transition examination")
	defer cancel()
	from, err := h.store.Transition(ctx, e.ID, to)
	if err != nil {
		var msg string
		switch {
		case errors.Is(err, wizard.ErrInvalidTransition), errors.Is(err, wizard.ErrUnknownStep):
			msg = "An examination that is " + strings.ToLower(statusLabel(from)) + " cannot move to " + strings.ToLower(statusLabel(to)) + "."
		case errors.Is(err, examstore.ErrStatusChanged):
			msg = "Someone else changed this examination. Review its status and try again."
		case errors.Is(err, storeutil.ErrNotFound):
			http.NotFound(w, r)
			return
		default:
			h.errLog.Fail(w, r, "failed to change examination status", err)
			return
		}
		if fresh := h.load(w, r); fresh != nil {
			data := detailData(r, fresh)
			data.SetError(msg)
			h.conflict(w, r, data)
		}
		return
	}

	h.auditLogger.StatusChanged(ctx, r, "examination", e.Code, from, to)
	http.Redirect(w, r, basePath+"/"+e.ID.Hex(), http.StatusSeeOther)
}

// delete removes draft and cancelled exams only; others have history worth
// keeping.
func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	e := h.load(w, r)
	if e == nil {
		return
	}
	if e.Status != models.ExamDraft && e.Status != models.ExamCancelled {
		data := detailData(r, e)
		data.SetError("Only draft or cancelled examinations can be deleted.")
		h.conflict(w, r, data)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "delete examination")
	defer cancel()

	if err := h.store.Delete(ctx, e.ID); err != nil && !errors.Is(err, storeutil.ErrNotFound) {
		h.errLog.Fail(w, r, "failed to delete examination", err)
		return
	}
	h.auditLogger.RecordDeleted(ctx, r, "examination", e.Code, e.Course)
	http.Redirect(w, r, basePath, http.StatusSeeOther)
}
