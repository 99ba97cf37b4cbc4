// internal/app/features/criteria/criteria.go
package criteria

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	errorsfeature "github.com/dalemusser/strataportal/internal/app/features/errors"
	criteriastore "github.com/dalemusser/strataportal/internal/app/store/criteria"
	manualstore "github.com/dalemusser/strataportal/internal/app/store/manuals"
	"github.com/dalemusser/strataportal/internal/app/store/storeutil"
	"github.com/dalemusser/strataportal/internal/app/system/auditlog"
	"github.com/dalemusser/strataportal/internal/app/system/auth"
	"github.com/dalemusser/strataportal/internal/app/system/formutil"
	"github.com/dalemusser/strataportal/internal/app/system/inputval"
	"github.com/dalemusser/strataportal/internal/app/system/listpage"
	"github.com/dalemusser/strataportal/internal/app/system/tableview"
	"github.com/dalemusser/strataportal/internal/app/system/timeouts"
	"github.com/dalemusser/strataportal/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const basePath = "/criteria"

// Handler serves criteria and, under a selected criterion, its metrics.
type Handler struct {
	store       *criteriastore.Store
	manuals     *manualstore.Store
	errLog      *errorsfeature.ErrorLogger
	auditLogger *auditlog.Logger
	logger      *zap.Logger
	tableOpts   []tableview.Option
}

func NewHandler(db *mongo.Database, errLog *errorsfeature.ErrorLogger, auditLogger *auditlog.Logger, logger *zap.Logger, tableOpts ...tableview.Option) *Handler {
	return &Handler{
		store:       criteriastore.New(db),
		manuals:     manualstore.New(db),
		errLog:      errLog,
		auditLogger: auditLogger,
		logger:      logger,
		tableOpts:   tableOpts,
	}
}

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
		r.Post("/{id}/delete", h.delete)

		r.Post("/{id}/metrics", h.createMetric)
		r.Get("/{id}/metrics/{metricID}/edit", h.showEditMetric)
		r.Post("/{id}/metrics/{metricID}", h.updateMetric)
		r.Post("/{id}/metrics/{metricID}/delete", h.deleteMetric)
	})
	return r
}

// row is a criterion with the public id of its manual.
type row struct {
	models.Criterion
	Manual string
}

func columns() []tableview.Column[row] {
	return []tableview.Column[row]{
		{Key: "manual", Label: "Manual", Value: func(c row) string { return c.Manual }},
		{Key: "number", Label: "No.", Value: func(c row) string { return c.Number }},
		{Key: "title", Label: "Title", Value: func(c row) string { return c.Title }},
		{Key: "weightage", Label: "Weightage", Value: func(c row) string { return formatNumber(c.Weightage) }},
	}
}

func (h *Handler) newView() *tableview.View[row, string] {
	opts := append([]tableview.Option{tableview.WithDefaultSort("number", tableview.Ascending)}, h.tableOpts...)
	return tableview.New(func(c row) string { return c.ID.Hex() }, columns(), opts...)
}

type listData struct {
	formutil.Base
	Table  tableview.VM
	Rows   []row
	Form   *formData
	Record *detail
}

type formData struct {
	Action    string
	Submit    string
	ManualID  string
	Number    string
	Title     string
	Weightage string
	Manuals   []models.Manual
}

// detail is the selected criterion with its metrics. MetricForm is either
// the add form or the edit form of one metric.
type detail struct {
	row
	Metrics    []models.Metric
	TotalMarks float64
	MetricForm metricForm
}

type metricForm struct {
	Action      string
	Submit      string
	Number      string
	Description string
	Type        string
	MaxMarks    string
}

type criterionInput struct {
	ManualID  string `json:"manual_id" validate:"required,objectid" label:"Manual"`
	Number    string `json:"number" validate:"required,max=10" label:"Number"`
	Title     string `json:"title" validate:"required,max=200" label:"Title"`
	Weightage string `json:"weightage" validate:"required" label:"Weightage"`
}

type metricInput struct {
	Number      string `json:"metric_number" validate:"required,max=12" label:"Metric number"`
	Description string `json:"description" validate:"required,max=500" label:"Description"`
	Type        string `json:"type" validate:"required,metrictype" label:"Type"`
	MaxMarks    string `json:"max_marks" validate:"required" label:"Max marks"`
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// parseAmount reads a non-negative decimal no larger than limit.
func parseAmount(s string, limit float64) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f < 0 || f > limit {
		return 0, false
	}
	return f, true
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data listData) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.logger, "list criteria")
	defer cancel()

	manuals, err := h.manuals.List(ctx, nil)
	if err != nil {
		h.errLog.Fail(w, r, "failed to list manuals", err)
		return
	}
	criteria, err := h.store.ListCriteria(ctx, primitive.NilObjectID)
	if err != nil {
		h.errLog.Fail(w, r, "failed to list criteria", err)
		return
	}

	names := make(map[primitive.ObjectID]string, len(manuals))
	for _, m := range manuals {
		names[m.ID] = m.ManualID
	}
	rows := make([]row, len(criteria))
	for i, c := range criteria {
		rows[i] = row{Criterion: c, Manual: names[c.ManualID]}
	}

	if data.Form != nil {
		data.Form.Manuals = manuals
	}
	if data.Record != nil {
		data.Record.Manual = names[data.Record.ManualID]
	}

	res, vm := tableview.Load(h.newView(), r, rows, basePath)
	data.Table = vm
	data.Rows = res.Rows
	listpage.Render(w, r, "criteria", data)
}

func newData(r *http.Request) listData {
	return listData{Base: formutil.NewBase(r, "Criteria & Metrics", "/manuals")}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, newData(r))
}

func (h *Handler) showNew(w http.ResponseWriter, r *http.Request) {
	data := newData(r)
	data.Form = &formData{Action: basePath + "/new", Submit: "Create"}
	h.render(w, r, data)
}

func readForm(r *http.Request) criterionInput {
	return criterionInput{
		ManualID:  r.FormValue("manual_id"),
		Number:    strings.TrimSpace(r.FormValue("number")),
		Title:     strings.TrimSpace(r.FormValue("title")),
		Weightage: strings.TrimSpace(r.FormValue("weightage")),
	}
}

func formFrom(in criterionInput, action, submit string) *formData {
	return &formData{
		Action:    action,
		Submit:    submit,
		ManualID:  in.ManualID,
		Number:    in.Number,
		Title:     in.Title,
		Weightage: in.Weightage,
	}
}

func validate(in criterionInput, data *listData) (criteriastore.CriterionInput, bool) {
	if res := inputval.Validate(in); res.HasErrors() {
		for field, msg := range res.ByField() {
			data.FieldError(field, msg)
		}
	}
	weight, ok := parseAmount(in.Weightage, 1000)
	if in.Weightage != "" && !ok {
		data.FieldError("weightage", "Weightage must be a number from 0 to 1000.")
	}
	if data.HasErrors() {
		data.Summary()
		return criteriastore.CriterionInput{}, false
	}
	manualID, _ := primitive.ObjectIDFromHex(in.ManualID)
	return criteriastore.CriterionInput{
		ManualID:  manualID,
		Number:    in.Number,
		Title:     in.Title,
		Weightage: weight,
	}, true
}

// checkManual records a field error when the chosen manual does not exist.
func (h *Handler) checkManual(r *http.Request, id primitive.ObjectID, data *listData) error {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "get manual")
	defer cancel()
	_, err := h.manuals.Get(ctx, id)
	if errors.Is(err, storeutil.ErrNotFound) {
		data.FieldError("manual_id", "Choose an existing manual.")
		data.Summary()
		return nil
	}
	return err
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
	if ok {
		if err := h.checkManual(r, input.ManualID, &data); err != nil {
			h.errLog.Fail(w, r, "failed to load manual", err)
			return
		}
	}
	if !ok || data.HasErrors() {
		h.render(w, r, data)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "create criterion")
	defer cancel()
	c, err := h.store.CreateCriterion(ctx, input)
	if errors.Is(err, storeutil.ErrDuplicate) {
		data.FieldError("number", "This manual already has a criterion with that number.")
		data.Summary()
		h.render(w, r, data)
		return
	}
	if err != nil {
		h.errLog.Fail(w, r, "failed to create criterion", err)
		return
	}

	h.auditLogger.RecordCreated(ctx, r, "criterion", c.ID.Hex(), c.Number+" "+c.Title)
	http.Redirect(w, r, basePath, http.StatusSeeOther)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) *models.Criterion {
	id, err := storeutil.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return nil
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "get criterion")
	defer cancel()

	c, err := h.store.Criteria.Get(ctx, id)
	if errors.Is(err, storeutil.ErrNotFound) {
		http.NotFound(w, r)
		return nil
	}
	if err != nil {
		h.errLog.Fail(w, r, "failed to load criterion", err)
		return nil
	}
	return c
}

// loadDetail fills the detail card for c.
func (h *Handler) loadDetail(w http.ResponseWriter, r *http.Request, c *models.Criterion) *detail {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "list metrics")
	defer cancel()

	metrics, err := h.store.ListMetrics(ctx, c.ID)
	if err != nil {
		h.errLog.Fail(w, r, "failed to list metrics", err)
		return nil
	}
	d := &detail{row: row{Criterion: *c}, Metrics: metrics}
	for _, m := range metrics {
		d.TotalMarks += m.MaxMarks
	}
	d.MetricForm = metricForm{
		Action: basePath + "/" + c.ID.Hex() + "/metrics",
		Submit: "Add metric",
		Type:   models.MetricQuantitative,
	}
	return d
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	c := h.load(w, r)
	if c == nil {
		return
	}
	d := h.loadDetail(w, r, c)
	if d == nil {
		return
	}
	data := newData(r)
	data.Record = d
	h.render(w, r, data)
}

func (h *Handler) showEdit(w http.ResponseWriter, r *http.Request) {
	c := h.load(w, r)
	if c == nil {
		return
	}
	data := newData(r)
	data.Form = formFrom(criterionInput{
		ManualID:  c.ManualID.Hex(),
		Number:    c.Number,
		Title:     c.Title,
		Weightage: formatNumber(c.Weightage),
	}, basePath+"/"+c.ID.Hex(), "Save")
	h.render(w, r, data)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	c := h.load(w, r)
	if c == nil {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	in := readForm(r)
	data := newData(r)
	data.Form = formFrom(in, basePath+"/"+c.ID.Hex(), "Save")

	input, ok := validate(in, &data)
	if ok {
		if err := h.checkManual(r, input.ManualID, &data); err != nil {
			h.errLog.Fail(w, r, "failed to load manual", err)
			return
		}
	}
	if !ok || data.HasErrors() {
		h.render(w, r, data)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "update criterion")
	defer cancel()
	err := h.store.UpdateCriterion(ctx, c.ID, input)
	switch {
	case errors.Is(err, storeutil.ErrDuplicate):
		data.FieldError("number", "This manual already has a criterion with that number.")
		data.Summary()
		h.render(w, r, data)
		return
	case errors.Is(err, storeutil.ErrNotFound):
		http.NotFound(w, r)
		return
	case err != nil:
		h.errLog.Fail(w, r, "failed to update criterion", err)
		return
	}

	h.auditLogger.RecordUpdated(ctx, r, "criterion", c.ID.Hex(), input.Number+" "+input.Title)
	http.Redirect(w, r, basePath, http.StatusSeeOther)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	c := h.load(w, r)
	if c == nil {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "delete criterion")
	defer cancel()

	if err := h.store.DeleteCriterion(ctx, c.ID); err != nil && !errors.Is(err, storeutil.ErrNotFound) {
		h.errLog.Fail(w, r, "failed to delete criterion", err)
		return
	}
	h.auditLogger.RecordDeleted(ctx, r, "criterion", c.ID.Hex(), c.Number+" "+c.Title)
	http.Redirect(w, r, basePath, http.StatusSeeOther)
}

func readMetric(r *http.Request) metricInput {
	return metricInput{
		Number:      strings.TrimSpace(r.FormValue("metric_number")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Type:        r.FormValue("type"),
		MaxMarks:    strings.TrimSpace(r.FormValue("max_marks")),
	}
}

func validateMetric(in metricInput, criterionID primitive.ObjectID, data *listData) (criteriastore.MetricInput, bool) {
	if res := inputval.Validate(in); res.HasErrors() {
		for field, msg := range res.ByField() {
			data.FieldError(field, msg)
		}
	}
	marks, ok := parseAmount(in.MaxMarks, 1000)
	if in.MaxMarks != "" && (!ok || marks == 0) {
		data.FieldError("max_marks", "Max marks must be a number above 0 and at most 1000.")
	}
	if data.HasErrors() {
		data.Summary()
		return criteriastore.MetricInput{}, false
	}
	return criteriastore.MetricInput{
		CriterionID: criterionID,
		Number:      in.Number,
		Description: in.Description,
		Type:        in.Type,
		MaxMarks:    marks,
	}, true
}

// rerenderMetric shows the criterion detail again with the submitted metric
// values and their errors.
func (h *Handler) rerenderMetric(w http.ResponseWriter, r *http.Request, c *models.Criterion, in metricInput, action, submit string, data listData) {
	d := h.loadDetail(w, r, c)
	if d == nil {
		return
	}
	d.MetricForm = metricForm{
		Action:      action,
		Submit:      submit,
		Number:      in.Number,
		Description: in.Description,
		Type:        in.Type,
		MaxMarks:    in.MaxMarks,
	}
	data.Record = d
	h.render(w, r, data)
}

func (h *Handler) detailURL(c *models.Criterion) string {
	return basePath + "/" + c.ID.Hex()
}

func (h *Handler) createMetric(w http.ResponseWriter, r *http.Request) {
	c := h.load(w, r)
	if c == nil {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	in := readMetric(r)
	data := newData(r)
	action := h.detailURL(c) + "/metrics"

	input, ok := validateMetric(in, c.ID, &data)
	if !ok {
		h.rerenderMetric(w, r, c, in, action, "Add metric", data)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "create metric")
	defer cancel()
	m, err := h.store.CreateMetric(ctx, input)
	if errors.Is(err, storeutil.ErrDuplicate) {
		data.FieldError("metric_number", "This criterion already has a metric with that number.")
		data.Summary()
		h.rerenderMetric(w, r, c, in, action, "Add metric", data)
		return
	}
	if err != nil {
		h.errLog.Fail(w, r, "failed to create metric", err)
		return
	}

	h.auditLogger.RecordCreated(ctx, r, "metric", m.ID.Hex(), m.Number)
	http.Redirect(w, r, h.detailURL(c), http.StatusSeeOther)
}

// loadMetric fetches the {metricID} metric and checks it belongs to c.
func (h *Handler) loadMetric(w http.ResponseWriter, r *http.Request, c *models.Criterion) *models.Metric {
	id, err := storeutil.ParseID(chi.URLParam(r, "metricID"))
	if err != nil {
		http.NotFound(w, r)
		return nil
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "get metric")
	defer cancel()

	m, err := h.store.Metrics.Get(ctx, id)
	if errors.Is(err, storeutil.ErrNotFound) || (err == nil && m.CriterionID != c.ID) {
		http.NotFound(w, r)
		return nil
	}
	if err != nil {
		h.errLog.Fail(w, r, "failed to load metric", err)
		return nil
	}
	return m
}

func (h *Handler) showEditMetric(w http.ResponseWriter, r *http.Request) {
	c := h.load(w, r)
	if c == nil {
		return
	}
	m := h.loadMetric(w, r, c)
	if m == nil {
		return
	}
	in := metricInput{
		Number:      m.Number,
		Description: m.Description,
		Type:        m.Type,
		MaxMarks:    formatNumber(m.MaxMarks),
	}
	h.rerenderMetric(w, r, c, in, h.detailURL(c)+"/metrics/"+m.ID.Hex(), "Save metric", newData(r))
}

func (h *Handler) updateMetric(w http.ResponseWriter, r *http.Request) {
	c := h.load(w, r)
	if c == nil {
		return
	}
	m := h.loadMetric(w, r, c)
	if m == nil {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	in := readMetric(r)
	data := newData(r)
	action := h.detailURL(c) + "/metrics/" + m.ID.Hex()

	input, ok := validateMetric(in, c.ID, &data)
	if !ok {
		h.rerenderMetric(w, r, c, in, action, "Save metric", data)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "update metric")
	defer cancel()
	err := h.store.UpdateMetric(ctx, m.ID, input)
	if errors.Is(err, storeutil.ErrDuplicate) {
		data.FieldError("metric_number", "This criterion already has a metric with that number.")
		data.Summary()
		h.rerenderMetric(w, r, c, in, action, "Save metric", data)
		return
	}
	if err != nil {
		h.errLog.Fail(w, r, "failed to update metric", err)
		return
	}

	h.auditLogger.RecordUpdated(ctx, r, "metric", m.ID.Hex(), input.Number)
	http.Redirect(w, r, h.detailURL(c), http.StatusSeeOther)
}

func (h *Handler) deleteMetric(w http.ResponseWriter, r *http.Request) {
	c := h.load(w, r)
	if c == nil {
		return
	}
	m := h.loadMetric(w, r, c)
	if m == nil {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "delete metric")
	defer cancel()

	if err := h.store.Metrics.Delete(ctx, m.ID); err != nil && !errors.Is(err, storeutil.ErrNotFound) {
		h.errLog.Fail(w, r, "failed to delete metric", err)
		return
	}
	h.auditLogger.RecordDeleted(ctx, r, "metric", m.ID.Hex(), m.Number)
	http.Redirect(w, r, h.detailURL(c), http.StatusSeeOther)
}
