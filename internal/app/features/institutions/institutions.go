// internal/app/features/institutions/institutions.go
package institutions

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	errorsfeature "github.com/dalemusser/strataportal/internal/app/features/errors"
	institutionstore "github.com/dalemusser/strataportal/internal/app/store/institutions"
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
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const basePath = "/institutions"

// Handler serves the institutions screen.
type Handler struct {
	store       *institutionstore.Store
	errLog      *errorsfeature.ErrorLogger
	auditLogger *auditlog.Logger
	logger      *zap.Logger
	tableOpts   []tableview.Option
}

// NewHandler creates an institutions Handler. tableOpts configure every
// table the screen builds.
func NewHandler(db *mongo.Database, errLog *errorsfeature.ErrorLogger, auditLogger *auditlog.Logger, logger *zap.Logger, tableOpts ...tableview.Option) *Handler {
	return &Handler{
		store:       institutionstore.New(db),
		errLog:      errLog,
		auditLogger: auditLogger,
		logger:      logger,
		tableOpts:   tableOpts,
	}
}

// Routes mounts the screen. Faculty have no access.
func Routes(h *Handler, sessionMgr *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sessionMgr.RequireRole(models.RoleAdmin, models.RoleCoordinator))

	r.Get("/", h.list)
	r.Get("/new", h.showNew)
	r.Post("/new", h.create)
	r.Get("/{id}", h.show)
	r.Get("/{id}/edit", h.showEdit)
	r.Post("/{id}", h.update)
	r.Post("/{id}/delete", h.delete)
	return r
}

func columns() []tableview.Column[models.Institution] {
	return []tableview.Column[models.Institution]{
		{Key: "code", Label: "Code", Value: func(i models.Institution) string { return i.Code }},
		{Key: "name", Label: "Name", Value: func(i models.Institution) string { return i.Name }},
		{Key: "category", Label: "Category", Value: func(i models.Institution) string { return i.Category }},
		{Key: "affiliation", Label: "Affiliation", Value: func(i models.Institution) string { return i.Affiliation }},
		{Key: "city", Label: "City", Value: func(i models.Institution) string { return i.City }},
		{Key: "established", Label: "Established", Value: func(i models.Institution) string { return yearText(i.Established) }},
	}
}

func (h *Handler) newView() *tableview.View[models.Institution, string] {
	opts := append([]tableview.Option{tableview.WithDefaultSort("code", tableview.Ascending)}, h.tableOpts...)
	return tableview.New(func(i models.Institution) string { return i.ID.Hex() }, columns(), opts...)
}

// listData is the page model. Form and Record select the optional cards.
type listData struct {
	formutil.Base
	Table  tableview.VM
	Rows   []models.Institution
	Form   *formData
	Record *models.Institution
}

type formData struct {
	Action      string
	Submit      string
	Code        string
	Name        string
	Category    string
	Affiliation string
	City        string
	Established string
	Categories  []string
}

// institutionInput is the submitted form.
type institutionInput struct {
	Code        string `json:"code" validate:"required,code" label:"Code"`
	Name        string `json:"name" validate:"required,max=200" label:"Name"`
	Category    string `json:"category" validate:"required,category" label:"Category"`
	Affiliation string `json:"affiliation" validate:"max=200" label:"Affiliation"`
	City        string `json:"city" validate:"max=100" label:"City"`
	Established string `json:"established" label:"Established"`
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data listData) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.logger, "list institutions")
	defer cancel()

	all, err := h.store.List(ctx, nil)
	if err != nil {
		h.errLog.Fail(w, r, "failed to list institutions", err)
		return
	}
	res, vm := tableview.Load(h.newView(), r, all, basePath)
	data.Table = vm
	data.Rows = res.Rows
	listpage.Render(w, r, "institutions", data)
}

func newData(r *http.Request) listData {
	return listData{Base: formutil.NewBase(r, "Institutions", "/dashboard")}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, newData(r))
}

func (h *Handler) showNew(w http.ResponseWriter, r *http.Request) {
	data := newData(r)
	data.Form = &formData{Action: basePath + "/new", Submit: "Create", Categories: models.InstitutionCategories()}
	h.render(w, r, data)
}

func readForm(r *http.Request) institutionInput {
	return institutionInput{
		Code:        strings.TrimSpace(r.FormValue("code")),
		Name:        strings.TrimSpace(r.FormValue("name")),
		Category:    r.FormValue("category"),
		Affiliation: strings.TrimSpace(r.FormValue("affiliation")),
		City:        strings.TrimSpace(r.FormValue("city")),
		Established: strings.TrimSpace(r.FormValue("established")),
	}
}

// validate checks in and converts it to a store input. Failures are
// recorded on data.
func validate(in institutionInput, data *listData) (institutionstore.Input, bool) {
	if res := inputval.Validate(in); res.HasErrors() {
		for field, msg := range res.ByField() {
			data.FieldError(field, msg)
		}
	}
	year, ok := parseYear(in.Established)
	if !ok {
		data.FieldError("established", "Established must be a year between 1800 and this year.")
	}
	if data.HasErrors() {
		data.Summary()
		return institutionstore.Input{}, false
	}
	return institutionstore.Input{
		Code:        in.Code,
		Name:        in.Name,
		Category:    in.Category,
		Affiliation: in.Affiliation,
		City:        in.City,
		Established: year,
	}, true
}

// parseYear accepts an empty value (unknown) or a plausible founding year.
func parseYear(s string) (int, bool) {
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1800 || n > time.Now().Year() {
		return 0, false
	}
	return n, true
}

func yearText(y int) string {
	if y == 0 {
		return ""
	}
	return strconv.Itoa(y)
}

func formFrom(in institutionInput, action, submit string) *formData {
	return &formData{
		Action:      action,
		Submit:      submit,
		Code:        in.Code,
		Name:        in.Name,
		Category:    in.Category,
		Affiliation: in.Affiliation,
		City:        in.City,
		Established: in.Established,
		Categories:  models.InstitutionCategories(),
	}
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

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "create institution")
	defer cancel()
	inst, err := h.store.Create(ctx, input)
	if errors.Is(err, storeutil.ErrDuplicate) {
		data.FieldError("code", "An institution with this code already exists.")
		data.Summary()
		h.render(w, r, data)
		return
	}
	if err != nil {
		h.errLog.Fail(w, r, "failed to create institution", err)
		return
	}

	h.auditLogger.RecordCreated(ctx, r, "institution", inst.Code, inst.Name)
	http.Redirect(w, r, basePath, http.StatusSeeOther)
}

// load fetches the institution named by the {id} URL parameter. It answers
// 404 or 500 itself and returns nil in that case.
func (h *Handler) load(w http.ResponseWriter, r *http.Request) *models.Institution {
	id, err := storeutil.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return nil
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "get institution")
	defer cancel()

	inst, err := h.store.Get(ctx, id)
	if errors.Is(err, storeutil.ErrNotFound) {
		http.NotFound(w, r)
		return nil
	}
	if err != nil {
		h.errLog.Fail(w, r, "failed to load institution", err)
		return nil
	}
	return inst
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	inst := h.load(w, r)
	if inst == nil {
		return
	}
	data := newData(r)
	data.Record = inst
	h.render(w, r, data)
}

func (h *Handler) showEdit(w http.ResponseWriter, r *http.Request) {
	inst := h.load(w, r)
	if inst == nil {
		return
	}
	data := newData(r)
	data.Form = formFrom(institutionInput{
		Code:        inst.Code,
		Name:        inst.Name,
		Category:    inst.Category,
		Affiliation: inst.Affiliation,
		City:        inst.City,
		Established: yearText(inst.Established),
	}, basePath+"/"+inst.ID.Hex(), "Save")
	h.render(w, r, data)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	inst := h.load(w, r)
	if inst == nil {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	in := readForm(r)
	data := newData(r)
	data.Form = formFrom(in, basePath+"/"+inst.ID.Hex(), "Save")

	input, ok := validate(in, &data)
	if !ok {
		h.render(w, r, data)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "update institution")
	defer cancel()
	err := h.store.Update(ctx, inst.ID, input)
	if errors.Is(err, storeutil.ErrDuplicate) {
		data.FieldError("code", "An institution with this code already exists.")
		data.Summary()
		h.render(w, r, data)
		return
	}
	if errors.Is(err, storeutil.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.errLog.Fail(w, r, "failed to update institution", err)
		return
	}

	h.auditLogger.RecordUpdated(ctx, r, "institution", input.Code, input.Name)
	http.Redirect(w, r, basePath, http.StatusSeeOther)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	inst := h.load(w, r)
	if inst == nil {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "delete institution")
	defer cancel()

	if err := h.store.Delete(ctx, inst.ID); err != nil && !errors.Is(err, storeutil.ErrNotFound) {
		h.errLog.Fail(w, r, "failed to delete institution", err)
		return
	}
	h.auditLogger.RecordDeleted(ctx, r, "institution", inst.Code, inst.Name)
	http.Redirect(w, r, basePath, http.StatusSeeOther)
}
