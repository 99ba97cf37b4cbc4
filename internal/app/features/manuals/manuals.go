// internal/app/features/manuals/manuals.go
package manuals

import (
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	errorsfeature "github.com/dalemusser/strataportal/internal/app/features/errors"
	manualstore "github.com/dalemusser/strataportal/internal/app/store/manuals"
	"github.com/dalemusser/strataportal/internal/app/store/storeutil"
	"github.com/dalemusser/strataportal/internal/app/system/auditlog"
	"github.com/dalemusser/strataportal/internal/app/system/auth"
	"github.com/dalemusser/strataportal/internal/app/system/formutil"
	"github.com/dalemusser/strataportal/internal/app/system/htmlsanitize"
	"github.com/dalemusser/strataportal/internal/app/system/inputval"
	"github.com/dalemusser/strataportal/internal/app/system/listpage"
	"github.com/dalemusser/strataportal/internal/app/system/tableview"
	"github.com/dalemusser/strataportal/internal/app/system/timeouts"
	"github.com/dalemusser/strataportal/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const basePath = "/manuals"

// Handler serves the accreditation manuals screen.
type Handler struct {
	store       *manualstore.Store
	errLog      *errorsfeature.ErrorLogger
	auditLogger *auditlog.Logger
	logger      *zap.Logger
	tableOpts   []tableview.Option
}

func NewHandler(db *mongo.Database, errLog *errorsfeature.ErrorLogger, auditLogger *auditlog.Logger, logger *zap.Logger, tableOpts ...tableview.Option) *Handler {
	return &Handler{
		store:       manualstore.New(db),
		errLog:      errLog,
		auditLogger: auditLogger,
		logger:      logger,
		tableOpts:   tableOpts,
	}
}

// Routes mounts the screen. Every signed-in role may read; writes need an
// editor role.
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
	})
	return r
}

func columns() []tableview.Column[models.Manual] {
	return []tableview.Column[models.Manual]{
		{Key: "manual_id", Label: "Manual ID", Value: func(m models.Manual) string { return m.ManualID }},
		{Key: "title", Label: "Title", Value: func(m models.Manual) string { return m.Title }},
		{Key: "agency", Label: "Agency", Value: func(m models.Manual) string { return m.Agency }},
		{Key: "version", Label: "Version", Value: func(m models.Manual) string { return m.Version }},
		{Key: "category", Label: "Category", Value: func(m models.Manual) string { return m.InstitutionCategory }},
		{Key: "year", Label: "Year", Value: func(m models.Manual) string { return yearText(m.Year) }},
	}
}

func (h *Handler) newView() *tableview.View[models.Manual, string] {
	opts := append([]tableview.Option{tableview.WithDefaultSort("manual_id", tableview.Ascending)}, h.tableOpts...)
	return tableview.New(func(m models.Manual) string { return m.ID.Hex() }, columns(), opts...)
}

type listData struct {
	formutil.Base
	Table  tableview.VM
	Rows   []models.Manual
	Form   *formData
	Record *models.Manual
	Notes  template.HTML
}

type formData struct {
	Action     string
	Submit     string
	ManualID   string
	Title      string
	Agency     string
	Version    string
	Category   string
	Year       string
	Notes      string
	Agencies   []string
	Categories []string
}

type manualInput struct {
	ManualID string `json:"manual_id" validate:"required,code" label:"Manual ID"`
	Title    string `json:"title" validate:"required,max=200" label:"Title"`
	Agency   string `json:"agency" validate:"required,agency" label:"Agency"`
	Version  string `json:"version" validate:"max=20" label:"Version"`
	Category string `json:"category" validate:"required,category" label:"Institution category"`
	Year     string `json:"year" label:"Year"`
	Notes    string `json:"notes" validate:"max=20000" label:"Notes"`
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data listData) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.logger, "list manuals")
	defer cancel()

	all, err := h.store.List(ctx, nil)
	if err != nil {
		h.errLog.Fail(w, r, "failed to list manuals", err)
		return
	}
	res, vm := tableview.Load(h.newView(), r, all, basePath)
	data.Table = vm
	data.Rows = res.Rows
	listpage.Render(w, r, "manuals", data)
}

func newData(r *http.Request) listData {
	return listData{Base: formutil.NewBase(r, "Accreditation Manuals", "/dashboard")}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, newData(r))
}

func (h *Handler) showNew(w http.ResponseWriter, r *http.Request) {
	data := newData(r)
	data.Form = formFrom(manualInput{Agency: models.AgencyNAAC}, basePath+"/new", "Create")
	h.render(w, r, data)
}

func readForm(r *http.Request) manualInput {
	return manualInput{
		ManualID: strings.TrimSpace(r.FormValue("manual_id")),
		Title:    strings.TrimSpace(r.FormValue("title")),
		Agency:   r.FormValue("agency"),
		Version:  strings.TrimSpace(r.FormValue("version")),
		Category: r.FormValue("category"),
		Year:     strings.TrimSpace(r.FormValue("year")),
		Notes:    r.FormValue("notes"),
	}
}

func formFrom(in manualInput, action, submit string) *formData {
	return &formData{
		Action:     action,
		Submit:     submit,
		ManualID:   in.ManualID,
		Title:      in.Title,
		Agency:     in.Agency,
		Version:    in.Version,
		Category:   in.Category,
		Year:       in.Year,
		Notes:      in.Notes,
		Agencies:   models.Agencies(),
		Categories: models.InstitutionCategories(),
	}
}

func validate(in manualInput, data *listData) (manualstore.Input, bool) {
	if res := inputval.Validate(in); res.HasErrors() {
		for field, msg := range res.ByField() {
			data.FieldError(field, msg)
		}
	}
	year := 0
	if in.Year != "" {
		n, err := strconv.Atoi(in.Year)
		if err != nil || n < 1990 || n > 2100 {
			data.FieldError("year", "Year must be between 1990 and 2100.")
		}
		year = n
	}
	if data.HasErrors() {
		data.Summary()
		return manualstore.Input{}, false
	}
	return manualstore.Input{
		ManualID:            in.ManualID,
		Title:               in.Title,
		Agency:              in.Agency,
		Version:             in.Version,
		InstitutionCategory: in.Category,
		Year:                year,
		NotesHTML:           htmlsanitize.Sanitize(in.Notes),
	}, true
}

func yearText(y int) string {
	if y == 0 {
		return ""
	}
	return strconv.Itoa(y)
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

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "create manual")
	defer cancel()
	m, err := h.store.Create(ctx, input)
	if errors.Is(err, storeutil.ErrDuplicate) {
		data.FieldError("manual_id", "A manual with this ID already exists.")
		data.Summary()
		h.render(w, r, data)
		return
	}
	if err != nil {
		h.errLog.Fail(w, r, "failed to create manual", err)
		return
	}

	h.auditLogger.RecordCreated(ctx, r, "manual", m.ManualID, m.Title)
	http.Redirect(w, r, basePath, http.StatusSeeOther)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) *models.Manual {
	id, err := storeutil.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return nil
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "get manual")
	defer cancel()

	m, err := h.store.Get(ctx, id)
	if errors.Is(err, storeutil.ErrNotFound) {
		http.NotFound(w, r)
		return nil
	}
	if err != nil {
		h.errLog.Fail(w, r, "failed to load manual", err)
		return nil
	}
	return m
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	m := h.load(w, r)
	if m == nil {
		return
	}
	data := newData(r)
	data.Record = m
	data.Notes = htmlsanitize.PrepareForDisplay(m.NotesHTML)
	h.render(w, r, data)
}

func (h *Handler) showEdit(w http.ResponseWriter, r *http.Request) {
	m := h.load(w, r)
	if m == nil {
		return
	}
	data := newData(r)
	data.Form = formFrom(manualInput{
		ManualID: m.ManualID,
		Title:    m.Title,
		Agency:   m.Agency,
		Version:  m.Version,
		Category: m.InstitutionCategory,
		Year:     yearText(m.Year),
		Notes:    m.NotesHTML,
	}, basePath+"/"+m.ID.Hex(), "Save")
	h.render(w, r, data)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	m := h.load(w, r)
	if m == nil {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	in := readForm(r)
	data := newData(r)
	data.Form = formFrom(in, basePath+"/"+m.ID.Hex(), "Save")

	input, ok := validate(in, &data)
	if !ok {
		h.render(w, r, data)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "update manual")
	defer cancel()
	err := h.store.Update(ctx, m.ID, input)
	switch {
	case errors.Is(err, storeutil.ErrDuplicate):
		data.FieldError("manual_id", "A manual with this ID already exists.")
		data.Summary()
		h.render(w, r, data)
		return
	case errors.Is(err, storeutil.ErrNotFound):
		http.NotFound(w, r)
		return
	case err != nil:
		h.errLog.Fail(w, r, "failed to update manual", err)
		return
	}

	h.auditLogger.RecordUpdated(ctx, r, "manual", m.ManualID, input.Title)
	http.Redirect(w, r, basePath, http.StatusSeeOther)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	m := h.load(w, r)
	if m == nil {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "delete manual")
	defer cancel()

	if err := h.store.Delete(ctx, m.ID); err != nil && !errors.Is(err, storeutil.ErrNotFound) {
		h.errLog.Fail(w, r, "failed to delete manual", err)
		return
	}
	h.auditLogger.RecordDeleted(ctx, r, "manual", m.ManualID, m.Title)
	http.Redirect(w, r, basePath, http.StatusSeeOther)
}
