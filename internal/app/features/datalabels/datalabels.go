// internal/app/features/datalabels/datalabels.go
package datalabels

import (
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	errorsfeature "github.com/dalemusser/strataportal/internal/app/features/errors"
	datalabelstore "github.com/dalemusser/strataportal/internal/app/store/datalabels"
	draftstore "github.com/dalemusser/strataportal/internal/app/store/drafts"
	manualstore "github.com/dalemusser/strataportal/internal/app/store/manuals"
	"github.com/dalemusser/strataportal/internal/app/store/storeutil"
	"github.com/dalemusser/strataportal/internal/app/system/auditlog"
	"github.com/dalemusser/strataportal/internal/app/system/auth"
	"github.com/dalemusser/strataportal/internal/app/system/formutil"
	"github.com/dalemusser/strataportal/internal/app/system/htmlsanitize"
	"github.com/dalemusser/strataportal/internal/app/system/listpage"
	"github.com/dalemusser/strataportal/internal/app/system/tableview"
	"github.com/dalemusser/strataportal/internal/app/system/timeouts"
	"github.com/dalemusser/strataportal/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const basePath = "/datalabels"

// Handler serves the data labels list and the wizard that creates them.
type Handler struct {
	store       *datalabelstore.Store
	drafts      *draftstore.Store
	manuals     *manualstore.Store
	errLog      *errorsfeature.ErrorLogger
	auditLogger *auditlog.Logger
	logger      *zap.Logger
	tableOpts   []tableview.Option
}

func NewHandler(db *mongo.Database, errLog *errorsfeature.ErrorLogger, auditLogger *auditlog.Logger, logger *zap.Logger, tableOpts ...tableview.Option) *Handler {
	return &Handler{
		store:       datalabelstore.New(db),
		drafts:      draftstore.New(db),
		manuals:     manualstore.New(db),
		errLog:      errLog,
		auditLogger: auditLogger,
		logger:      logger,
		tableOpts:   tableOpts,
	}
}

// Routes mounts the list, the wizard and record actions. Only editors may
// use the wizard.
func Routes(h *Handler, sessionMgr *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sessionMgr.RequireSignedIn)

	r.Get("/", h.list)
	r.Get("/{id}", h.show)

	r.Group(func(r chi.Router) {
		r.Use(sessionMgr.RequireRole(models.RoleAdmin, models.RoleCoordinator))
		r.Post("/new", h.start)
		r.Get("/wizard/{token}", h.showStep)
		r.Post("/wizard/{token}", h.submitStep)
		r.Post("/{id}/delete", h.delete)
	})
	return r
}

func columns() []tableview.Column[models.DataLabel] {
	return []tableview.Column[models.DataLabel]{
		{Key: "manual", Label: "Manual", Value: func(d models.DataLabel) string { return d.ManualCode }},
		{Key: "sop", Label: "SOP", Value: func(d models.DataLabel) string { return d.SOPTitle }},
		{Key: "inputs", Label: "Input types", Value: func(d models.DataLabel) string { return strings.Join(d.InputTypes, ", ") }},
		{Key: "labels", Label: "Labels", Value: func(d models.DataLabel) string { return strconv.Itoa(len(d.LabelTypes)) }},
		{Key: "created", Label: "Created", Value: func(d models.DataLabel) string { return d.CreatedAt.Format("2006-01-02") }},
	}
}

func (h *Handler) newView() *tableview.View[models.DataLabel, string] {
	opts := append([]tableview.Option{tableview.WithDefaultSort("created", tableview.Descending)}, h.tableOpts...)
	return tableview.New(func(d models.DataLabel) string { return d.ID.Hex() }, columns(), opts...)
}

type listData struct {
	formutil.Base
	Table  tableview.VM
	Rows   []models.DataLabel
	Record *models.DataLabel
	SOP    template.HTML
	Wizard *wizardData
}

func newData(r *http.Request) listData {
	return listData{Base: formutil.NewBase(r, "Data Labels", "/dashboard")}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data listData) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.logger, "list data labels")
	defer cancel()

	all, err := h.store.List(ctx, nil)
	if err != nil {
		h.errLog.Fail(w, r, "failed to list data labels", err)
		return
	}
	res, vm := tableview.Load(h.newView(), r, all, basePath)
	data.Table = vm
	data.Rows = res.Rows
	listpage.Render(w, r, "datalabels", data)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, newData(r))
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) *models.DataLabel {
	id, err := storeutil.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return nil
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "get data label")
	defer cancel()

	dl, err := h.store.Get(ctx, id)
	if errors.Is(err, storeutil.ErrNotFound) {
		http.NotFound(w, r)
		return nil
	}
	if err != nil {
		h.errLog.Fail(w, r, "failed to load data label", err)
		return nil
	}
	return dl
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	dl := h.load(w, r)
	if dl == nil {
		return
	}
	data := newData(r)
	data.Record = dl
	data.SOP = htmlsanitize.PrepareForDisplay(dl.SOPHTML)
	h.render(w, r, data)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	dl := h.load(w, r)
	if dl == nil {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "delete data label")
	defer cancel()

	if err := h.store.Delete(ctx, dl.ID); err != nil && !errors.Is(err, storeutil.ErrNotFound) {
		h.errLog.Fail(w, r, "failed to delete data label", err)
		return
	}
	h.auditLogger.RecordDeleted(ctx, r, "data_label", dl.ID.Hex(), dl.ManualCode+" "+dl.SOPTitle)
	http.Redirect(w, r, basePath, http.StatusSeeOther)
}
