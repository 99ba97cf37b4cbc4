// internal/app/features/obe/obe.go
package obe

import (
	"net/http"
	"net/url"
	"strconv"

	errorsfeature "github.com/dalemusser/strataportal/internal/app/features/errors"
	obestore "github.com/dalemusser/strataportal/internal/app/store/obe"
	"github.com/dalemusser/strataportal/internal/app/system/auditlog"
	"github.com/dalemusser/strataportal/internal/app/system/auth"
	"github.com/dalemusser/strataportal/internal/app/system/formutil"
	"github.com/dalemusser/strataportal/internal/app/system/inputval"
	"github.com/dalemusser/strataportal/internal/app/system/normalize"
	"github.com/dalemusser/strataportal/internal/app/system/timeouts"
	"github.com/dalemusser/strataportal/internal/app/system/wizard"
	"github.com/dalemusser/strataportal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const basePath = "/obe"

// Sections is the accordion. One section is open at a time and any
// section can be opened from any other.
var Sections = wizard.MustAccordion(
	obestore.SectionProgramOutcomes,
	obestore.SectionCourseOutcomes,
	obestore.SectionMappings,
	obestore.SectionThresholds,
)

var sectionLabels = map[wizard.Step]string{
	obestore.SectionProgramOutcomes: "Program outcomes",
	obestore.SectionCourseOutcomes:  "Course outcomes",
	obestore.SectionMappings:        "CO-PO mapping",
	obestore.SectionThresholds:      "Attainment thresholds",
}

// Handler serves the OBE configuration screen.
type Handler struct {
	store       *obestore.Store
	errLog      *errorsfeature.ErrorLogger
	auditLogger *auditlog.Logger
	logger      *zap.Logger
}

func NewHandler(db *mongo.Database, errLog *errorsfeature.ErrorLogger, auditLogger *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		store:       obestore.New(db),
		errLog:      errLog,
		auditLogger: auditLogger,
		logger:      logger,
	}
}

// Routes mounts the screen. Faculty can read a programme's configuration.
func Routes(h *Handler, sessionMgr *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sessionMgr.RequireSignedIn)

	r.Get("/", h.show)
	r.With(sessionMgr.RequireRole(models.RoleAdmin, models.RoleCoordinator)).
		Post("/{program}/{section}", h.save)
	return r
}

type sectionVM struct {
	Key     wizard.Step
	Label   string
	Summary string
	URL     string
	Open    bool
}

type gridCell struct {
	PO    string
	Field string
	Level int
}

type gridRow struct {
	CO    models.Outcome
	Cells []gridCell
}

type pageData struct {
	formutil.Base
	Program  string
	Programs []string
	Cursor   *wizard.Cursor
	Sections []sectionVM
	Action   string

	OutcomeText string
	POs         []models.Outcome
	Grid        []gridRow
	Levels      []int
	Thresholds  thresholdInput
}

// pageURL opens section of program.
func pageURL(program string, section wizard.Step) string {
	return basePath + "?program=" + url.QueryEscape(program) + "&section=" + url.QueryEscape(string(section))
}

func newData(r *http.Request) pageData {
	return pageData{Base: formutil.NewBase(r, "OBE Configuration", "/dashboard"), Levels: []int{1, 2, 3}}
}

// fill shapes cfg for the page with cur's section open. Posted values
// already set on data are kept.
func fill(data *pageData, cfg models.OBEConfig, cur *wizard.Cursor) {
	data.Program = cfg.Program
	data.Cursor = cur
	data.Action = basePath + "/" + url.PathEscape(cfg.Program) + "/" + string(cur.Current())
	data.POs = cfg.ProgramOutcomes

	for _, s := range Sections.Steps() {
		vm := sectionVM{Key: s, Label: sectionLabels[s], URL: pageURL(cfg.Program, s), Open: cur.Is(s)}
		switch s {
		case obestore.SectionProgramOutcomes:
			vm.Summary = countText(len(cfg.ProgramOutcomes), "outcome")
		case obestore.SectionCourseOutcomes:
			vm.Summary = countText(len(cfg.CourseOutcomes), "outcome")
		case obestore.SectionMappings:
			vm.Summary = countText(len(cfg.Mappings), "link")
		case obestore.SectionThresholds:
			vm.Summary = "target " + strconv.Itoa(cfg.Thresholds.Target) + "%"
		}
		data.Sections = append(data.Sections, vm)
	}

	switch cur.Current() {
	case obestore.SectionProgramOutcomes:
		if data.OutcomeText == "" {
			data.OutcomeText = outcomeText(cfg.ProgramOutcomes, false)
		}
	case obestore.SectionCourseOutcomes:
		if data.OutcomeText == "" {
			data.OutcomeText = outcomeText(cfg.CourseOutcomes, true)
		}
	case obestore.SectionMappings:
		if data.Grid == nil {
			levels := map[string]int{}
			for _, m := range cfg.Mappings {
				levels[mappingField(m.CO, m.PO)] = m.Level
			}
			data.Grid = grid(cfg, func(field string) int { return levels[field] })
		}
	case obestore.SectionThresholds:
		if data.Thresholds == (thresholdInput{}) {
			data.Thresholds = thresholdText(cfg.Thresholds)
		}
	}
}

func grid(cfg models.OBEConfig, level func(field string) int) []gridRow {
	rows := make([]gridRow, 0, len(cfg.CourseOutcomes))
	for _, co := range cfg.CourseOutcomes {
		row := gridRow{CO: co}
		for _, po := range cfg.ProgramOutcomes {
			f := mappingField(co.Code, po.Code)
			row.Cells = append(row.Cells, gridCell{PO: po.Code, Field: f, Level: level(f)})
		}
		rows = append(rows, row)
	}
	return rows
}

func countText(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data pageData) {
	templates.Render(w, r, "obe/page", data)
}

// show renders the accordion for ?program= with ?section= open. Without a
// program the first configured one is shown.
func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "load obe config")
	defer cancel()

	data := newData(r)
	programs, err := h.store.Programs(ctx)
	if err != nil {
		h.errLog.Fail(w, r, "failed to list programmes", err)
		return
	}
	data.Programs = programs

	program := normalize.Code(r.URL.Query().Get("program"))
	if program == "" && len(programs) > 0 {
		program = programs[0]
	}
	if program != "" && !inputval.IsValidCode(program) {
		data.SetError("Programme codes use only letters, digits and dashes (2 to 20).")
		program = ""
	}
	if program == "" {
		h.render(w, r, data)
		return
	}

	step, err := Sections.Parse(r.URL.Query().Get("section"))
	if err != nil {
		step = Sections.Start()
	}
	cur, _ := Sections.CursorAt(step)

	cfg, err := h.store.Get(ctx, program)
	if err != nil {
		h.errLog.Fail(w, r, "failed to load obe config", err)
		return
	}
	fill(&data, cfg, cur)
	h.render(w, r, data)
}

// save stores the posted section and opens the next one. Invalid input
// re-renders the section with the entered values.
func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	program := normalize.Code(chi.URLParam(r, "program"))
	step, err := Sections.Parse(chi.URLParam(r, "section"))
	if err != nil || !inputval.IsValidCode(program) {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "save obe section")
	defer cancel()

	cfg, err := h.store.Get(ctx, program)
	if err != nil {
		h.errLog.Fail(w, r, "failed to load obe config", err)
		return
	}
	cur, _ := Sections.CursorAt(step)
	data := newData(r)

	var value any
	pruned := cfg.Mappings
	switch step {
	case obestore.SectionProgramOutcomes, obestore.SectionCourseOutcomes:
		withCourse := step == obestore.SectionCourseOutcomes
		text := r.FormValue("outcomes")
		list, msg := parseOutcomes(text, withCourse)
		if msg != "" {
			data.OutcomeText = text
			data.SetError(msg)
			break
		}
		if list == nil {
			list = []models.Outcome{}
		}
		if withCourse {
			pruned = pruneMappings(cfg.Mappings, list, cfg.ProgramOutcomes)
		} else {
			pruned = pruneMappings(cfg.Mappings, cfg.CourseOutcomes, list)
		}
		value = list

	case obestore.SectionMappings:
		if len(cfg.CourseOutcomes) == 0 || len(cfg.ProgramOutcomes) == 0 {
			data.SetError("Add program and course outcomes before mapping them.")
			break
		}
		list, msg := parseMappings(cfg.CourseOutcomes, cfg.ProgramOutcomes, r.FormValue)
		if msg != "" {
			data.Grid = grid(cfg, func(field string) int {
				n, _ := strconv.Atoi(r.FormValue(field))
				return n
			})
			data.SetError(msg)
			break
		}
		if list == nil {
			list = []models.COPOMapping{}
		}
		value = list

	case obestore.SectionThresholds:
		in := thresholdInput{
			Target: r.FormValue("target"),
			Level1: r.FormValue("level1"),
			Level2: r.FormValue("level2"),
			Level3: r.FormValue("level3"),
		}
		t, errs := in.parse()
		if len(errs) > 0 {
			for field, msg := range errs {
				data.FieldError(field, msg)
			}
			data.Summary()
			data.Thresholds = in
			break
		}
		value = t
	}

	if data.HasErrors() {
		fill(&data, cfg, cur)
		h.render(w, r, data)
		return
	}

	if err := h.store.SaveSection(ctx, program, string(step), value); err != nil {
		h.errLog.Fail(w, r, "failed to save obe section", err)
		return
	}
	if len(pruned) != len(cfg.Mappings) {
		if err := h.store.SaveSection(ctx, program, obestore.SectionMappings, pruned); err != nil {
			h.errLog.Fail(w, r, "failed to prune co-po mappings", err)
			return
		}
	}
	h.auditLogger.RecordUpdated(ctx, r, "obe_config", program, sectionLabels[step])

	if !cur.IsLast() {
		_ = cur.Next()
	}
	http.Redirect(w, r, pageURL(program, cur.Current()), http.StatusSeeOther)
}
