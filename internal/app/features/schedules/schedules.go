// internal/app/features/schedules/schedules.go
package schedules

import (
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"

	errorsfeature "github.com/dalemusser/strataportal/internal/app/features/errors"
	schedulestore "github.com/dalemusser/strataportal/internal/app/store/schedules"
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

const basePath = "/schedules"

// Handler serves the weekly timetable.
type Handler struct {
	store       *schedulestore.Store
	errLog      *errorsfeature.ErrorLogger
	auditLogger *auditlog.Logger
	logger      *zap.Logger
	tableOpts   []tableview.Option
}

func NewHandler(db *mongo.Database, errLog *errorsfeature.ErrorLogger, auditLogger *auditlog.Logger, logger *zap.Logger, tableOpts ...tableview.Option) *Handler {
	return &Handler{
		store:       schedulestore.New(db),
		errLog:      errLog,
		auditLogger: auditLogger,
		logger:      logger,
		tableOpts:   tableOpts,
	}
}

// Routes mounts the screen. Everyone signed in can read the timetable.
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

// dayKey sorts days in teaching order rather than by name.
func dayKey(day string) string {
	return strconv.Itoa(slices.Index(models.Weekdays(), day)+1) + " " + day
}

func columns() []tableview.Column[models.ScheduleSlot] {
	return []tableview.Column[models.ScheduleSlot]{
		{Key: "day", Label: "Day", Value: func(s models.ScheduleSlot) string { return dayKey(s.Day) }},
		{Key: "start", Label: "Start", Value: func(s models.ScheduleSlot) string { return s.Start }},
		{Key: "end", Label: "End", Value: func(s models.ScheduleSlot) string { return s.End }},
		{Key: "course", Label: "Course", Value: func(s models.ScheduleSlot) string { return s.Course }},
		{Key: "room", Label: "Room", Value: func(s models.ScheduleSlot) string { return s.Room }},
		{Key: "faculty", Label: "Faculty", Value: func(s models.ScheduleSlot) string { return s.Faculty }},
	}
}

func (h *Handler) newView() *tableview.View[models.ScheduleSlot, string] {
	opts := append([]tableview.Option{tableview.WithDefaultSort("day", tableview.Ascending)}, h.tableOpts...)
	return tableview.New(func(s models.ScheduleSlot) string { return s.ID.Hex() }, columns(), opts...)
}

type listData struct {
	formutil.Base
	Table  tableview.VM
	Rows   []models.ScheduleSlot
	Form   *formData
	Record *models.ScheduleSlot
}

type formData struct {
	Action  string
	Submit  string
	Day     string
	Start   string
	End     string
	Course  string
	Room    string
	Faculty string
	Days    []string
}

type slotInput struct {
	Day     string `json:"day" validate:"required,weekday" label:"Day"`
	Start   string `json:"start" validate:"required,hhmm" label:"Start"`
	End     string `json:"end" validate:"required,hhmm" label:"End"`
	Course  string `json:"course" validate:"required,max=200" label:"Course"`
	Room    string `json:"room" validate:"required,max=20" label:"Room"`
	Faculty string `json:"faculty" validate:"max=100" label:"Faculty"`
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, data listData) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.logger, "list schedule slots")
	defer cancel()

	all, err := h.store.List(ctx, nil)
	if err != nil {
		h.errLog.Fail(w, r, "failed to list schedule slots", err)
		return
	}
	res, vm := tableview.Load(h.newView(), r, all, basePath)
	data.Table = vm
	data.Rows = res.Rows
	listpage.Render(w, r, "schedules", data)
}

func newData(r *http.Request) listData {
	return listData{Base: formutil.NewBase(r, "Schedules", "/dashboard")}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, newData(r))
}

func (h *Handler) showNew(w http.ResponseWriter, r *http.Request) {
	data := newData(r)
	data.Form = formFrom(slotInput{}, basePath+"/new", "Create")
	h.render(w, r, data)
}

func readForm(r *http.Request) slotInput {
	return slotInput{
		Day:     r.FormValue("day"),
		Start:   strings.TrimSpace(r.FormValue("start")),
		End:     strings.TrimSpace(r.FormValue("end")),
		Course:  strings.TrimSpace(r.FormValue("course")),
		Room:    strings.TrimSpace(r.FormValue("room")),
		Faculty: strings.TrimSpace(r.FormValue("faculty")),
	}
}

func formFrom(in slotInput, action, submit string) *formData {
	return &formData{
		Action:  action,
		Submit:  submit,
		Day:     in.Day,
		Start:   in.Start,
		End:     in.End,
		Course:  in.Course,
		Room:    in.Room,
		Faculty: in.Faculty,
		Days:    models.Weekdays(),
	}
}

func validate(in slotInput, data *listData) (schedulestore.Input, bool) {
	if res := inputval.Validate(in); res.HasErrors() {
		for field, msg := range res.ByField() {
			data.FieldError(field, msg)
		}
	}
	start, okStart := inputval.ClockMinutes(in.Start)
	end, okEnd := inputval.ClockMinutes(in.End)
	if okStart && okEnd && end <= start {
		data.FieldError("end", "End must be after start.")
	}
	if data.HasErrors() {
		data.Summary()
		return schedulestore.Input{}, false
	}
	return schedulestore.Input{
		Day:     in.Day,
		Start:   inputval.CanonicalClock(in.Start),
		End:     inputval.CanonicalClock(in.End),
		Course:  in.Course,
		Room:    in.Room,
		Faculty: in.Faculty,
	}, true
}

// roomBusy records the clash on the room field.
func roomBusy(data *listData, in schedulestore.Input) {
	data.FieldError("room", "Room "+strings.ToUpper(in.Room)+" is already booked on "+in.Day+" for part of "+in.Start+" to "+in.End+".")
	data.Summary()
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

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "create schedule slot")
	defer cancel()
	slot, err := h.store.Create(ctx, input)
	if errors.Is(err, schedulestore.ErrRoomBusy) {
		roomBusy(&data, input)
		h.render(w, r, data)
		return
	}
	if err != nil {
		h.errLog.Fail(w, r, "failed to create schedule slot", err)
		return
	}

	h.auditLogger.RecordCreated(ctx, r, "schedule_slot", slot.ID.Hex(), slotLabel(slot))
	http.Redirect(w, r, basePath, http.StatusSeeOther)
}

func slotLabel(s *models.ScheduleSlot) string {
	return s.Day + " " + s.Start + "-" + s.End + " " + s.Course
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) *models.ScheduleSlot {
	id, err := storeutil.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return nil
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "get schedule slot")
	defer cancel()

	slot, err := h.store.Get(ctx, id)
	if errors.Is(err, storeutil.ErrNotFound) {
		http.NotFound(w, r)
		return nil
	}
	if err != nil {
		h.errLog.Fail(w, r, "failed to load schedule slot", err)
		return nil
	}
	return slot
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	slot := h.load(w, r)
	if slot == nil {
		return
	}
	data := newData(r)
	data.Record = slot
	h.render(w, r, data)
}

func (h *Handler) showEdit(w http.ResponseWriter, r *http.Request) {
	slot := h.load(w, r)
	if slot == nil {
		return
	}
	data := newData(r)
	data.Form = formFrom(slotInput{
		Day:     slot.Day,
		Start:   slot.Start,
		End:     slot.End,
		Course:  slot.Course,
		Room:    slot.Room,
		Faculty: slot.Faculty,
	}, basePath+"/"+slot.ID.Hex(), "Save")
	h.render(w, r, data)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	slot := h.load(w, r)
	if slot == nil {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	in := readForm(r)
	data := newData(r)
	data.Form = formFrom(in, basePath+"/"+slot.ID.Hex(), "Save")

	input, ok := validate(in, &data)
	if !ok {
		h.render(w, r, data)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "update schedule slot")
	defer cancel()
	err := h.store.Update(ctx, slot.ID, input)
	switch {
	case errors.Is(err, schedulestore.ErrRoomBusy):
		roomBusy(&data, input)
		h.render(w, r, data)
		return
	case errors.Is(err, storeutil.ErrNotFound):
		http.NotFound(w, r)
		return
	case err != nil:
		h.errLog.Fail(w, r, "failed to update schedule slot", err)
		return
	}

	updated := models.ScheduleSlot{Day: input.Day, Start: input.Start, End: input.End, Course: input.Course}
	h.auditLogger.RecordUpdated(ctx, r, "schedule_slot", slot.ID.Hex(), slotLabel(&updated))
	http.Redirect(w, r, basePath, http.StatusSeeOther)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	slot := h.load(w, r)
	if slot == nil {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.logger, "delete schedule slot")
	defer cancel()

	if err := h.store.Delete(ctx, slot.ID); err != nil && !errors.Is(err, storeutil.ErrNotFound) {
		h.errLog.Fail(w, r, "failed to delete schedule slot", err)
		return
	}
	h.auditLogger.RecordDeleted(ctx, r, "schedule_slot", slot.ID.Hex(), slotLabel(slot))
	http.Redirect(w, r, basePath, http.StatusSeeOther)
}
