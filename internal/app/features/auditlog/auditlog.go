// internal/app/features/auditlog/auditlog.go
package auditlog

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - LoginID / loginID / login_id: The human-readable string users type to log in

import (
	"net/http"
	"slices"
	"time"

	errorsfeature "github.com/dalemusser/strataportal/internal/app/features/errors"
	"github.com/dalemusser/strataportal/internal/app/store/audit"
	"github.com/dalemusser/strataportal/internal/app/system/auth"
	"github.com/dalemusser/strataportal/internal/app/system/formutil"
	"github.com/dalemusser/strataportal/internal/app/system/listpage"
	"github.com/dalemusser/strataportal/internal/app/system/tableview"
	"github.com/dalemusser/strataportal/internal/app/system/timeouts"
	"github.com/dalemusser/strataportal/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	basePath   = "/auditlog"
	timeLayout = "2006-01-02 15:04:05"
	// window is how many recent events the table works over.
	window = 1000
)

// Handler serves the audit log.
type Handler struct {
	auditStore *audit.Store
	errLog     *errorsfeature.ErrorLogger
	logger     *zap.Logger
	tableOpts  []tableview.Option
}

// NewHandler creates a new audit log Handler.
func NewHandler(db *mongo.Database, errLog *errorsfeature.ErrorLogger, logger *zap.Logger, tableOpts ...tableview.Option) *Handler {
	return &Handler{
		auditStore: audit.New(db),
		errLog:     errLog,
		logger:     logger,
		tableOpts:  tableOpts,
	}
}

// Routes returns a chi.Router with audit log routes mounted. Admins only.
func Routes(h *Handler, sessionMgr *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sessionMgr.RequireRole(models.RoleAdmin))

	r.Get("/", h.list)

	return r
}

var eventLabels = map[string]string{
	audit.EventLoginSuccess:             "Signed in",
	audit.EventLoginFailedUserNotFound:  "Sign-in failed: unknown login",
	audit.EventLoginFailedWrongPassword: "Sign-in failed: wrong password",
	audit.EventLoginFailedUserDisabled:  "Sign-in failed: account disabled",
	audit.EventLoginLockedOut:           "Sign-in locked out",
	audit.EventLogout:                   "Signed out",
	audit.EventRecordCreated:            "Created",
	audit.EventRecordUpdated:            "Updated",
	audit.EventRecordDeleted:            "Deleted",
	audit.EventStatusChanged:            "Status changed",
}

// listItem is one audit event shaped for display.
type listItem struct {
	ID        string
	When      string
	Category  string
	Event     string
	Actor     string
	Entity    string
	Record    string
	Summary   string
	IP        string
	UserAgent string
	Success   bool
	Failure   string
	Details   []detail
}

type detail struct {
	Key   string
	Value string
}

func toItem(e audit.Event, loc *time.Location) listItem {
	item := listItem{
		ID:        e.ID.Hex(),
		When:      e.CreatedAt.In(loc).Format(timeLayout),
		Category:  e.Category,
		Event:     e.EventType,
		Actor:     e.ActorLogin,
		Entity:    e.Entity,
		Record:    e.EntityID,
		IP:        e.IP,
		UserAgent: e.UserAgent,
		Success:   e.Success,
		Failure:   e.FailureReason,
	}
	if l, ok := eventLabels[e.EventType]; ok {
		item.Event = l
	}
	switch {
	case e.Details["from"] != "" || e.Details["to"] != "":
		item.Summary = e.Details["from"] + " → " + e.Details["to"]
	case e.Details["label"] != "":
		item.Summary = e.Details["label"]
	case e.Details["auth_method"] != "":
		item.Summary = "via " + e.Details["auth_method"]
	case e.FailureReason != "":
		item.Summary = e.FailureReason
	}
	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		item.Details = append(item.Details, detail{Key: k, Value: e.Details[k]})
	}
	return item
}

func columns() []tableview.Column[listItem] {
	return []tableview.Column[listItem]{
		{Key: "when", Label: "When", Value: func(i listItem) string { return i.When }},
		{Key: "category", Label: "Category", Value: func(i listItem) string { return i.Category }},
		{Key: "event", Label: "Event", Value: func(i listItem) string { return i.Event }},
		{Key: "actor", Label: "Who", Value: func(i listItem) string { return i.Actor }},
		{Key: "entity", Label: "Entity", Value: func(i listItem) string { return i.Entity }},
		{Key: "record", Label: "Record", Value: func(i listItem) string { return i.Record }},
		{Key: "summary", Label: "Summary", Value: func(i listItem) string { return i.Summary }},
	}
}

func (h *Handler) newView() *tableview.View[listItem, string] {
	opts := append([]tableview.Option{tableview.WithDefaultSort("when", tableview.Descending)}, h.tableOpts...)
	return tableview.New(func(i listItem) string { return i.ID }, columns(), opts...)
}

type listData struct {
	formutil.Base
	Table    tableview.VM
	Rows     []listItem
	Record   *listItem
	Window   int
	Timezone string
}

// list shows the most recent events. The table's selection opens the
// event's details above it.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.logger, "list audit events")
	defer cancel()

	events, err := h.auditStore.Query(ctx, audit.QueryFilter{Limit: window})
	if err != nil {
		h.errLog.Fail(w, r, "failed to query audit events", err)
		return
	}

	loc := time.Local
	items := make([]listItem, len(events))
	for i, e := range events {
		items[i] = toItem(e, loc)
	}

	data := listData{
		Base:     formutil.NewBase(r, "Audit Log", "/dashboard"),
		Window:   window,
		Timezone: loc.String(),
	}
	res, vm := tableview.Load(h.newView(), r, items, basePath)
	data.Table = vm
	data.Rows = res.Rows
	if res.HasSelection {
		for i := range items {
			if items[i].ID == res.Selected {
				data.Record = &items[i]
				break
			}
		}
	}
	listpage.Render(w, r, "auditlog", data)
}
