// internal/app/features/dashboard/dashboard.go
package dashboard

import (
	"context"
	"net/http"

	"github.com/dalemusser/strataportal/internal/app/store/audit"
	criteriastore "github.com/dalemusser/strataportal/internal/app/store/criteria"
	datalabelstore "github.com/dalemusser/strataportal/internal/app/store/datalabels"
	examstore "github.com/dalemusser/strataportal/internal/app/store/examinations"
	institutionstore "github.com/dalemusser/strataportal/internal/app/store/institutions"
	manualstore "github.com/dalemusser/strataportal/internal/app/store/manuals"
	obestore "github.com/dalemusser/strataportal/internal/app/store/obe"
	schedulestore "github.com/dalemusser/strataportal/internal/app/store/schedules"
	userstore "github.com/dalemusser/strataportal/internal/app/store/users"
	"github.com/dalemusser/strataportal/internal/app/system/auth"
	"github.com/dalemusser/strataportal/internal/app/system/navigation"
	"github.com/dalemusser/strataportal/internal/app/system/timeouts"
	"github.com/dalemusser/strataportal/internal/app/system/viewdata"
	"github.com/dalemusser/strataportal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// counter returns the number of records behind one navigation item.
type counter func(ctx context.Context) (int64, error)

// Handler provides dashboard handlers.
type Handler struct {
	nav          *navigation.Tree
	counters     map[string]counter
	institutions *institutionstore.Store
	exams        *examstore.Store
	logger       *zap.Logger
}

// NewHandler creates a new dashboard Handler. Tiles follow nav; a nil nav
// uses the built-in tree.
func NewHandler(db *mongo.Database, nav *navigation.Tree, logger *zap.Logger) *Handler {
	if nav == nil {
		nav = navigation.Default()
	}
	institutions := institutionstore.New(db)
	exams := examstore.New(db)
	all := func(count func(context.Context, bson.M) (int64, error)) counter {
		return func(ctx context.Context) (int64, error) { return count(ctx, nil) }
	}
	auditStore := audit.New(db)
	return &Handler{
		nav: nav,
		counters: map[string]counter{
			"/institutions": all(institutions.Count),
			"/manuals":      all(manualstore.New(db).Count),
			"/criteria":     all(criteriastore.New(db).Criteria.Count),
			"/datalabels":   all(datalabelstore.New(db).Count),
			"/examinations": all(exams.Count),
			"/schedules":    all(schedulestore.New(db).Count),
			"/obe":          all(obestore.New(db).Count),
			"/users":        all(userstore.New(db).Count),
			"/auditlog": func(ctx context.Context) (int64, error) {
				return auditStore.CountByFilter(ctx, audit.QueryFilter{})
			},
		},
		institutions: institutions,
		exams:        exams,
		logger:       logger,
	}
}

// Tile is one dashboard card.
type Tile struct {
	Label string
	Path  string
	Icon  string
	Count int64
	// HasCount is false for tiles without a collection or when counting failed.
	HasCount bool
}

// Breakdown is one labelled count inside a tile group.
type Breakdown struct {
	Label string
	Count int
}

// DashboardVM is the view model for the dashboard.
type DashboardVM struct {
	viewdata.BaseVM
	Tiles      []Tile
	Categories []Breakdown
	Statuses   []Breakdown
}

// Routes returns a chi.Router with dashboard routes mounted.
func Routes(h *Handler, sessionMgr *auth.SessionManager) http.Handler {
	r := chi.NewRouter()
	r.Use(sessionMgr.RequireSignedIn)
	r.Get("/", h.showDashboard)
	return r
}

// showDashboard shows a tile per screen the user may open, with its record
// count. Counting errors are logged and leave the tile without a number.
func (h *Handler) showDashboard(w http.ResponseWriter, r *http.Request) {
	sessionUser, ok := auth.CurrentUser(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.logger, "dashboard counts")
	defer cancel()

	vm := DashboardVM{BaseVM: viewdata.NewBaseVM(r, "Dashboard", "/")}
	for _, it := range h.nav.Items() {
		if it.Path == "/dashboard" || !it.Visible(sessionUser.Role) {
			continue
		}
		tile := Tile{Label: it.Label, Path: it.Path, Icon: it.Icon}
		if count, ok := h.counters[it.Path]; ok {
			n, err := count(ctx)
			if err != nil {
				h.logger.Warn("dashboard count failed", zap.String("path", it.Path), zap.Error(err))
			} else {
				tile.Count, tile.HasCount = n, true
			}
		}
		vm.Tiles = append(vm.Tiles, tile)
	}

	if sessionUser.HasRole(models.RoleAdmin, models.RoleCoordinator) {
		if byCat, err := h.institutions.CountByCategory(ctx); err != nil {
			h.logger.Warn("dashboard category counts failed", zap.Error(err))
		} else {
			vm.Categories = breakdown(models.InstitutionCategories(), byCat, nil)
		}
	}
	if byStatus, err := h.exams.CountByStatus(ctx); err != nil {
		h.logger.Warn("dashboard status counts failed", zap.Error(err))
	} else {
		vm.Statuses = breakdown(examStatuses(), byStatus, statusLabel)
	}

	templates.Render(w, r, "dashboard/index", vm)
}

// breakdown lists counts in keys order, skipping zeros. label renames keys
// when non-nil.
func breakdown(keys []string, counts map[string]int, label func(string) string) []Breakdown {
	var out []Breakdown
	for _, k := range keys {
		n := counts[k]
		if n == 0 {
			continue
		}
		name := k
		if label != nil {
			name = label(k)
		}
		out = append(out, Breakdown{Label: name, Count: n})
	}
	return out
}

var statusLabels = map[string]string{
	models.ExamDraft:            "Draft",
	models.ExamScheduled:        "Scheduled",
	models.ExamInProgress:       "In progress",
	models.ExamCompleted:        "Completed",
	models.ExamResultsPublished: "Results published",
	models.ExamCancelled:        "Cancelled",
}

func statusLabel(s string) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return s
}

// examStatuses lists the workflow statuses in display order.
func examStatuses() []string {
	steps := examstore.Workflow.Steps()
	out := make([]string, len(steps))
	for i, st := range steps {
		out[i] = string(st)
	}
	return out
}
