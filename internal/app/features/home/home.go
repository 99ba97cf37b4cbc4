// internal/app/features/home/home.go
package home

import (
	"net/http"

	"github.com/dalemusser/strataportal/internal/app/system/auth"
	"github.com/dalemusser/strataportal/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler provides home page handlers.
type Handler struct {
	logger *zap.Logger
}

// NewHandler creates a new home Handler.
func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{logger: logger}
}

// Routes returns a chi.Router with home routes mounted.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Index)
	return r
}

// Index sends signed-in users to their dashboard and shows everyone else
// the landing page with a sign-in link.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.CurrentUser(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	vm := viewdata.New(r)
	vm.Title = "Welcome"
	templates.Render(w, r, "home/index", vm)
}
