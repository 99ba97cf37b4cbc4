// internal/app/system/viewdata/viewdata.go
package viewdata

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - LoginID / loginID / login_id: The human-readable string users type to log in

import (
	"html/template"
	"net/http"
	"sync"

	"github.com/dalemusser/strataportal/internal/app/system/auth"
	"github.com/dalemusser/strataportal/internal/app/system/authz"
	"github.com/dalemusser/strataportal/internal/app/system/htmlsanitize"
	"github.com/dalemusser/strataportal/internal/app/system/navigation"
	"github.com/dalemusser/strataportal/internal/app/system/uiflags"
	"github.com/dalemusser/strataportal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/gorilla/csrf"
)

// Site holds the branding shown on every page. It comes from config.
type Site struct {
	Name       string
	FooterHTML string
	Nav        *navigation.Tree
}

var (
	mu   sync.RWMutex
	site = Site{Name: models.DefaultSiteName}
	foot = template.HTML(models.DefaultFooterHTML)
)

// Init installs the site branding. Call once at startup from bootstrap.
// Empty fields keep their defaults.
func Init(s Site) {
	mu.Lock()
	defer mu.Unlock()
	if s.Name != "" {
		site.Name = s.Name
	}
	if s.FooterHTML != "" {
		foot = htmlsanitize.SanitizeToHTML(s.FooterHTML)
	}
	if s.Nav != nil {
		site.Nav = s.Nav
	}
}

func current() (Site, template.HTML) {
	mu.RLock()
	defer mu.RUnlock()
	s := site
	if s.Nav == nil {
		s.Nav = navigation.Default()
	}
	return s, foot
}

// BaseVM contains the fields every page template expects.
// Embed it in feature view models:
//
//	type listData struct {
//	    viewdata.BaseVM
//	    Table tableview.VM
//	}
type BaseVM struct {
	SiteName   string
	FooterHTML template.HTML

	// User context (from auth middleware)
	IsLoggedIn bool
	UserID     string
	LoginID    string
	Role       string
	UserName   string
	Department string
	IsAdmin    bool
	CanEdit    bool

	// Page context
	Title       string
	Section     string // label of the active nav item
	BackURL     string
	CurrentPath string

	// Layout
	Nav           []navigation.SectionVM
	SidebarFolded bool

	CSRFToken string
}

// NewBaseVM builds the BaseVM for a page. backDefault is used for the back
// button when the request carries no safe return URL.
func NewBaseVM(r *http.Request, title, backDefault string) BaseVM {
	s, footer := current()
	role, name, userID, signedIn := authz.UserCtx(r)
	path := httpnav.CurrentPath(r)

	vm := BaseVM{
		SiteName:      s.Name,
		FooterHTML:    footer,
		IsLoggedIn:    signedIn,
		Role:          role,
		UserName:      name,
		Title:         title,
		BackURL:       httpnav.ResolveBackURL(r, backDefault),
		CurrentPath:   path,
		SidebarFolded: uiflags.From(r).SidebarFolded,
		CSRFToken:     csrf.Token(r),
	}

	if signedIn {
		vm.UserID = userID.Hex()
		vm.IsAdmin = authz.IsAdmin(r)
		vm.CanEdit = authz.CanEdit(r)
		vm.Nav = s.Nav.Menu(role, path)
		if u, ok := auth.CurrentUser(r); ok {
			vm.LoginID = u.LoginID
			vm.Department = u.Department
		}
	}
	if it, ok := s.Nav.Active(path); ok {
		vm.Section = it.Label
	}
	return vm
}

// New builds a BaseVM without a title or back link.
func New(r *http.Request) BaseVM {
	return NewBaseVM(r, "", "/")
}

// SiteName returns the configured site name.
func SiteName() string {
	s, _ := current()
	return s.Name
}
