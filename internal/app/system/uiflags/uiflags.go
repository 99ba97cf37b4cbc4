// Package uiflags carries per-browser UI preferences (currently the folded
// sidebar) through the request context.
//
// The flags live in a signed cookie. Manager.Load decodes them once per request
// and places them in the context where templates read them through viewdata;
// the toggle endpoint is the only writer.
package uiflags

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/strataportal/internal/app/system/jsonutil"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
)

// Flags holds the UI preferences for one browser.
type Flags struct {
	SidebarFolded bool `json:"sidebarFolded"`
}

type ctxKey struct{}

// WithFlags returns ctx carrying f.
func WithFlags(ctx context.Context, f Flags) context.Context {
	return context.WithValue(ctx, ctxKey{}, f)
}

// FromContext returns the flags in ctx, or the zero Flags.
func FromContext(ctx context.Context) Flags {
	f, _ := ctx.Value(ctxKey{}).(Flags)
	return f
}

// From is FromContext for a request.
func From(r *http.Request) Flags {
	return FromContext(r.Context())
}

// ErrShortKey is returned when the signing key is under 32 bytes.
var ErrShortKey = errors.New("uiflags: cookie key must be at least 32 bytes")

const cookieMaxAge = 365 * 24 * time.Hour

// Manager reads and writes the flags cookie.
type Manager struct {
	codec  *securecookie.SecureCookie
	name   string
	secure bool
	logger *zap.Logger
}

// NewManager creates a Manager that signs cookies named name with hashKey.
func NewManager(hashKey []byte, name string, secure bool, logger *zap.Logger) (*Manager, error) {
	if len(hashKey) < 32 {
		return nil, ErrShortKey
	}
	if name == "" {
		name = "portal-ui"
	}
	codec := securecookie.New(hashKey, nil).MaxAge(int(cookieMaxAge.Seconds()))
	return &Manager{codec: codec, name: name, secure: secure, logger: logger}, nil
}

// Read decodes the flags cookie. Missing or tampered cookies yield zero Flags.
func (m *Manager) Read(r *http.Request) Flags {
	c, err := r.Cookie(m.name)
	if err != nil {
		return Flags{}
	}
	var f Flags
	if err := m.codec.Decode(m.name, c.Value, &f); err != nil {
		m.logger.Debug("ignoring invalid ui flags cookie", zap.Error(err))
		return Flags{}
	}
	return f
}

// Write stores f in the flags cookie.
func (m *Manager) Write(w http.ResponseWriter, f Flags) error {
	val, err := m.codec.Encode(m.name, f)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.name,
		Value:    val,
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Load is middleware that places the request's flags in its context.
func (m *Manager) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithFlags(r.Context(), m.Read(r))))
	})
}

// ToggleSidebar flips the sidebar flag.
// POST /ui/sidebar
//
// HTMX callers get the new flags as JSON; regular form posts are redirected
// back to the "return" field.
func (m *Manager) ToggleSidebar(w http.ResponseWriter, r *http.Request) {
	f := From(r)
	f.SidebarFolded = !f.SidebarFolded

	if err := m.Write(w, f); err != nil {
		m.logger.Error("failed to write ui flags cookie", zap.Error(err))
		http.Error(w, "could not save preference", http.StatusInternalServerError)
		return
	}

	if r.Header.Get("HX-Request") == "true" {
		jsonutil.OK(w, f)
		return
	}
	http.Redirect(w, r, urlutil.SafeReturn(r.FormValue("return"), "", "/dashboard"), http.StatusSeeOther)
}
