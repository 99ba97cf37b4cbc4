// internal/app/resources/resources.go
// Package resources embeds the portal's shared layout templates and its
// stylesheet and script.
package resources

import (
	"embed"
	"io/fs"
	"net/http"
	"sync"

	"github.com/dalemusser/waffle/pantry/templates"
)

// layout, menu and the shared table partials
//
//go:embed templates/*.gohtml
var sharedFS embed.FS

//go:embed assets/css/*.css assets/js/*.js
var assetsFS embed.FS

var registerOnce sync.Once

// LoadSharedTemplates registers the layout set with the template engine.
// Call it before the engine boots; repeat calls are no-ops.
func LoadSharedTemplates() {
	registerOnce.Do(func() {
		templates.Register(templates.Set{
			Name:     "shared",
			FS:       sharedFS,
			Patterns: []string{"templates/*.gohtml"},
		})
	})
}

// Assets returns the embedded css/ and js/ trees.
func Assets() fs.FS {
	sub, err := fs.Sub(assetsFS, "assets")
	if err != nil {
		panic("resources: embedded assets missing: " + err.Error())
	}
	return sub
}

// AssetsHandler serves Assets under prefix, e.g. /assets/css/portal.css.
// The files only change with a new build, so clients may cache them for a day.
func AssetsHandler(prefix string) http.Handler {
	files := http.StripPrefix(prefix, http.FileServer(http.FS(Assets())))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=86400")
		files.ServeHTTP(w, r)
	})
}
