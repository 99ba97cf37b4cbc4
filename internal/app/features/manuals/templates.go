// internal/app/features/manuals/templates.go
package manuals

import (
	"embed"

	"github.com/dalemusser/waffle/pantry/templates"
)

//go:embed templates/*.gohtml
var FS embed.FS

func init() {
	templates.Register(templates.Set{
		Name:     "manuals",
		FS:       FS,
		Patterns: []string{"templates/*.gohtml"},
	})
}
