// internal/app/features/examinations/templates.go
package examinations

import (
	"embed"

	"github.com/dalemusser/waffle/pantry/templates"
)

//go:embed templates/*.gohtml
var FS embed.FS

func init() {
	templates.Register(templates.Set{
		Name:     "examinations",
		FS:       FS,
		Patterns: []string{"templates/*.gohtml"},
	})
}
