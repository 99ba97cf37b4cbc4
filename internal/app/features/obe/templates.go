// internal/app/features/obe/templates.go
package obe

import (
	"embed"

	"github.com/dalemusser/waffle/pantry/templates"
)

//go:embed templates/*.gohtml
var FS embed.FS

func init() {
	templates.Register(templates.Set{
		Name:     "obe",
		FS:       FS,
		Patterns: []string{"templates/*.gohtml"},
	})
}
