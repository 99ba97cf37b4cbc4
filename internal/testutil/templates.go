package testutil

import (
	"sync"

	"github.com/dalemusser/strataportal/internal/app/resources"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

var (
	bootOnce sync.Once
	bootErr  error
)

// BootTemplatesOnce boots a non-reloading template engine with the shared
// layout set and installs it for templates.Render.
//
// Feature sets register themselves from init, so a test package sees its
// own feature's templates plus the layout.
func BootTemplatesOnce() error {
	bootOnce.Do(func() {
		resources.LoadSharedTemplates()
		eng := templates.New(false)
		if bootErr = eng.Boot(zap.NewNop()); bootErr != nil {
			return
		}
		templates.UseEngine(eng, zap.NewNop())
	})
	return bootErr
}

// MustBootTemplates is BootTemplatesOnce for handler tests.
func MustBootTemplates(t interface{ Fatalf(string, ...any) }) {
	if err := BootTemplatesOnce(); err != nil {
		t.Fatalf("failed to boot templates: %v", err)
	}
}
