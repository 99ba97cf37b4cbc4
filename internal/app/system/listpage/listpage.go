// Package listpage renders the list screens: the whole page for normal
// requests, or only the table card when htmx asks for it.
package listpage

import (
	"net/http"

	"github.com/dalemusser/strataportal/internal/app/system/tableview"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// Render writes "<feature>/list", or "<feature>/table" for a table-card
// request. Both templates take the same data.
func Render(w http.ResponseWriter, r *http.Request, feature string, data any) {
	if tableview.IsPartial(r) {
		templates.RenderSnippet(w, feature+"/table", data)
		return
	}
	templates.Render(w, r, feature+"/list", data)
}

// Options builds the tableview options every list screen starts from.
type Options struct {
	PageSizes       []int
	DefaultPageSize int
	Locale          string
	MemoSize        int
}

// TableOptions converts o. An unparsable locale falls back to the root
// collation and is logged.
func (o Options) TableOptions(logger *zap.Logger) []tableview.Option {
	opts := []tableview.Option{
		tableview.WithPageSizes(o.PageSizes...),
		tableview.WithPageSize(o.DefaultPageSize),
	}
	if o.Locale != "" {
		tag, err := language.Parse(o.Locale)
		if err != nil {
			logger.Warn("unknown sort locale, using root collation", zap.String("locale", o.Locale), zap.Error(err))
		} else {
			opts = append(opts, tableview.WithLocale(tag))
		}
	}
	if o.MemoSize > 0 {
		opts = append(opts, tableview.WithMemo(o.MemoSize))
	}
	return opts
}
