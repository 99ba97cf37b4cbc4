// Package formutil helps re-render forms after a failed submission: the
// entered values are echoed back with an error message and per-field errors.
//
//	type institutionForm struct {
//		formutil.Base
//		Code string
//		Name string
//	}
//
//	data := institutionForm{Base: formutil.NewBase(r, "Add Institution", "/institutions")}
//	data.SetError("Code is required.")
package formutil

import (
	"html/template"
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/dalemusser/strataportal/internal/app/system/viewdata"
)

// Base is embedded by form view models.
type Base struct {
	viewdata.BaseVM
	Error  template.HTML
	Fields map[string]string // field name -> message
}

// NewBase builds a Base for a form page.
func NewBase(r *http.Request, title, backDefault string) Base {
	return Base{BaseVM: viewdata.NewBaseVM(r, title, backDefault)}
}

// SetError sets the form-level message.
func (b *Base) SetError(msg string) {
	b.Error = template.HTML(template.HTMLEscapeString(msg))
}

// FieldError records a message for one field. The first message for a
// field wins.
func (b *Base) FieldError(field, msg string) {
	if b.Fields == nil {
		b.Fields = map[string]string{}
	}
	if _, ok := b.Fields[field]; !ok {
		b.Fields[field] = msg
	}
}

// HasErrors reports whether any error has been recorded.
func (b *Base) HasErrors() bool {
	return b.Error != "" || len(b.Fields) > 0
}

// ErrorFor returns the message for field, for use in templates.
func (b Base) ErrorFor(field string) string {
	return b.Fields[field]
}

// Summary joins the field messages, ordered by field name, into the form-level error if none is set.
func (b *Base) Summary() {
	if b.Error != "" || len(b.Fields) == 0 {
		return
	}
	msgs := make([]string, 0, len(b.Fields))
	for _, k := range slices.Sorted(maps.Keys(b.Fields)) {
		msgs = append(msgs, b.Fields[k])
	}
	b.SetError(strings.Join(msgs, " "))
}
