// Package htmlsanitize cleans rich text entered through the portal, such as
// data label SOPs and the configured site footer.
package htmlsanitize

import (
	"html"
	"html/template"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var (
	richOnce sync.Once
	rich     *bluemonday.Policy

	strictOnce sync.Once
	strict     *bluemonday.Policy
)

func richPolicy() *bluemonday.Policy {
	richOnce.Do(func() {
		rich = bluemonday.UGCPolicy()
		// SOPs often carry small tables of documents and responsibilities.
		rich.AllowElements("table", "thead", "tbody", "tr", "th", "td", "caption")
		rich.AllowAttrs("colspan", "rowspan").OnElements("th", "td")
		rich.AllowElements("u", "s", "sub", "sup", "mark")
		rich.RequireNoFollowOnLinks(true)
		rich.AddTargetBlankToFullyQualifiedLinks(true)
	})
	return rich
}

func strictPolicy() *bluemonday.Policy {
	strictOnce.Do(func() { strict = bluemonday.StrictPolicy() })
	return strict
}

// Sanitize strips dangerous markup and keeps basic formatting, links and tables.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return richPolicy().Sanitize(s)
}

// SanitizeToHTML is Sanitize typed for direct use in templates.
func SanitizeToHTML(s string) template.HTML {
	return template.HTML(Sanitize(s))
}

// IsPlainText reports whether s has no tags.
func IsPlainText(s string) bool {
	return !strings.Contains(s, "<") || !strings.Contains(s, ">")
}

// PrepareForDisplay renders stored content that may be plain text or HTML.
// Plain text keeps its line breaks.
func PrepareForDisplay(s string) template.HTML {
	if s == "" {
		return ""
	}
	if IsPlainText(s) {
		escaped := template.HTMLEscapeString(s)
		return template.HTML("<p>" + strings.ReplaceAll(escaped, "\n", "<br>") + "</p>")
	}
	return SanitizeToHTML(s)
}

// Excerpt returns the text of s with all markup removed, collapsed to single
// spaces and cut to at most max runes (with an ellipsis when cut).
func Excerpt(s string, max int) string {
	text := html.UnescapeString(strictPolicy().Sanitize(s))
	text = strings.Join(strings.Fields(text), " ")
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	r := []rune(text)
	return strings.TrimSpace(string(r[:max])) + "…"
}
