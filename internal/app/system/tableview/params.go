// internal/app/system/tableview/params.go
package tableview

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// Query-string parameter names shared by every list screen.
const (
	ParamQuery    = "q"
	ParamSort     = "sort"
	ParamDir      = "dir"
	ParamSize     = "size"
	ParamPage     = "page"
	ParamSelected = "sel"
)

// Bind restores view state from the request's query string. Parameters are
// applied in the order query, sort, size, page so that the query and size
// resets to page 1 do not overwrite an explicit page request.
// Absent parameters keep the View's current (default) state.
func Bind[T any](v *View[T, string], r *http.Request) {
	if q := query.Get(r, ParamQuery); q != "" {
		v.SetQuery(q)
	}
	if key := query.Get(r, ParamSort); key != "" {
		v.SortBy(key, ParseDirection(query.Get(r, ParamDir)))
	}
	if size := query.Get(r, ParamSize); size != "" {
		v.SetPageSizeText(size)
	}
	if p := query.Get(r, ParamPage); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			v.SetPage(n)
		}
	}
	if sel := query.Get(r, ParamSelected); sel != "" {
		v.Select(sel)
	}
}

// Values encodes the View's state as query parameters. Defaults are omitted
// so links stay short.
func Values[T any](v *View[T, string], page int) url.Values {
	vals := url.Values{}
	if q := v.Query(); q != "" {
		vals.Set(ParamQuery, q)
	}
	if s, ok := v.Sort(); ok {
		vals.Set(ParamSort, s.Key)
		vals.Set(ParamDir, string(s.Direction))
	}
	if v.PageSize() != v.cfg.pageSize {
		vals.Set(ParamSize, strconv.Itoa(v.PageSize()))
	}
	if page > 1 {
		vals.Set(ParamPage, strconv.Itoa(page))
	}
	if id, ok := v.Selected(); ok {
		vals.Set(ParamSelected, id)
	}
	return vals
}

// HeaderVM is one sortable column header.
type HeaderVM struct {
	Key    string
	Label  string
	Active bool
	Dir    string // "asc" or "desc" when Active
	URL    string // link that applies the next sort for this column
}

// VM is the template-facing rendering of a View and one of its pages.
// Screens embed it next to their own row slice.
type VM struct {
	BasePath string
	Query    string
	SortKey  string
	SortDir  string

	PageSize  int
	PageSizes []int

	Headers []HeaderVM

	Page       int
	TotalPages int
	Total      int
	RangeStart int
	RangeEnd   int
	HasPrev    bool
	HasNext    bool
	PrevURL    string
	NextURL    string

	Selected     string
	HasSelection bool
	ClearURL     string

	vals url.Values
}

// NewVM builds the table view model for basePath (the list URL of the screen).
func NewVM[T any](v *View[T, string], res Result[T, string], basePath string) VM {
	vals := Values(v, res.Page)
	if !res.HasSelection {
		vals.Del(ParamSelected)
	}

	vm := VM{
		BasePath:     basePath,
		Query:        v.Query(),
		PageSize:     v.PageSize(),
		PageSizes:    v.PageSizes(),
		Page:         res.Page,
		TotalPages:   res.TotalPages,
		Total:        res.TotalCount,
		RangeStart:   res.RangeStart(),
		RangeEnd:     res.RangeEnd(),
		HasPrev:      res.HasPrev(),
		HasNext:      res.HasNext(),
		Selected:     res.Selected,
		HasSelection: res.HasSelection,
		vals:         vals,
	}
	if s, ok := v.Sort(); ok {
		vm.SortKey = s.Key
		vm.SortDir = string(s.Direction)
	}

	vm.PrevURL = vm.with(ParamPage, strconv.Itoa(res.PrevPage()))
	vm.NextURL = vm.with(ParamPage, strconv.Itoa(res.NextPage()))
	vm.ClearURL = vm.without(ParamSelected)

	for _, c := range v.columns {
		next := v.NextSort(c.Key)
		h := HeaderVM{Key: c.Key, Label: c.Label, Active: c.Key == vm.SortKey}
		if h.Active {
			h.Dir = vm.SortDir
		}
		h.URL = vm.link(func(q url.Values) {
			q.Set(ParamSort, next.Key)
			q.Set(ParamDir, string(next.Direction))
		})
		vm.Headers = append(vm.Headers, h)
	}
	return vm
}

// SelectURL links to the same page with id selected.
func (vm VM) SelectURL(id string) string {
	return vm.with(ParamSelected, id)
}

// PageURL links to page n with everything else unchanged.
func (vm VM) PageURL(n int) string {
	return vm.with(ParamPage, strconv.Itoa(n))
}

// IsSelected reports whether id is the current selection.
func (vm VM) IsSelected(id string) bool {
	return vm.HasSelection && vm.Selected == id
}

// RowSelect is what a row's selection control needs.
type RowSelect struct {
	URL string
	On  bool
}

// SelectCell returns the selection control state for row id.
func (vm VM) SelectCell(id string) RowSelect {
	return RowSelect{URL: vm.SelectURL(id), On: vm.IsSelected(id)}
}

// RecordURL links to a page of record id, such as suffix "/edit", keeping
// the table state so the list looks the same behind the page.
func (vm VM) RecordURL(id, suffix string) string {
	u := vm.BasePath + "/" + url.PathEscape(id) + suffix
	if q := vm.StateQuery(); q != "" {
		u += "?" + q
	}
	return u
}

// StateQuery is the encoded state, for hidden form fields and redirects.
func (vm VM) StateQuery() string {
	return vm.vals.Encode()
}

func (vm VM) with(key, val string) string {
	return vm.link(func(q url.Values) { q.Set(key, val) })
}

func (vm VM) without(key string) string {
	return vm.link(func(q url.Values) { q.Del(key) })
}

func (vm VM) link(edit func(url.Values)) string {
	q := url.Values{}
	for k, vs := range vm.vals {
		q[k] = append([]string(nil), vs...)
	}
	edit(q)
	if q.Get(ParamPage) == "1" {
		q.Del(ParamPage)
	}
	if len(q) == 0 {
		return vm.BasePath
	}
	return vm.BasePath + "?" + q.Encode()
}

// Load runs the list-screen pipeline for one request: bind the query
// string, drop a selection the filter no longer matches, page the source
// and build the view model.
func Load[T any](v *View[T, string], r *http.Request, source []T, basePath string) (Result[T, string], VM) {
	Bind(v, r)
	v.Reconcile(source)
	res := v.Page(source)
	return res, NewVM(v, res, basePath)
}

// IsPartial reports whether r asks for the table card only.
func IsPartial(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true" && r.Header.Get("HX-Target") == TableTarget
}

// TableTarget is the element id of the table card in list templates.
const TableTarget = "table-card"
