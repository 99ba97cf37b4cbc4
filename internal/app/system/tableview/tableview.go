// Package tableview implements the table behavior shared by every list screen
// in the portal: free-text filter, single-column stable sort, pagination and
// single-row selection over a small in-memory record list.
//
// A View is generic over the record type T and the record key K. The owning
// screen supplies the columns (field accessors used for both filtering and
// sorting) and an identifier accessor, then feeds the current record list to
// Page on every render:
//
//	view := tableview.New(func(m models.Manual) string { return m.ID.Hex() },
//	    []tableview.Column[models.Manual]{
//	        {Key: "manualId", Label: "Manual ID", Value: func(m models.Manual) string { return m.ManualID }},
//	        {Key: "category", Label: "Category", Value: func(m models.Manual) string { return m.InstitutionCategory }},
//	    },
//	    tableview.WithDefaultSort("manualId", tableview.Ascending),
//	)
//	view.SetQuery("engineering")
//	page := view.Page(manuals)
//
// Nothing in this package returns an error. Out-of-range pages are clamped,
// rejected page sizes leave the previous value in place, unknown sort keys fall
// back to input order and stale selections resolve to "no selection".
package tableview

import (
	"slices"
	"strconv"
	"strings"

	"github.com/dalemusser/strataportal/internal/app/system/normalize"
	"golang.org/x/text/language"
)

// Direction is the order applied by the active sort column.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// Toggle returns the opposite direction.
func (d Direction) Toggle() Direction {
	if d == Descending {
		return Ascending
	}
	return Descending
}

// ParseDirection maps "desc" (any case) to Descending and everything else to Ascending.
func ParseDirection(s string) Direction {
	if normalize.Status(s) == string(Descending) {
		return Descending
	}
	return Ascending
}

// Sort is the active sort field. A zero Key means "no sort, keep input order".
type Sort struct {
	Key       string
	Direction Direction
}

// Column describes one displayed field of T.
// Value may be nil; the field then reads as the empty string.
type Column[T any] struct {
	Key   string
	Label string
	Value func(T) string
}

func (c Column[T]) read(rec T) string {
	if c.Value == nil {
		return ""
	}
	return c.Value(rec)
}

// DefaultPageSizes is the page-size menu offered when no WithPageSizes option is given.
var DefaultPageSizes = []int{5, 10, 20, 50}

// DefaultPageSize is used when no WithPageSize option is given.
const DefaultPageSize = 10

// View holds the state of one table: query, sort, page size, requested page
// and selection. It is not safe for concurrent use; each request or screen
// owns its own View.
type View[T any, K comparable] struct {
	columns []Column[T]
	byKey   map[string]int
	id      func(T) K
	cfg     options
	memo    *memo[T]

	query       string
	sort        Sort
	pageSize    int
	page        int
	selected    K
	hasSelected bool
}

// New creates a View with default state: empty query, the default sort (if
// any), the default page size, page 1 and no selection.
func New[T any, K comparable](id func(T) K, columns []Column[T], opts ...Option) *View[T, K] {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.finish()

	v := &View[T, K]{
		columns: slices.Clone(columns),
		byKey:   make(map[string]int, len(columns)),
		id:      id,
		cfg:     cfg,
	}
	for i, c := range v.columns {
		v.byKey[c.Key] = i
	}
	if cfg.memoSize > 0 {
		v.memo = newMemo[T](cfg.memoSize)
	}
	v.Reset()
	return v
}

// Reset restores the default state. Screens call it when the user re-enters
// the list context, e.g. after "Add New" or a completed create/update/delete.
func (v *View[T, K]) Reset() {
	v.query = ""
	v.sort = v.cfg.defaultSort
	v.pageSize = v.cfg.pageSize
	v.page = 1
	v.ClearSelection()
}

// Columns returns the configured columns in display order.
func (v *View[T, K]) Columns() []Column[T] {
	return slices.Clone(v.columns)
}

// Query returns the normalized filter text.
func (v *View[T, K]) Query() string { return v.query }

// Sort returns the active sort and whether one is set.
func (v *View[T, K]) Sort() (Sort, bool) { return v.sort, v.sort.Key != "" }

// PageSize returns the current page size.
func (v *View[T, K]) PageSize() int { return v.pageSize }

// PageSizes returns the accepted page sizes.
func (v *View[T, K]) PageSizes() []int { return slices.Clone(v.cfg.pageSizes) }

// RequestedPage returns the page as last requested, before clamping.
func (v *View[T, K]) RequestedPage() int { return v.page }

// Selected returns the selected key and whether a selection exists.
func (v *View[T, K]) Selected() (K, bool) { return v.selected, v.hasSelected }

// SetQuery stores the normalized filter text and returns to page 1.
func (v *View[T, K]) SetQuery(text string) {
	v.query = normalize.Query(text)
	v.page = 1
}

// SetSort activates field. Repeating the active field flips its direction;
// any other field starts Ascending. The requested page is kept because
// sorting never changes the result count. An empty field is ignored.
func (v *View[T, K]) SetSort(field string) {
	field = strings.TrimSpace(field)
	if field == "" {
		return
	}
	if v.sort.Key == field {
		v.sort.Direction = v.sort.Direction.Toggle()
		return
	}
	v.sort = Sort{Key: field, Direction: Ascending}
}

// SortBy sets field and direction explicitly. It is used when restoring state
// from a URL; interactive header clicks go through SetSort.
func (v *View[T, K]) SortBy(field string, dir Direction) {
	field = strings.TrimSpace(field)
	if field == "" {
		v.sort = Sort{}
		return
	}
	if dir != Descending {
		dir = Ascending
	}
	v.sort = Sort{Key: field, Direction: dir}
}

// NextSort reports the sort that SetSort(field) would produce, without
// changing state. Templates use it to build header links.
func (v *View[T, K]) NextSort(field string) Sort {
	if v.sort.Key == field {
		return Sort{Key: field, Direction: v.sort.Direction.Toggle()}
	}
	return Sort{Key: field, Direction: Ascending}
}

// SetPageSize applies n when it is positive and one of the accepted sizes,
// returning to page 1. Rejected values leave all state untouched.
func (v *View[T, K]) SetPageSize(n int) bool {
	if n <= 0 || !slices.Contains(v.cfg.pageSizes, n) {
		return false
	}
	v.pageSize = n
	v.page = 1
	return true
}

// SetPageSizeText is SetPageSize for raw form or query input.
// Non-numeric text is rejected.
func (v *View[T, K]) SetPageSizeText(s string) bool {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return v.SetPageSize(n)
}

// SetPage requests page n. Any integer is accepted; Page clamps it.
func (v *View[T, K]) SetPage(n int) {
	v.page = n
}

// Select marks id as the selected record. Selection normally comes from a
// rendered row, so the id is not checked against the source here.
func (v *View[T, K]) Select(id K) {
	v.selected = id
	v.hasSelected = true
}

// ClearSelection removes the selection.
func (v *View[T, K]) ClearSelection() {
	var zero K
	v.selected = zero
	v.hasSelected = false
}

// Result is one rendered page of a View.
type Result[T any, K comparable] struct {
	Rows         []T
	Page         int
	TotalPages   int
	TotalCount   int
	PageSize     int
	Selected     K
	HasSelection bool
}

// RangeStart is the 1-based position of the first row, or 0 when empty.
func (p Result[T, K]) RangeStart() int {
	if p.TotalCount == 0 {
		return 0
	}
	return (p.Page-1)*p.PageSize + 1
}

// RangeEnd is the 1-based position of the last row, or 0 when empty.
func (p Result[T, K]) RangeEnd() int {
	if p.TotalCount == 0 {
		return 0
	}
	return (p.Page-1)*p.PageSize + len(p.Rows)
}

func (p Result[T, K]) HasPrev() bool { return p.Page > 1 }
func (p Result[T, K]) HasNext() bool { return p.Page < p.TotalPages }
func (p Result[T, K]) PrevPage() int { return max(1, p.Page-1) }
func (p Result[T, K]) NextPage() int { return min(p.TotalPages, p.Page+1) }

// IsSelected reports whether id is the page's effective selection.
func (p Result[T, K]) IsSelected(id K) bool {
	return p.HasSelection && p.Selected == id
}

// Page filters, sorts and slices source according to the current state.
// It has no side effects: calling it twice with the same inputs returns
// equal results, and source is never reordered.
//
// The returned selection is empty when the selected key is not present in
// the filtered records; call Reconcile to store that outcome in the View.
func (v *View[T, K]) Page(source []T) Result[T, K] {
	rows := v.derive(source)

	total := len(rows)
	totalPages := max(1, (total+v.pageSize-1)/v.pageSize)
	page := min(max(v.page, 1), totalPages)

	start := (page - 1) * v.pageSize
	end := min(start+v.pageSize, total)

	res := Result[T, K]{
		Rows:       slices.Clone(rows[start:end]),
		Page:       page,
		TotalPages: totalPages,
		TotalCount: total,
		PageSize:   v.pageSize,
	}
	if res.Rows == nil {
		res.Rows = []T{}
	}
	if v.hasSelected && v.containsKey(rows, v.selected) {
		res.Selected = v.selected
		res.HasSelection = true
	}
	return res
}

// Reconcile clears the selection if its record is no longer among the
// filtered records of source. It reports whether the selection was cleared.
func (v *View[T, K]) Reconcile(source []T) bool {
	if !v.hasSelected {
		return false
	}
	if v.containsKey(v.derive(source), v.selected) {
		return false
	}
	v.ClearSelection()
	return true
}

func (v *View[T, K]) containsKey(rows []T, key K) bool {
	for _, r := range rows {
		if v.id(r) == key {
			return true
		}
	}
	return false
}

// derive returns the filtered and sorted records as a new slice.
func (v *View[T, K]) derive(source []T) []T {
	if v.memo != nil {
		if rows, ok := v.memo.get(source, v.query, v.sort); ok {
			return rows
		}
	}

	rows := v.filter(source)
	v.sortRows(rows)

	if v.memo != nil {
		v.memo.put(source, v.query, v.sort, rows)
	}
	return rows
}

func (v *View[T, K]) filter(source []T) []T {
	out := make([]T, 0, len(source))
	if v.query == "" {
		return append(out, source...)
	}
	for _, rec := range source {
		if strings.Contains(v.Haystack(rec), v.query) {
			out = append(out, rec)
		}
	}
	return out
}

// Haystack is the text a record is searched by: the display values of all
// columns joined by single spaces, trimmed and lower-cased.
func (v *View[T, K]) Haystack(rec T) string {
	parts := make([]string, len(v.columns))
	for i, c := range v.columns {
		parts[i] = c.read(rec)
	}
	return normalize.Query(strings.Join(parts, " "))
}

func (v *View[T, K]) sortRows(rows []T) {
	idx, ok := v.byKey[v.sort.Key]
	if !ok || len(rows) < 2 {
		return
	}
	col := v.columns[idx]
	cmp := newComparator(v.cfg.locale)
	desc := v.sort.Direction == Descending

	slices.SortStableFunc(rows, func(a, b T) int {
		c := cmp.compare(col.read(a), col.read(b))
		if desc {
			return -c
		}
		return c
	})
}

// Option configures a View.
type Option func(*options)

type options struct {
	pageSizes   []int
	pageSize    int
	defaultSort Sort
	locale      language.Tag
	memoSize    int
}

func defaultOptions() options {
	return options{
		pageSizes: slices.Clone(DefaultPageSizes),
		pageSize:  DefaultPageSize,
		locale:    language.Und,
	}
}

// finish repairs option combinations that would break the state invariants.
func (o *options) finish() {
	sizes := o.pageSizes[:0:0]
	for _, n := range o.pageSizes {
		if n > 0 && !slices.Contains(sizes, n) {
			sizes = append(sizes, n)
		}
	}
	if len(sizes) == 0 {
		sizes = slices.Clone(DefaultPageSizes)
	}
	slices.Sort(sizes)
	o.pageSizes = sizes

	if !slices.Contains(o.pageSizes, o.pageSize) {
		o.pageSize = o.pageSizes[0]
		if slices.Contains(o.pageSizes, DefaultPageSize) {
			o.pageSize = DefaultPageSize
		}
	}
}

// WithPageSizes replaces the accepted page sizes. Non-positive and duplicate
// values are dropped; an empty result falls back to DefaultPageSizes.
func WithPageSizes(sizes ...int) Option {
	return func(o *options) { o.pageSizes = slices.Clone(sizes) }
}

// WithPageSize sets the initial page size. It must be one of the accepted sizes.
func WithPageSize(n int) Option {
	return func(o *options) { o.pageSize = n }
}

// WithDefaultSort sets the sort restored by New and Reset.
func WithDefaultSort(key string, dir Direction) Option {
	return func(o *options) {
		if dir != Descending {
			dir = Ascending
		}
		o.defaultSort = Sort{Key: strings.TrimSpace(key), Direction: dir}
	}
}

// WithLocale sets the collation locale used for text comparison.
func WithLocale(tag language.Tag) Option {
	return func(o *options) { o.locale = tag }
}

// WithMemo caches up to size derived (filtered and sorted) record lists,
// keyed by source identity, query and sort. Callers that enable it must
// replace the source slice rather than edit it in place. Cached entries hold
// their source slices, so a long-lived View keeps up to size sources in
// memory; build a View per request unless that is acceptable.
func WithMemo(size int) Option {
	return func(o *options) { o.memoSize = size }
}
