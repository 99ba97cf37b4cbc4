// internal/app/system/tableview/memo.go
package tableview

import (
	"reflect"

	lru "github.com/hashicorp/golang-lru/v2"
)

// memoKey identifies a derived list by the source slice's backing array and
// length together with the query and sort that produced it.
type memoKey struct {
	data  uintptr
	n     int
	query string
	sort  Sort
}

// memoEntry pins the source slice so its backing array cannot be freed and
// reused by another slice of the same length while the entry is cached.
type memoEntry[T any] struct {
	source []T
	rows   []T
}

type memo[T any] struct {
	cache *lru.Cache[memoKey, memoEntry[T]]
}

func newMemo[T any](size int) *memo[T] {
	c, err := lru.New[memoKey, memoEntry[T]](size)
	if err != nil {
		// lru.New only fails for a non-positive size, which WithMemo callers
		// cannot reach because New skips the memo in that case.
		return nil
	}
	return &memo[T]{cache: c}
}

func keyFor[T any](source []T, query string, s Sort) memoKey {
	var data uintptr
	if len(source) > 0 {
		data = reflect.ValueOf(source).Pointer()
	}
	return memoKey{data: data, n: len(source), query: query, sort: s}
}

func (m *memo[T]) get(source []T, query string, s Sort) ([]T, bool) {
	if m == nil {
		return nil, false
	}
	e, ok := m.cache.Get(keyFor(source, query, s))
	if !ok {
		return nil, false
	}
	return e.rows, true
}

func (m *memo[T]) put(source []T, query string, s Sort, rows []T) {
	if m == nil {
		return
	}
	m.cache.Add(keyFor(source, query, s), memoEntry[T]{source: source, rows: rows})
}

// Len reports how many derived lists are cached. Used by tests.
func (m *memo[T]) Len() int {
	if m == nil {
		return 0
	}
	return m.cache.Len()
}
