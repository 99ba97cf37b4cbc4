package listpage

import (
	"testing"

	"github.com/dalemusser/strataportal/internal/app/system/tableview"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type row struct{ ID, Name string }

func newView(opts []tableview.Option) *tableview.View[row, string] {
	return tableview.New(func(r row) string { return r.ID },
		[]tableview.Column[row]{{Key: "name", Label: "Name", Value: func(r row) string { return r.Name }}},
		opts...)
}

func TestTableOptions(t *testing.T) {
	o := Options{PageSizes: []int{10, 25}, DefaultPageSize: 25, Locale: "ta-IN", MemoSize: 4}
	v := newView(o.TableOptions(zap.NewNop()))

	if v.PageSize() != 25 {
		t.Errorf("PageSize() = %d, want 25", v.PageSize())
	}
	if got := v.PageSizes(); len(got) != 2 || got[0] != 10 || got[1] != 25 {
		t.Errorf("PageSizes() = %v, want [10 25]", got)
	}
}

func TestTableOptions_BadLocaleLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	o := Options{PageSizes: []int{5}, DefaultPageSize: 5, Locale: "not a locale!"}

	v := newView(o.TableOptions(zap.New(core)))
	if v.PageSize() != 5 {
		t.Errorf("PageSize() = %d, want 5", v.PageSize())
	}
	if logs.Len() != 1 {
		t.Errorf("logged %d warnings, want 1", logs.Len())
	}
}
