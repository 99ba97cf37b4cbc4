// internal/app/system/tableview/compare.go
package tableview

import (
	"cmp"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// comparator orders display values. Plain decimals compare numerically and
// rank before all other values, which go through case-insensitive collation
// for the configured locale. Keeping the two groups apart makes the order
// total on columns that mix numbers and text.
//
// A collate.Collator keeps internal buffers, so one comparator is built per
// sort and never shared.
type comparator struct {
	coll *collate.Collator
}

func newComparator(tag language.Tag) *comparator {
	return &comparator{coll: collate.New(tag, collate.IgnoreCase)}
}

func (c *comparator) compare(a, b string) int {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	x, aNum := parseNumber(a)
	y, bNum := parseNumber(b)
	switch {
	case aNum && bNum:
		return cmp.Compare(x, y)
	case aNum:
		return -1
	case bNum:
		return 1
	}
	return c.coll.CompareString(a, b)
}

// parseNumber accepts an optional leading minus, digits and at most one
// decimal point. Exponents, hex, "inf" and "nan" stay text so that codes
// like "1E5" sort with the other codes.
func parseNumber(s string) (float64, bool) {
	if !isPlainDecimal(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func isPlainDecimal(s string) bool {
	s = strings.TrimPrefix(s, "-")
	digits, dots := 0, 0
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] >= '0' && s[i] <= '9':
			digits++
		case s[i] == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}
