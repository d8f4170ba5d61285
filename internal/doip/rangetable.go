package doip

import (
	"fmt"
	"slices"
)

// Range maps the inclusive interval [Low, High] to Label.
type Range struct {
	Low   uint64
	High  uint64
	Label string
}

// RangeTable is an immutable ordered set of disjoint ranges.
type RangeTable struct {
	name   string
	ranges []Range
}

// NewRangeTable validates ranges and returns a table. Entries with an empty
// label, inverted bounds, or any overlap with an earlier entry (duplicates
// included) are rejected.
func NewRangeTable(name string, ranges ...Range) (*RangeTable, error) {
	for i, r := range ranges {
		if r.Label == "" {
			return nil, TableError{Table: name, Index: i, Reason: "empty label"}
		}
		if r.Low > r.High {
			return nil, TableError{Table: name, Index: i, Reason: "low bound above high bound"}
		}
		for j := 0; j < i; j++ {
			prev := ranges[j]
			if r.Low > prev.High || prev.Low > r.High {
				continue
			}
			if r.Low == prev.Low && r.High == prev.High {
				return nil, TableError{Table: name, Index: i, Reason: fmt.Sprintf("duplicates entry %d", j)}
			}
			return nil, TableError{Table: name, Index: i, Reason: fmt.Sprintf("overlaps entry %d", j)}
		}
	}
	return &RangeTable{name: name, ranges: slices.Clone(ranges)}, nil
}

// MustRangeTable is NewRangeTable for package-level tables; it panics on a
// malformed table.
func MustRangeTable(name string, ranges ...Range) *RangeTable {
	t, err := NewRangeTable(name, ranges...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *RangeTable) Name() string {
	if t == nil {
		return ""
	}
	return t.name
}

// Lookup returns the label of the first range containing v.
func (t *RangeTable) Lookup(v uint64) (string, bool) {
	if t == nil {
		return "", false
	}
	for _, r := range t.ranges {
		if v >= r.Low && v <= r.High {
			return r.Label, true
		}
	}
	return "", false
}

// Covers reports whether the table resolves every value in [0, max].
func (t *RangeTable) Covers(max uint64) bool {
	if t == nil || len(t.ranges) == 0 {
		return false
	}
	sorted := slices.Clone(t.ranges)
	slices.SortFunc(sorted, func(a, b Range) int {
		switch {
		case a.Low < b.Low:
			return -1
		case a.Low > b.Low:
			return 1
		default:
			return 0
		}
	})
	var next uint64
	for _, r := range sorted {
		if r.Low > next {
			return false
		}
		if r.High >= max {
			return true
		}
		next = r.High + 1
	}
	return false
}
