package interaction

import (
	"fmt"
	"sort"
)

// SortOrder represents the sort order
type SortOrder int

const (
	SortAscending SortOrder = iota
	SortDescending
)

// EntitySorter orders materialized entity rows by one attribute
type EntitySorter struct {
	field string
	order SortOrder
}

// NewEntitySorter sorts by id, ascending
func NewEntitySorter() *EntitySorter {
	return &EntitySorter{field: "id", order: SortAscending}
}

// Field returns the attribute rows are sorted by
func (s *EntitySorter) Field() string {
	return s.field
}

// SetField sorts by field in the given order
func (s *EntitySorter) SetField(field string, order SortOrder) {
	s.field = field
	s.order = order
}

// Cycle moves to the next field of fields, wrapping around
func (s *EntitySorter) Cycle(fields []string) {
	if len(fields) == 0 {
		return
	}
	next := 0
	for i, f := range fields {
		if f == s.field {
			next = (i + 1) % len(fields)
			break
		}
	}
	s.field = fields[next]
}

// Sort sorts rows in place. Rows without the field go last.
func (s *EntitySorter) Sort(rows []map[string]interface{}) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, aok := rows[i][s.field]
		b, bok := rows[j][s.field]
		if a == nil || !aok {
			return false
		}
		if b == nil || !bok {
			return true
		}

		if s.order == SortDescending {
			return compare(a, b) > 0
		}
		return compare(a, b) < 0
	})
}

func compare(a, b interface{}) int {
	af, aNum := number(a)
	bf, bNum := number(b)
	if aNum && bNum {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}

func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
