package formatter

import (
	"fmt"
	"io"
	"sort"

	"github.com/penwyp/go-fleet-replay/internal/core/ledger"
	"github.com/penwyp/go-fleet-replay/internal/core/playback"
)

// Report is the materialized replay state at one clock time
type Report struct {
	State         string                              `json:"state"`
	Time          float64                             `json:"time"`
	FormattedTime string                              `json:"formattedTime"`
	Speed         float64                             `json:"speed"`
	Page          int                                 `json:"page"`
	Entry         int                                 `json:"entry"`
	PageCount     int                                 `json:"pageCount"`
	Totals        ledger.Counts                       `json:"totals"`
	Entities      map[string][]map[string]interface{} `json:"entities"`
}

// NewReport builds a report from a clock view
func NewReport(v playback.View) Report {
	return Report{
		State:         v.Status.State.String(),
		Time:          v.Status.Time,
		FormattedTime: v.Status.FormattedTime,
		Speed:         v.Status.Speed,
		Page:          v.Status.Page,
		Entry:         v.Status.Entry,
		PageCount:     v.Status.PageCount,
		Totals:        v.Status.Totals,
		Entities:      v.Entities,
	}
}

// Types returns the entity types of the report in sorted order
func (r Report) Types() []string {
	types := make([]string, 0, len(r.Entities))
	for typ := range r.Entities {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}

// Filter keeps only the named entity types. No names keeps everything.
func (r Report) Filter(types ...string) Report {
	if len(types) == 0 {
		return r
	}
	kept := make(map[string][]map[string]interface{}, len(types))
	for _, typ := range types {
		if rows, ok := r.Entities[typ]; ok {
			kept[typ] = rows
		}
	}
	r.Entities = kept
	return r
}

// Formatter writes a report
type Formatter interface {
	Format(w io.Writer, r Report) error
}

// New returns the formatter for an output format name
func New(format string) (Formatter, error) {
	switch format {
	case "table", "":
		return NewTableFormatter(), nil
	case "json":
		return NewJSONFormatter(), nil
	case "csv":
		return NewCSVFormatter(), nil
	case "summary":
		return NewSummaryFormatter(), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (table, json, csv, summary)", format)
	}
}
