package formatter

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"
)

// TableFormatter prints one bordered table per entity type
type TableFormatter struct {
	maxCell int
}

func NewTableFormatter() *TableFormatter {
	return &TableFormatter{maxCell: 40}
}

func (f *TableFormatter) Format(w io.Writer, r Report) error {
	fmt.Fprintf(w, "%s  %s  page %d/%d entry %d\n", r.State, r.FormattedTime, r.Page+1, r.PageCount, r.Entry)

	for _, typ := range r.Types() {
		rows := r.Entities[typ]
		fmt.Fprintf(w, "\n%s (%d)\n", typ, len(rows))
		if err := f.Rows(w, rows); err != nil {
			return err
		}
	}
	return nil
}

// Rows prints rows as one bordered table. No rows prints nothing.
func (f *TableFormatter) Rows(w io.Writer, rows []map[string]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	headers := columns(rows)
	cells := make([][]string, len(rows))
	for i, row := range rows {
		cells[i] = make([]string, len(headers))
		for j, h := range headers {
			cells[i][j] = runewidth.Truncate(formatValue(row[h]), f.maxCell, "…")
		}
	}
	widths := calculateColumnWidths(headers, cells)

	f.printBorder(w, widths, "top")
	f.printRow(w, headers, widths)
	f.printBorder(w, widths, "middle")
	for _, c := range cells {
		f.printRow(w, c, widths)
	}
	f.printBorder(w, widths, "bottom")
	return nil
}

// calculateColumnWidths determines the display width of each column
func calculateColumnWidths(headers []string, cells [][]string) []int {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range cells {
		for i, v := range row {
			if w := runewidth.StringWidth(v); w > widths[i] {
				widths[i] = w
			}
		}
	}
	return widths
}

// printBorder prints table borders (top, middle, bottom)
func (f *TableFormatter) printBorder(w io.Writer, widths []int, borderType string) {
	var left, middle, right, separator string

	switch borderType {
	case "top":
		left, middle, right, separator = "┌", "┬", "┐", "─"
	case "middle":
		left, middle, right, separator = "├", "┼", "┤", "─"
	case "bottom":
		left, middle, right, separator = "└", "┴", "┘", "─"
	}

	var b strings.Builder
	b.WriteString(left)
	for i, width := range widths {
		b.WriteString(strings.Repeat(separator, width+2)) // +2 for padding spaces
		if i < len(widths)-1 {
			b.WriteString(middle)
		}
	}
	b.WriteString(right)
	fmt.Fprintln(w, b.String())
}

// printRow prints a row padded to the column display widths
func (f *TableFormatter) printRow(w io.Writer, values []string, widths []int) {
	var b strings.Builder
	b.WriteString("│")
	for i, value := range values {
		b.WriteString(" ")
		b.WriteString(runewidth.FillRight(value, widths[i]))
		b.WriteString(" │")
	}
	fmt.Fprintln(w, b.String())
}

// columns returns the attribute names of rows, id first then sorted
func columns(rows []map[string]interface{}) []string {
	seen := make(map[string]bool)
	var names []string
	for _, row := range rows {
		for name := range row {
			if name != "id" && !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return append([]string{"id"}, names...)
}

// formatValue renders a materialized attribute value in one cell
func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case int:
		return fmt.Sprintf("%d", val)
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1e15 {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%.6g", val)
	case string:
		return val
	case bool:
		return fmt.Sprintf("%t", val)
	case []interface{}:
		parts := make([]string, len(val))
		for i, el := range val {
			parts[i] = formatValue(el)
		}
		return "[" + strings.Join(parts, " ") + "]"
	case map[string]interface{}:
		if lat, ok := val["latitude"].(float64); ok {
			if lon, ok := val["longitude"].(float64); ok {
				return fmt.Sprintf("%.5f,%.5f", lat, lon)
			}
		}
		if points, ok := val["points"].([]interface{}); ok {
			return fmt.Sprintf("route(%d)", len(points))
		}
		return fmt.Sprintf("%v", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
