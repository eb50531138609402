package layout

import (
	"fmt"
	"io"
	"strings"

	"github.com/penwyp/go-fleet-replay/internal/presentation/formatter"
	"github.com/penwyp/go-fleet-replay/internal/util"
)

// FullLayoutStrategy draws a status box above a table of one entity type
type FullLayoutStrategy struct {
	BaseStrategy
}

func (s *FullLayoutStrategy) GetName() string {
	return "Full Dashboard"
}

func (s *FullLayoutStrategy) Render(w io.Writer, f Frame) {
	sizer := s.GetSizer()
	maxWidth := sizer.GetMaxWidth()
	inner := maxWidth - 4
	st := f.Status

	line := func(text string) {
		fmt.Fprintf(w, "│ %s │\n", sizer.Fit(text, inner))
	}

	fmt.Fprintln(w, "╭"+strings.Repeat("─", maxWidth-2)+"╮")
	line(fmt.Sprintf("FLEET REPLAY  %s  %s", st.State, f.Wall))
	fmt.Fprintln(w, "├"+strings.Repeat("─", maxWidth-2)+"┤")
	line(fmt.Sprintf("time %s  speed %s  page %d/%d  entry %d",
		st.FormattedTime, util.FormatSpeed(st.Speed), st.Page+1, st.PageCount, st.Entry))
	progress := s.Progress(st)
	line(s.ProgressBar(progress, inner-8, fmt.Sprintf("%5.1f%%", progress)))
	line(s.Totals(st))
	if st.Fault != nil {
		line("fault: " + st.Fault.Error())
	}
	fmt.Fprintln(w, "╰"+strings.Repeat("─", maxWidth-2)+"╯")

	if f.Type == "" {
		return
	}
	rows := f.Rows
	hidden := 0
	if max := sizer.GetMaxRows(); max > 0 && len(rows) > max {
		hidden = len(rows) - max
		rows = rows[:max]
	}
	fmt.Fprintf(w, "%s%s%s sorted by %s\n", util.ColorBold, f.Type, util.ColorReset, f.SortField)
	table := formatter.NewTableFormatter()
	_ = table.Rows(w, rows)
	if hidden > 0 {
		fmt.Fprintf(w, "… %d more\n", hidden)
	}
}
