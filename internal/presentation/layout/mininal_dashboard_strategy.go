package layout

import (
	"fmt"
	"io"

	"github.com/penwyp/go-fleet-replay/internal/util"
)

// MinimalLayoutStrategy prints the status on a single line
type MinimalLayoutStrategy struct {
	BaseStrategy
}

func (s *MinimalLayoutStrategy) GetName() string {
	return "Minimal Dashboard"
}

func (s *MinimalLayoutStrategy) Render(w io.Writer, f Frame) {
	st := f.Status
	fmt.Fprintf(w, "Replay: %s | %s | %s | page %d/%d | %s | %s\n",
		s.StateLabel(st.State),
		st.FormattedTime,
		util.FormatSpeed(st.Speed),
		st.Page+1, st.PageCount,
		s.Totals(st),
		f.Wall)
}
