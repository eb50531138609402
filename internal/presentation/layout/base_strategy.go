package layout

import (
	"fmt"
	"strings"

	"github.com/penwyp/go-fleet-replay/internal/core/playback"
	"github.com/penwyp/go-fleet-replay/internal/util"
)

// BaseStrategy provides common functionality for all layout strategies
type BaseStrategy struct {
}

// GetSizer returns the shared sizer instance
func (b *BaseStrategy) GetSizer() *Sizer {
	return sharedSizer
}

// StateLabel colors the state name
func (b *BaseStrategy) StateLabel(s playback.State) string {
	name := s.String()
	return util.StateColor(name) + util.ColorBold + name + util.ColorReset
}

// Progress is the share of pages already played through
func (b *BaseStrategy) Progress(st playback.Status) float64 {
	if st.PageCount == 0 {
		return 0
	}
	if st.State == playback.End {
		return 100
	}
	return util.Percentage(float64(st.Page), 0, float64(st.PageCount))
}

// ProgressBar creates a progress bar with optional label
func (b *BaseStrategy) ProgressBar(percentage float64, width int, label string) string {
	bar := util.CreateProgressBar(percentage, width)
	if label != "" {
		return fmt.Sprintf("%s %s", bar, label)
	}
	return bar
}

// Totals formats the rental counters
func (b *BaseStrategy) Totals(st playback.Status) string {
	t := st.Totals
	return fmt.Sprintf("rentals %s  returns %s",
		util.FormatRatio(t.SuccessfulRentals, t.FailedRentals),
		util.FormatRatio(t.SuccessfulReturns, t.FailedReturns))
}

// CenterText centers text within the given width
func (b *BaseStrategy) CenterText(text string, width int) string {
	padding := width - len(text)
	if padding <= 0 {
		return text
	}
	leftPad := padding / 2
	return strings.Repeat(" ", leftPad) + text + strings.Repeat(" ", padding-leftPad)
}
