package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/penwyp/go-fleet-replay/internal/util"
)

// SummaryFormatter writes the clock position, entity counts and rental totals
type SummaryFormatter struct{}

// NewSummaryFormatter creates a new instance of SummaryFormatter.
func NewSummaryFormatter() *SummaryFormatter {
	return &SummaryFormatter{}
}

func (f *SummaryFormatter) Format(w io.Writer, r Report) error {
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintln(w, "Fleet Replay Summary")
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintln(w)

	fmt.Fprintf(w, "State: %s\n", r.State)
	fmt.Fprintf(w, "Clock: %s (%gs)\n", r.FormattedTime, r.Time)
	fmt.Fprintf(w, "Speed: %s\n", util.FormatSpeed(r.Speed))
	fmt.Fprintf(w, "Page:  %d of %d, %d entries applied\n", r.Page+1, r.PageCount, r.Entry)
	fmt.Fprintln(w)

	if len(r.Entities) == 0 {
		fmt.Fprintln(w, "No entities")
	} else {
		fmt.Fprintln(w, "Entities:")
		for _, typ := range r.Types() {
			fmt.Fprintf(w, "  %-14s %s\n", typ+":", util.FormatNumber(len(r.Entities[typ])))
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Rentals:")
	fmt.Fprintf(w, "  Successful: %s\n", util.FormatNumber(r.Totals.SuccessfulRentals))
	fmt.Fprintf(w, "  Failed:     %s\n", util.FormatNumber(r.Totals.FailedRentals))
	fmt.Fprintln(w, "Returns:")
	fmt.Fprintf(w, "  Successful: %s\n", util.FormatNumber(r.Totals.SuccessfulReturns))
	fmt.Fprintf(w, "  Failed:     %s\n", util.FormatNumber(r.Totals.FailedReturns))

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 60))
	return nil
}
