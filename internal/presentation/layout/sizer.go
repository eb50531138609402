package layout

import (
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// Package-level singleton Sizer instance
var sharedSizer = &Sizer{}

type Sizer struct {
}

// PadString pads a string to a specific display width
func (i Sizer) PadString(s string, width int, leftAlign bool) string {
	actualWidth := runewidth.StringWidth(s)
	if actualWidth >= width {
		return s
	}

	padding := strings.Repeat(" ", width-actualWidth)
	if leftAlign {
		return s + padding
	}
	return padding + s
}

// Fit truncates or pads s to exactly width display cells
func (i Sizer) Fit(s string, width int) string {
	return runewidth.FillRight(runewidth.Truncate(s, width, "…"), width)
}

// GetMaxWidth returns the usable dashboard width
func (i Sizer) GetMaxWidth() int {
	termWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || termWidth < 60 {
		termWidth = 82
	}

	maxWidth := termWidth - 2
	if maxWidth > 140 {
		maxWidth = 140
	}
	return maxWidth
}

// GetMaxRows returns how many table rows fit below the status box
func (i Sizer) GetMaxRows() int {
	_, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || height < 20 {
		height = 24
	}
	return height - 14
}
