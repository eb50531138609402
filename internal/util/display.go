package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Terminal control sequences
const (
	ColorReset   = "\033[0m"
	ColorBlue    = "\033[34m"
	ColorCyan    = "\033[36m"
	ColorGreen   = "\033[32m"
	ColorYellow  = "\033[33m"
	ColorRed     = "\033[31m"
	ColorMagenta = "\033[35m"
	ColorBold    = "\033[1m"

	// Terminal control sequences
	ClearScreen         = "\033[2J"     // Clear entire screen
	ClearLine           = "\033[2K"     // Clear entire line
	ClearLineFromCursor = "\033[0K"     // Clear from cursor to end of line
	ClearScrollback     = "\033[3J"     // Clear scrollback buffer
	ResetScrollRegion   = "\033[r"      // Reset scroll region
	DisableScrollback   = "\033[?1007h" // Disable scrollback
	EnableScrollback    = "\033[?1007l" // Enable scrollback
	MoveCursorHome      = "\033[H"      // Move cursor to home position
	SaveCursor          = "\033[s"      // Save cursor position
	RestoreCursor       = "\033[u"      // Restore cursor position
	HideCursor          = "\033[?25l"   // Hide cursor
	ShowCursor          = "\033[?25h"   // Show cursor
)

// CreateProgressBar creates a progress bar with the given percentage and width
func CreateProgressBar(percentage float64, width int) string {
	if width < 10 {
		width = 12
	}
	barWidth := width - 12
	if barWidth < 0 {
		barWidth = 0
	}
	filled := int((percentage / 100) * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}
	if filled < 0 {
		filled = 0
	}

	bar := "[" + strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled) + "]"
	return bar
}

// StateColor picks the color a playback state name is shown in
func StateColor(state string) string {
	switch state {
	case "FORWARD", "REWIND":
		return ColorGreen
	case "PAUSED":
		return ColorYellow
	case "END", "START":
		return ColorCyan
	}
	return ColorBlue
}

// CenterText centers text within the given display width
func CenterText(text string, width int) string {
	w := runewidth.StringWidth(text)
	if w >= width {
		return runewidth.Truncate(text, width, "")
	}
	padding := (width - w) / 2
	return strings.Repeat(" ", padding) + text + strings.Repeat(" ", width-padding-w)
}
