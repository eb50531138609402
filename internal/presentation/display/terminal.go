package display

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/penwyp/go-fleet-replay/internal/presentation/interaction"
	"github.com/penwyp/go-fleet-replay/internal/presentation/layout"
	"github.com/penwyp/go-fleet-replay/internal/util"
)

// DisplayConfig holds the rendering options of the dashboard
type DisplayConfig struct {
	// LayoutStyle selects the dashboard: 0 full, 1 minimal
	LayoutStyle int
	// TimeFormat is "12h" or "24h" for the wall clock
	TimeFormat string
}

// ViewState is what the dashboard shows besides the frame itself
type ViewState struct {
	Loading        bool
	LoadingMessage string
	ShowHelp       bool
	StatusMessage  string
}

type TerminalDisplay struct {
	config            *DisplayConfig
	out               *bufio.Writer
	inAlternateScreen bool
	lastLayoutStyle   int
	isFirstRender     bool
}

func NewTerminalDisplay(config *DisplayConfig) *TerminalDisplay {
	return NewTerminalDisplayTo(os.Stdout, config)
}

// NewTerminalDisplayTo renders to w instead of stdout
func NewTerminalDisplayTo(w io.Writer, config *DisplayConfig) *TerminalDisplay {
	if config == nil {
		config = &DisplayConfig{}
	}
	return &TerminalDisplay{
		config:        config,
		out:           bufio.NewWriter(w),
		isFirstRender: true,
	}
}

// EnterAlternateScreen switches to alternate screen buffer
func (td *TerminalDisplay) EnterAlternateScreen() {
	if td.inAlternateScreen {
		return
	}
	fmt.Fprint(td.out, "\033[?1049h")
	fmt.Fprint(td.out, util.ClearScreen)
	fmt.Fprint(td.out, util.ClearScrollback)
	fmt.Fprint(td.out, util.ResetScrollRegion)
	fmt.Fprint(td.out, util.DisableScrollback)
	fmt.Fprint(td.out, util.HideCursor)
	fmt.Fprint(td.out, util.MoveCursorHome)
	td.out.Flush()
	td.inAlternateScreen = true
	td.isFirstRender = true
}

// ExitAlternateScreen returns to normal screen buffer
func (td *TerminalDisplay) ExitAlternateScreen() {
	if !td.inAlternateScreen {
		return
	}
	fmt.Fprint(td.out, util.ClearScreen)
	fmt.Fprint(td.out, util.MoveCursorHome)
	fmt.Fprint(td.out, util.EnableScrollback)
	fmt.Fprint(td.out, util.ShowCursor)
	fmt.Fprint(td.out, "\033[?1049l")
	td.out.Flush()
	td.inAlternateScreen = false
}

// ClearScreen clears the alternate screen buffer
func (td *TerminalDisplay) ClearScreen() {
	if td.inAlternateScreen {
		fmt.Fprint(td.out, util.ClearScreen)
		fmt.Fprint(td.out, util.MoveCursorHome)
		td.out.Flush()
	}
}

// SetLayoutStyle switches the dashboard layout
func (td *TerminalDisplay) SetLayoutStyle(style int) {
	td.config.LayoutStyle = style
}

// LayoutStyle returns the current dashboard layout
func (td *TerminalDisplay) LayoutStyle() int {
	return td.config.LayoutStyle
}

// WallClock formats the current wall time in the configured timezone
func (td *TerminalDisplay) WallClock() string {
	if td.config.TimeFormat == "12h" {
		return util.GetTimeProvider().FormatNow("3:04:05 PM")
	}
	return util.GetTimeProvider().FormatNow("15:04:05")
}

// Render draws one frame of the dashboard
func (td *TerminalDisplay) Render(frame layout.Frame, state ViewState) {
	defer td.out.Flush()

	if state.Loading {
		td.renderLoadingScreen(state.LoadingMessage)
		return
	}

	// a layout switch leaves lines of the old layout behind
	if td.isFirstRender || td.lastLayoutStyle != td.config.LayoutStyle {
		fmt.Fprint(td.out, util.ClearScreen)
		td.isFirstRender = false
		td.lastLayoutStyle = td.config.LayoutStyle
	}
	fmt.Fprint(td.out, util.MoveCursorHome)

	if state.ShowHelp {
		td.renderHelp()
		return
	}

	if frame.Wall == "" {
		frame.Wall = td.WallClock()
	}
	layout.GetLayoutStrategy(td.config.LayoutStyle).Render(lineClearer{td.out}, frame)
	fmt.Fprint(td.out, "\033[J")

	if state.StatusMessage != "" {
		td.renderStatusMessage(state.StatusMessage)
	}
}

// lineClearer erases what is left of each line from the previous frame
type lineClearer struct {
	w io.Writer
}

func (l lineClearer) Write(p []byte) (int, error) {
	s := strings.ReplaceAll(string(p), "\n", util.ClearLineFromCursor+"\n")
	if _, err := io.WriteString(l.w, s); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (td *TerminalDisplay) renderHelp() {
	fmt.Fprintln(td.out, "Fleet Replay - Help")
	fmt.Fprintln(td.out, strings.Repeat("═", 60))
	fmt.Fprintln(td.out)
	fmt.Fprintln(td.out, "Keyboard Shortcuts:")
	fmt.Fprintln(td.out)
	for _, line := range interaction.HelpLines() {
		fmt.Fprintf(td.out, "  %s\n", line)
	}
	fmt.Fprintln(td.out)
	fmt.Fprintln(td.out, "Layout Styles:")
	fmt.Fprintln(td.out, "  Full Dashboard - status box and the entity table")
	fmt.Fprintln(td.out, "  Minimal        - one status line")
	fmt.Fprintln(td.out)
	fmt.Fprintln(td.out, strings.Repeat("═", 60))
	fmt.Fprintln(td.out, "Press 'h' to return...")
	fmt.Fprint(td.out, "\033[J")
}

func (td *TerminalDisplay) renderStatusMessage(message string) {
	fmt.Fprint(td.out, util.SaveCursor)
	// row 999 stops at the bottom of the screen
	fmt.Fprint(td.out, "\033[999;1H")
	fmt.Fprint(td.out, util.ClearLine)
	fmt.Fprintf(td.out, "  Status: %s", message)
	fmt.Fprint(td.out, util.RestoreCursor)
}

// wrapText wraps text to fit within the specified width
func wrapText(text string, width int) []string {
	if text == "" {
		return []string{}
	}

	if len(text) <= width {
		return []string{text}
	}

	var lines []string
	words := strings.Fields(text)
	currentLine := ""

	for _, word := range words {
		if currentLine == "" {
			currentLine = word
		} else if len(currentLine)+1+len(word) <= width {
			currentLine += " " + word
		} else {
			lines = append(lines, currentLine)
			currentLine = word
		}
	}

	if currentLine != "" {
		lines = append(lines, currentLine)
	}

	return lines
}

// renderLoadingScreen displays a loading message with animation
func (td *TerminalDisplay) renderLoadingScreen(message string) {
	fmt.Fprint(td.out, util.ClearScreen)
	fmt.Fprint(td.out, util.MoveCursorHome)
	fmt.Fprint(td.out, strings.Repeat("\n", 6))

	boxWidth := 50
	padding := strings.Repeat(" ", 15)
	row := func(text string) {
		fmt.Fprintf(td.out, "%s║%s║\n", padding, util.CenterText(text, boxWidth-2))
	}

	if message == "" {
		message = "Loading history..."
	}
	loadingChars := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	spinner := loadingChars[int(time.Now().Unix())%len(loadingChars)]

	fmt.Fprintf(td.out, "%s╔%s╗\n", padding, strings.Repeat("═", boxWidth-2))
	row("Fleet Replay")
	fmt.Fprintf(td.out, "%s╠%s╣\n", padding, strings.Repeat("═", boxWidth-2))
	row("")
	for _, line := range wrapText(message, boxWidth-6) {
		row(spinner + " " + line)
	}
	row("")
	row("Press 'q' to quit")
	fmt.Fprintf(td.out, "%s╚%s╝\n", padding, strings.Repeat("═", boxWidth-2))
}
