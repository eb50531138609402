// Package screen replays terminal output into a virtual screen so tests can
// assert on what a user would see rather than on escape sequences.
package screen

import (
	"regexp"
	"strings"
)

var ansiEscape = regexp.MustCompile(`\x1b\[[?0-9;]*[a-zA-Z]`)

// Screen is a virtual terminal
type Screen struct {
	rows, cols int
	buffer     [][]rune
	x, y       int
	savedX     int
	savedY     int
}

// New creates a blank screen of rows by cols cells
func New(rows, cols int) *Screen {
	s := &Screen{rows: rows, cols: cols, buffer: make([][]rune, rows)}
	for i := range s.buffer {
		s.buffer[i] = blankLine(cols)
	}
	return s
}

func blankLine(cols int) []rune {
	line := make([]rune, cols)
	for j := range line {
		line[j] = ' '
	}
	return line
}

// StripANSI removes all CSI escape sequences from s
func StripANSI(s string) string {
	return ansiEscape.ReplaceAllString(s, "")
}

// Parse replays output onto a fresh 24x80 screen
func Parse(output string) *Screen {
	s := New(24, 80)
	s.Write([]byte(output))
	return s
}

// Write replays p, so a Screen can stand in for a terminal writer
func (s *Screen) Write(p []byte) (int, error) {
	runes := []rune(string(p))
	for i := 0; i < len(runes); {
		switch r := runes[i]; {
		case r == '\x1b' && i+1 < len(runes) && runes[i+1] == '[':
			i = s.sequence(runes, i+2)
			continue
		case r == '\r':
			s.x = 0
		case r == '\n':
			s.x = 0
			s.lineFeed()
		case r == '\b':
			s.x = max(0, s.x-1)
		default:
			s.put(r)
		}
		i++
	}
	return len(p), nil
}

// sequence handles one CSI sequence starting after ESC [ and returns the
// index after it
func (s *Screen) sequence(runes []rune, i int) int {
	private := i < len(runes) && runes[i] == '?'
	if private {
		i++
	}
	var params []int
	current := 0
	for ; i < len(runes); i++ {
		switch r := runes[i]; {
		case r >= '0' && r <= '9':
			current = current*10 + int(r-'0')
		case r == ';':
			params = append(params, current)
			current = 0
		default:
			params = append(params, current)
			if private {
				s.mode(r, params)
			} else {
				s.command(r, params)
			}
			return i + 1
		}
	}
	return i
}

// mode handles DEC private modes; only the alternate screen changes content
func (s *Screen) mode(cmd rune, params []int) {
	if params[0] == 1049 && (cmd == 'h' || cmd == 'l') {
		s.clear(0, s.rows)
		s.x, s.y = 0, 0
	}
}

func (s *Screen) command(cmd rune, params []int) {
	arg := func(i, def int) int {
		if i < len(params) && params[i] > 0 {
			return params[i]
		}
		return def
	}

	switch cmd {
	case 'H', 'f':
		s.y = min(s.rows, arg(0, 1)) - 1
		s.x = min(s.cols, arg(1, 1)) - 1
	case 'J':
		switch params[0] {
		case 0:
			s.clearLine(s.x, s.cols)
			s.clear(s.y+1, s.rows)
		case 1:
			s.clear(0, s.y)
			s.clearLine(0, s.x+1)
		case 2:
			s.clear(0, s.rows)
		}
	case 'K':
		switch params[0] {
		case 0:
			s.clearLine(s.x, s.cols)
		case 1:
			s.clearLine(0, s.x+1)
		case 2:
			s.clearLine(0, s.cols)
		}
	case 'A':
		s.y = max(0, s.y-arg(0, 1))
	case 'B':
		s.y = min(s.rows-1, s.y+arg(0, 1))
	case 'C':
		s.x = min(s.cols-1, s.x+arg(0, 1))
	case 'D':
		s.x = max(0, s.x-arg(0, 1))
	case 's':
		s.savedX, s.savedY = s.x, s.y
	case 'u':
		s.x, s.y = s.savedX, s.savedY
	}
}

// put writes r at the cursor; text past the right edge is dropped
func (s *Screen) put(r rune) {
	if s.x < s.cols {
		s.buffer[s.y][s.x] = r
		s.x++
	}
}

func (s *Screen) lineFeed() {
	if s.y < s.rows-1 {
		s.y++
		return
	}
	copy(s.buffer, s.buffer[1:])
	s.buffer[s.rows-1] = blankLine(s.cols)
}

func (s *Screen) clear(from, to int) {
	for i := from; i < to; i++ {
		s.buffer[i] = blankLine(s.cols)
	}
}

func (s *Screen) clearLine(from, to int) {
	for j := from; j < min(to, s.cols); j++ {
		s.buffer[s.y][j] = ' '
	}
}

// Render returns the screen with trailing blanks trimmed from every line
func (s *Screen) Render() string {
	lines := make([]string, s.rows)
	for i := range s.buffer {
		lines[i] = s.Line(i)
	}
	return strings.Join(lines, "\n")
}

// Line returns one row of the screen without trailing blanks
func (s *Screen) Line(row int) string {
	if row < 0 || row >= s.rows {
		return ""
	}
	return strings.TrimRight(string(s.buffer[row]), " ")
}

// Contains reports whether text appears on a single row
func (s *Screen) Contains(text string) bool {
	for i := range s.buffer {
		if strings.Contains(string(s.buffer[i]), text) {
			return true
		}
	}
	return false
}
