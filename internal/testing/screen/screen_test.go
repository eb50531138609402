package screen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseText(t *testing.T) {
	s := Parse("hello\r\nworld")
	assert.Equal(t, "hello", s.Line(0))
	assert.Equal(t, "world", s.Line(1))
}

func TestCursorAndClear(t *testing.T) {
	s := Parse("aaaa\nbbbb\x1b[H\x1b[2Kcc\x1b[2;3H\x1b[0K")
	assert.Equal(t, "cc", s.Line(0))
	assert.Equal(t, "bb", s.Line(1))

	s = Parse("top\nbottom\x1b[1;1H\x1b[J")
	assert.Empty(t, s.Line(0))
	assert.Empty(t, s.Line(1))
}

func TestPrivateModesAndSavedCursor(t *testing.T) {
	s := Parse("old\x1b[?1049h\x1b[?25lnew\x1b[s\x1b[5;1Hstatus\x1b[u!")
	assert.Equal(t, "new!", s.Line(0))
	assert.Equal(t, "status", s.Line(4))
	assert.False(t, s.Contains("old"))
	assert.False(t, s.Contains("1049"))
}

func TestScroll(t *testing.T) {
	s := New(2, 10)
	s.Write([]byte("one\ntwo\nthree"))
	assert.Equal(t, "two", s.Line(0))
	assert.Equal(t, "three", s.Line(1))
}

func TestStripANSI(t *testing.T) {
	assert.Equal(t, "PAUSED", StripANSI("\x1b[33m\x1b[1mPAUSED\x1b[0m"))
	assert.Equal(t, "x", StripANSI("\x1b[?25lx"))
}
