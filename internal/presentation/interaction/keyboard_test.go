package interaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyboardReader(t *testing.T) {
	kr := &KeyboardReader{
		input: make(chan KeyEvent, 10),
		stop:  make(chan struct{}),
	}

	tests := []struct {
		name     string
		input    []byte
		expected *KeyEvent
	}{
		{name: "Regular char", input: []byte{'a'}, expected: &KeyEvent{Key: 'a', Type: KeyChar}},
		{name: "Escape", input: []byte{27}, expected: &KeyEvent{Key: 27, Type: KeyEscape}},
		{name: "Ctrl+C", input: []byte{3}, expected: &KeyEvent{Key: 3, Type: KeyChar}},
		{name: "Arrow right", input: []byte{27, '[', 'C'}, expected: &KeyEvent{Type: KeyArrowRight}},
		{name: "Arrow left", input: []byte{27, '[', 'D'}, expected: &KeyEvent{Type: KeyArrowLeft}},
		{name: "Unknown sequence", input: []byte{27, '[', 'Z'}, expected: nil},
		{name: "Empty", input: []byte{}, expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, kr.parseInput(tt.input))
		})
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		event  KeyEvent
		action Action
	}{
		{KeyEvent{Key: ' ', Type: KeyChar}, ActionTogglePlay},
		{KeyEvent{Key: 'q', Type: KeyChar}, ActionQuit},
		{KeyEvent{Key: 3, Type: KeyChar}, ActionQuit},
		{KeyEvent{Key: 27, Type: KeyEscape}, ActionQuit},
		{KeyEvent{Type: KeyArrowRight}, ActionStepForward},
		{KeyEvent{Type: KeyArrowLeft}, ActionStepBackward},
		{KeyEvent{Key: '+', Type: KeyChar}, ActionSpeedUp},
		{KeyEvent{Key: '-', Type: KeyChar}, ActionSpeedDown},
		{KeyEvent{Key: 'r', Type: KeyChar}, ActionReverse},
		{KeyEvent{Key: 'G', Type: KeyChar}, ActionSeekEnd},
		{KeyEvent{Key: '\t', Type: KeyChar}, ActionCycleType},
		{KeyEvent{Key: 't', Type: KeyChar}, ActionCycleLayout},
		{KeyEvent{Key: 'z', Type: KeyChar}, ActionNone},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.action, Resolve(tt.event), "key %q type %d", tt.event.Key, tt.event.Type)
	}
}

func TestEntitySorter(t *testing.T) {
	rows := []map[string]interface{}{
		{"id": 3, "capacity": 10.0},
		{"id": 1, "capacity": nil},
		{"id": 2, "capacity": 20.0},
	}
	sorter := NewEntitySorter()

	sorter.Sort(rows)
	assert.Equal(t, []interface{}{1, 2, 3}, ids(rows))

	sorter.SetField("capacity", SortDescending)
	sorter.Sort(rows)
	assert.Equal(t, []interface{}{2, 3, 1}, ids(rows), "nil goes last")

	sorter.Cycle([]string{"id", "capacity"})
	assert.Equal(t, "id", sorter.Field())
	sorter.Cycle([]string{"id", "capacity"})
	assert.Equal(t, "capacity", sorter.Field())
}

func ids(rows []map[string]interface{}) []interface{} {
	out := make([]interface{}, len(rows))
	for i, r := range rows {
		out[i] = r["id"]
	}
	return out
}
