package interaction

// Action is a playback command bound to a key
type Action int

const (
	ActionNone Action = iota
	ActionQuit
	ActionTogglePlay
	ActionStepForward
	ActionStepBackward
	ActionSpeedUp
	ActionSpeedDown
	ActionReverse
	ActionSeekStart
	ActionSeekEnd
	ActionCycleSort
	ActionToggleHelp
	ActionCycleType
	ActionCycleLayout
)

// Resolve maps a key event to its playback action
func Resolve(event KeyEvent) Action {
	switch event.Type {
	case KeyEscape:
		return ActionQuit
	case KeyArrowRight:
		return ActionStepForward
	case KeyArrowLeft:
		return ActionStepBackward
	case KeyArrowUp:
		return ActionSpeedUp
	case KeyArrowDown:
		return ActionSpeedDown
	}

	switch event.Key {
	case 'q', 'Q', 3: // 'q', 'Q', or Ctrl+C
		return ActionQuit
	case ' ', 'p', 'P':
		return ActionTogglePlay
	case '.', 'l':
		return ActionStepForward
	case ',', 'j':
		return ActionStepBackward
	case '+', '=':
		return ActionSpeedUp
	case '-', '_':
		return ActionSpeedDown
	case 'r', 'R':
		return ActionReverse
	case 'g':
		return ActionSeekStart
	case 'G':
		return ActionSeekEnd
	case 's', 'S':
		return ActionCycleSort
	case 'h', 'H', '?':
		return ActionToggleHelp
	case 'e', 'E', '\t':
		return ActionCycleType
	case 't', 'T':
		return ActionCycleLayout
	}
	return ActionNone
}

// HelpLines describes the key bindings
func HelpLines() []string {
	return []string{
		"space/p  play or pause",
		"→ . l    step forward",
		"← , j    step backward",
		"↑ + =    faster",
		"↓ - _    slower",
		"r        reverse direction",
		"g / G    jump to start / end",
		"s        cycle entity sort",
		"e tab    next entity type",
		"t        full or minimal layout",
		"h ?      toggle help",
		"q esc    quit",
	}
}
