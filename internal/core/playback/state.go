package playback

// State is the playback clock state
type State int

const (
	// Loading is the state before the snapshot and first page are loaded
	Loading State = iota
	// Start means no change entry has been applied
	Start
	// Paused is a stopped clock anywhere on the timeline
	Paused
	// End means every change entry has been applied
	End
	// Forward is playback toward the end
	Forward
	// Rewind is playback toward the start
	Rewind
)

func (s State) String() string {
	switch s {
	case Loading:
		return "LOADING"
	case Start:
		return "START"
	case Paused:
		return "PAUSED"
	case End:
		return "END"
	case Forward:
		return "FORWARD"
	case Rewind:
		return "REWIND"
	default:
		return "UNKNOWN"
	}
}

// Running reports whether the clock advances on ticks
func (s State) Running() bool {
	return s == Forward || s == Rewind
}

// Notification reports a state change or a playback failure
type Notification struct {
	State State
	Time  float64
	Err   error
}
