package util

import (
	"fmt"
	"sync/atomic"
	"time"
)

// TimeProvider formats wall-clock times in the display timezone. Simulation
// times do not go through it; they are rendered by FormatClock.
type TimeProvider struct {
	location *time.Location
}

var timeProvider atomic.Pointer[TimeProvider]

// LoadTimezone resolves a timezone name. Empty and "Local" mean the system zone.
func LoadTimezone(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q (try Local, UTC or Europe/Madrid): %w", name, err)
	}
	return loc, nil
}

// InitializeTimeProvider replaces the global provider. On error the previous
// provider stays in place.
func InitializeTimeProvider(timezone string) error {
	loc, err := LoadTimezone(timezone)
	if err != nil {
		return err
	}
	timeProvider.Store(&TimeProvider{location: loc})
	return nil
}

// GetTimeProvider returns the global provider, in the system zone until
// InitializeTimeProvider succeeds
func GetTimeProvider() *TimeProvider {
	if tp := timeProvider.Load(); tp != nil {
		return tp
	}
	return &TimeProvider{location: time.Local}
}

// Location returns the display timezone
func (tp *TimeProvider) Location() *time.Location {
	return tp.location
}

// Format formats t in the display timezone
func (tp *TimeProvider) Format(t time.Time, layout string) string {
	return t.In(tp.location).Format(layout)
}

// FormatNow formats the current wall-clock time
func (tp *TimeProvider) FormatNow(layout string) string {
	return tp.Format(time.Now(), layout)
}

// NoClock is shown for a playback clock that has not reached the first entry
const NoClock = "--:--:--"

// FormatClock renders simulation seconds as HH:MM:SS in UTC. Negative
// seconds render as NoClock.
func FormatClock(seconds float64) string {
	if seconds < 0 {
		return NoClock
	}
	whole := int64(seconds)
	return time.Unix(whole, 0).UTC().Format("15:04:05")
}
