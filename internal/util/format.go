package util

import (
	"fmt"
	"strconv"
	"time"
)

// FormatNumber abbreviates large counters, e.g. 1234 as "1.2K"
func FormatNumber(n int) string {
	switch abs := max(n, -n); {
	case abs < 1000:
		return strconv.Itoa(n)
	case abs < 1000000:
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	default:
		return fmt.Sprintf("%.1fM", float64(n)/1000000)
	}
}

// FormatDuration renders a span of simulated time with its two largest
// units, e.g. "6m 41s", "2h 5m" or "3d 4h". Sub-second spans render as "0s".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		return "-" + FormatDuration(-d)
	}
	secs := int64(d / time.Second)
	days, hours := secs/86400, secs/3600%24
	minutes, seconds := secs/60%60, secs%60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

// FormatSpeed renders a signed playback speed, e.g. "10x" or "-2.5x"
func FormatSpeed(speed float64) string {
	return strconv.FormatFloat(speed, 'g', 4, 64) + "x"
}

// FormatRatio renders successes against attempts, e.g. "3/4"
func FormatRatio(ok, failed int) string {
	return fmt.Sprintf("%d/%d", ok, ok+failed)
}

// Percentage returns where v lies between start and end, clamped to [0, 100]
func Percentage(v, start, end float64) float64 {
	if end <= start {
		if v >= end {
			return 100
		}
		return 0
	}
	p := (v - start) / (end - start) * 100
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
