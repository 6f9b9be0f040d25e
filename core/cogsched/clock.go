package cogsched

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseClock converts an "HH:MM" string to minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: malformed time %q", ErrInvalidWindow, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: malformed hour in %q", ErrInvalidWindow, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%w: malformed minute in %q", ErrInvalidWindow, s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: time %q out of range", ErrInvalidWindow, s)
	}
	return h*60 + m, nil
}

// FormatClock converts minutes since midnight to "HH:MM".
func FormatClock(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// Interval is a half-open [Start, End) window in minutes since midnight.
type Interval struct {
	Start int
	End   int
}

// Duration returns the interval length in minutes.
func (iv Interval) Duration() int {
	return iv.End - iv.Start
}

// Contains reports whether minute t falls inside the interval.
func (iv Interval) Contains(t int) bool {
	return t >= iv.Start && t < iv.End
}

// Overlaps reports whether two intervals share any minutes.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start < other.End && other.Start < iv.End
}

// Clamp restricts the interval to the given window. The second return is
// false when nothing remains inside the window.
func (iv Interval) Clamp(window Interval) (Interval, bool) {
	out := iv
	if out.Start < window.Start {
		out.Start = window.Start
	}
	if out.End > window.End {
		out.End = window.End
	}
	if out.Start >= out.End {
		return Interval{}, false
	}
	return out, true
}

// ParseRange parses "HH:MM-HH:MM" into an Interval.
func ParseRange(s string) (Interval, error) {
	parts := strings.SplitN(strings.TrimSpace(s), "-", 2)
	if len(parts) != 2 {
		return Interval{}, fmt.Errorf("%w: malformed range %q", ErrInvalidWindow, s)
	}
	start, err := ParseClock(parts[0])
	if err != nil {
		return Interval{}, err
	}
	end, err := ParseClock(parts[1])
	if err != nil {
		return Interval{}, err
	}
	return Interval{Start: start, End: end}, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
