// Package alert derives the 4-level status used to drive passive
// notification surfaces. Levels are ordered so that merging two levels is a
// plain max.
package alert

// Level is the ordered alert severity: Neutral < Green < Amber < Red.
type Level int

const (
	Neutral Level = iota
	Green
	Amber
	Red
)

func (l Level) String() string {
	switch l {
	case Neutral:
		return "Neutral"
	case Green:
		return "All Clear"
	case Amber:
		return "Attention Needed"
	case Red:
		return "Critical"
	default:
		return "Unknown"
	}
}

// ColorHex returns the display color for the level.
func (l Level) ColorHex() string {
	switch l {
	case Green:
		return "#10B981"
	case Amber:
		return "#F59E0B"
	case Red:
		return "#EF4444"
	default:
		return "#6B7280"
	}
}

// IsCritical reports whether the level should trigger an active alert.
func (l Level) IsCritical() bool { return l == Red }

// Combine merges two levels, keeping the more severe one.
func Combine(a, b Level) Level {
	if a >= b {
		return a
	}
	return b
}

// Compute derives the level from current counts. Rules apply in order:
// any active incident wins, then stale work, then an empty pending queue.
func Compute(activeIncidents, staleCount, pendingCount int) Level {
	switch {
	case activeIncidents > 0:
		return Red
	case staleCount > 0:
		return Amber
	case pendingCount == 0:
		return Green
	default:
		return Neutral
	}
}

// Transition records a change between two recorded levels.
type Transition struct {
	From   Level  `json:"from"`
	To     Level  `json:"to"`
	Reason string `json:"reason"`
}
