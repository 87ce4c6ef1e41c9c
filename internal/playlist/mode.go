package playlist

import "fmt"

// PlayMode decides how the cursor moves on the next navigation. Changing it
// never interrupts the track already playing.
type PlayMode int

const (
	Loop PlayMode = iota
	Shuffle
	SingleRepeat
)

func (m PlayMode) String() string {
	switch m {
	case Loop:
		return "Loop"
	case Shuffle:
		return "Shuffle"
	case SingleRepeat:
		return "Repeat"
	default:
		return fmt.Sprintf("PlayMode(%d)", int(m))
	}
}

// ParseMode maps the wire names used by the control surface to a PlayMode.
func ParseMode(s string) (PlayMode, error) {
	switch s {
	case "Loop":
		return Loop, nil
	case "Shuffle":
		return Shuffle, nil
	case "Repeat":
		return SingleRepeat, nil
	default:
		return Loop, fmt.Errorf("invalid play mode %q", s)
	}
}
