package pneumatics

import "fmt"

// EventType identifies a valve transition boundary.
type EventType uint8

const (
	InjectStart EventType = iota
	InjectEnd
	VentStart
	VentEnd
)

func (e EventType) String() string {
	switch e {
	case InjectStart:
		return "INJECT_START"
	case InjectEnd:
		return "INJECT_END"
	case VentStart:
		return "VENT_START"
	case VentEnd:
		return "VENT_END"
	default:
		return fmt.Sprintf("EventType(%d)", uint8(e))
	}
}

// Event records one valve transition boundary so external loggers can
// correlate mechanical events with electrical output without polling.
type Event struct {
	FloaterID int
	Type      EventType
	Time      float64
}
