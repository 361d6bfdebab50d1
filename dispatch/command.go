// Package dispatch interprets radio transcripts against the command
// grammar and tracks unit status for assignment.
package dispatch

// Status is the operational state of a unit.
type Status int

const (
	StatusAvailable    Status = iota // 10-8
	StatusOutOfService               // 10-7
	StatusBusy                       // 10-6
)

// Code returns the radio status code spoken on the air.
func (s Status) Code() string {
	switch s {
	case StatusAvailable:
		return "10-8"
	case StatusOutOfService:
		return "10-7"
	case StatusBusy:
		return "10-6"
	}
	return "unknown"
}

func (s Status) String() string {
	switch s {
	case StatusAvailable:
		return "AVAILABLE"
	case StatusOutOfService:
		return "OUT_OF_SERVICE"
	case StatusBusy:
		return "BUSY"
	}
	return "UNKNOWN"
}

// Kind discriminates the recognized command variants.
type Kind int

const (
	KindUnrecognized Kind = iota
	KindCodeLookup
	KindStatusUpdate
	KindDispatchRequest
	KindGreeting
)

// Command is the single recognized command for one transcript.
type Command struct {
	Kind     Kind
	Callsign string // StatusUpdate, Greeting
	Status   Status // StatusUpdate
	Code     string // CodeLookup
}
