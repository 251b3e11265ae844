package source

import "fmt"

type timeKind uint8

const (
	kindNow timeKind = iota
	kindAt
	kindIn
)

// Time is the time argument of the scheduling calls.
//
// The zero value is Now, the scheduling clock's current time: transport
// seconds for a synced source, the context's Now for an unsynced one.
type Time struct {
	kind  timeKind
	value Seconds
}

// Now leaves the time to the source.
var Now = Time{}

// At is the absolute time sec on the scheduling clock.
func At(sec Seconds) Time { return Time{kind: kindAt, value: sec} }

// In is delta seconds after the scheduling clock's current time.
func In(delta Seconds) Time { return Time{kind: kindIn, value: delta} }

func (t Time) String() string {
	switch t.kind {
	case kindAt:
		return fmt.Sprintf("%.6f", t.value)
	case kindIn:
		return fmt.Sprintf("+%.6f", t.value)
	}
	return "now"
}
