package alarm

import (
	"fmt"
	"time"

	"mqguard/internal/clock"
	"mqguard/internal/ident"
)

// FloodingAlarm fires when two messages on the same identifier arrive
// closer together than Period. The first message is never flooding; the
// last-seen timestamp is updated on every message. Relies on the
// single-writer invariant of the registry's event loop: CheckMessage is
// never called concurrently for the same alarm instance.
type FloodingAlarm struct {
	base
	Period time.Duration

	clock    clock.Clock
	lastSeen time.Time
	known    bool
}

// NewFloodingAlarm builds a FloodingAlarm with the production clock.
func NewFloodingAlarm(name string, period time.Duration) *FloodingAlarm {
	return NewFloodingAlarmWithClock(name, period, clock.System{})
}

// NewFloodingAlarmWithClock builds a FloodingAlarm against an injected clock.
func NewFloodingAlarmWithClock(name string, period time.Duration, c clock.Clock) *FloodingAlarm {
	return &FloodingAlarm{
		base:   base{name: name, kind: MessageDriven, priority: PriorityOther},
		Period: period,
		clock:  c,
	}
}

func (a *FloodingAlarm) Criteria() *string {
	c := a.Period.String()
	return &c
}

func (a *FloodingAlarm) CheckMessage(id ident.DataIdentifier, payload []byte) (bool, *string) {
	now := a.clock.Now()
	defer func() {
		a.lastSeen = now
		a.known = true
	}()

	if !a.known {
		return false, nil
	}
	elapsed := now.Sub(a.lastSeen)
	if elapsed < a.Period {
		return true, msg(fmt.Sprintf("flooding detected: update after %s, minimum period is %s", elapsed, a.Period))
	}
	return false, nil
}
