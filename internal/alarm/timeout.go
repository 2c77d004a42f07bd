package alarm

import (
	"fmt"
	"time"

	"mqguard/internal/clock"
	"mqguard/internal/ident"
)

// TimeoutAlarm fires when no message has been seen on its identifier for
// longer than Period. NotifyMessage always clears it and refreshes the
// last-seen timestamp; CheckPeriodic is the only path that can activate it.
// If no message has ever been received, the first periodic check seeds the
// timestamp instead of firing, so the alarm activates on the first tick
// after Period elapses from that first check, not immediately.
type TimeoutAlarm struct {
	base
	Period time.Duration

	clock    clock.Clock
	lastSeen time.Time
	known    bool
}

// NewTimeoutAlarm builds a TimeoutAlarm with the production clock.
func NewTimeoutAlarm(name string, period time.Duration) *TimeoutAlarm {
	return NewTimeoutAlarmWithClock(name, period, clock.System{})
}

// NewTimeoutAlarmWithClock builds a TimeoutAlarm against an injected clock.
func NewTimeoutAlarmWithClock(name string, period time.Duration, c clock.Clock) *TimeoutAlarm {
	return &TimeoutAlarm{
		base:   base{name: name, kind: Periodic, priority: PriorityOther},
		Period: period,
		clock:  c,
	}
}

func (a *TimeoutAlarm) Criteria() *string {
	c := a.Period.String()
	return &c
}

// NotifyMessage marks the identifier as seen. It always deactivates the
// alarm: a TimeoutAlarm can only be re-armed by a subsequent CheckPeriodic.
func (a *TimeoutAlarm) NotifyMessage(id ident.DataIdentifier, payload []byte) bool {
	a.lastSeen = a.clock.Now()
	a.known = true
	return true
}

func (a *TimeoutAlarm) CheckPeriodic() (bool, *string) {
	now := a.clock.Now()
	if !a.known {
		a.lastSeen = now
		a.known = true
		return false, nil
	}
	elapsed := now.Sub(a.lastSeen)
	if elapsed > a.Period {
		return true, msg(fmt.Sprintf("update timeouted: %gs", elapsed.Seconds()))
	}
	return false, nil
}
