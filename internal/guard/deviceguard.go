package guard

import (
	"mqguard/internal/alarm"
	"mqguard/internal/ident"
)

// Bundle is the result of evaluating one event against a DeviceGuard:
// an optional presence result, plus per-identifier alarm results from
// every relevant update guard.
type Bundle struct {
	Presence *Result
	Updates  map[ident.DataIdentifier][]Result
}

// DeviceGuard groups every UpdateGuard for one device and, if the device
// declares presence, a synthetic update guard wrapping a single
// PresenceAlarm bound to the presence identifier.
type DeviceGuard struct {
	Name     string
	presence DevicePresence

	presenceGuard *UpdateGuard
	updateGuards  []*UpdateGuard
}

// NewDeviceGuard builds a DeviceGuard for presence from the given
// declaration. If presence.HasPresence() is false, the device has no
// presence tracking.
func NewDeviceGuard(name string, presence DevicePresence) *DeviceGuard {
	g := &DeviceGuard{Name: name, presence: presence}
	if presence.HasPresence() {
		online, offline := presence.Tokens()
		pg := NewUpdateGuard(name+".presence", presence.Identifier())
		pg.AddAlarm(alarm.NewPresenceAlarm(online, offline))
		g.presenceGuard = pg
	}
	return g
}

// AddUpdateGuard attaches an update guard to this device.
func (g *DeviceGuard) AddUpdateGuard(u *UpdateGuard) {
	g.updateGuards = append(g.updateGuards, u)
}

// Presence returns the device's presence declaration.
func (g *DeviceGuard) Presence() DevicePresence {
	return g.presence
}

// MessageReceived evaluates an incoming message against every update guard
// relevant to id, plus the presence guard if id matches it. Every relevant
// guard is evaluated independently — there is no short-circuit once one
// guard has matched.
func (g *DeviceGuard) MessageReceived(id ident.DataIdentifier, payload []byte) Bundle {
	bundle := Bundle{Updates: make(map[ident.DataIdentifier][]Result)}

	if g.presenceGuard != nil && g.presenceGuard.IsRelevant(id) {
		results := g.presenceGuard.GetUpdateCheck(id, payload)
		if len(results) > 0 {
			r := results[0]
			bundle.Presence = &r
		}
	}

	for _, u := range g.updateGuards {
		if !u.IsRelevant(id) {
			continue
		}
		results := u.GetUpdateCheck(id, payload)
		bundle.Updates[id] = append(bundle.Updates[id], results...)
	}

	return bundle
}

// OnPeriodic evaluates every update guard's periodic alarms. Presence is
// purely message-driven and never appears here.
func (g *DeviceGuard) OnPeriodic() Bundle {
	bundle := Bundle{Updates: make(map[ident.DataIdentifier][]Result)}
	for _, u := range g.updateGuards {
		results := u.GetPeriodicCheck()
		if len(results) == 0 {
			continue
		}
		bundle.Updates[u.DataIdentifier] = append(bundle.Updates[u.DataIdentifier], results...)
	}
	return bundle
}

// GuardedIdentifier pairs an update guard's identifier with the alarms it
// declares, preserving registration order.
type GuardedIdentifier struct {
	ID     ident.DataIdentifier
	Alarms []alarm.Alarm
}

// GuardedAlarms returns every identifier this device guards together with
// the alarms declared against it, in the order update guards were
// registered. Registry tracking tables and report enumeration order are
// both derived from this order, so it must be deterministic.
func (g *DeviceGuard) GuardedAlarms() []GuardedIdentifier {
	out := make([]GuardedIdentifier, 0, len(g.updateGuards))
	for _, u := range g.updateGuards {
		out = append(out, GuardedIdentifier{ID: u.DataIdentifier, Alarms: u.GetAlarms()})
	}
	return out
}
