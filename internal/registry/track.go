// Package registry implements the core of the core: the DeviceRegistry that
// routes ingress messages and periodic ticks to guards, maintains the
// active/changed/updated tracking tuple for every alarm, and synthesises
// per-device reports.
package registry

// AlarmTrack is the mutable per-(device, identifier, alarm) tuple the
// registry maintains. Changed is true only when the newest evaluation
// produced an Active value that differs from what was stored immediately
// before it; Updated is true only when the newest evaluation touched this
// alarm at all. Both are cleared to false once a DeviceReport carrying them
// has been emitted; Active and Message persist across that clear.
type AlarmTrack struct {
	Active  bool
	Changed bool
	Updated bool
	Message *string
}

// initialAlarmTrack is the track seeded for every non-presence alarm at
// device registration: clear, with no change or update recorded yet.
func initialAlarmTrack() AlarmTrack {
	return AlarmTrack{}
}

// clear drops the changed/updated flags after a report has consumed them.
func (t *AlarmTrack) clear() {
	t.Changed = false
	t.Updated = false
}

// apply records a fresh evaluation, computing Changed relative to the
// track's prior Active value.
func (t *AlarmTrack) apply(active bool, message *string) {
	t.Changed = active != t.Active
	t.Updated = true
	t.Active = active
	t.Message = message
}

// PresenceTrack has the same shape as AlarmTrack; it is kept distinct in
// the type system because it is addressed per-device rather than per-
// (identifier, alarm).
type PresenceTrack = AlarmTrack

const presenceNotYetReceived = "presence not yet received"

// initialPresenceTrack seeds a device's presence track per the declared
// invariant: a device with presence tracking starts active (not yet seen);
// a device without presence tracking starts clear.
func initialPresenceTrack(hasPresence bool) PresenceTrack {
	if !hasPresence {
		return PresenceTrack{}
	}
	msg := presenceNotYetReceived
	return PresenceTrack{Active: true, Message: &msg}
}
