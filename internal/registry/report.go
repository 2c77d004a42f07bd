package registry

import (
	"mqguard/internal/alarm"
	"mqguard/internal/guard"
	"mqguard/internal/ident"
)

// AlarmEntry is one row of a DeviceReport: the identifier and alarm the
// track belongs to, plus a snapshot of its track at report time.
type AlarmEntry struct {
	Identifier ident.DataIdentifier
	Alarm      alarm.Alarm
	Track      AlarmTrack
}

// DeviceReport is an immutable per-device snapshot produced after every
// event. It owns its own deep copy of the presence track and every alarm
// track so that once built it is immune to subsequent registry mutation.
type DeviceReport struct {
	Device   string
	Presence guard.DevicePresence

	presenceTrack PresenceTrack
	entries       []AlarmEntry // stable order: the device's registration order

	hasPresenceChange  bool
	hasPresenceUpdate  bool
	hasPresenceFailure bool
	hasAlarmChanges    bool
	hasAlarmUpdates    bool
	hasAlarmFailures   bool
}

func newDeviceReport(device string, presence guard.DevicePresence, presenceTrack PresenceTrack, entries []AlarmEntry) *DeviceReport {
	r := &DeviceReport{
		Device:        device,
		Presence:      presence,
		presenceTrack: presenceTrack,
		entries:       entries,
	}
	if presence.HasPresence() {
		r.hasPresenceChange = presenceTrack.Changed
		r.hasPresenceUpdate = presenceTrack.Updated
		r.hasPresenceFailure = presenceTrack.Active
	}
	for _, e := range entries {
		if e.Track.Active {
			r.hasAlarmFailures = true
		}
		if e.Track.Changed {
			r.hasAlarmChanges = true
		}
		if e.Track.Updated {
			r.hasAlarmUpdates = true
		}
	}
	return r
}

// PresenceTrack returns the device's presence track at report time.
func (r *DeviceReport) PresenceTrack() PresenceTrack { return r.presenceTrack }

// HasPresenceChange reports whether the presence track's Changed flag was set.
func (r *DeviceReport) HasPresenceChange() bool { return r.hasPresenceChange }

// HasPresenceUpdate reports whether the presence track's Updated flag was set.
func (r *DeviceReport) HasPresenceUpdate() bool { return r.hasPresenceUpdate }

// HasPresenceFailure reports whether presence is currently active (offline).
func (r *DeviceReport) HasPresenceFailure() bool { return r.hasPresenceFailure }

// HasAlarmChanges reports whether any alarm's Changed flag was set.
func (r *DeviceReport) HasAlarmChanges() bool { return r.hasAlarmChanges }

// HasAlarmUpdates reports whether any alarm's Updated flag was set.
func (r *DeviceReport) HasAlarmUpdates() bool { return r.hasAlarmUpdates }

// HasAlarmFailures reports whether any alarm is currently active.
func (r *DeviceReport) HasAlarmFailures() bool { return r.hasAlarmFailures }

// HasChanges reports whether the report carries any alarm change or a
// presence update — the same condition line reporters and streaming
// reporters check before emitting anything for this event.
func (r *DeviceReport) HasChanges() bool {
	return r.hasPresenceUpdate || r.hasAlarmChanges
}

// Alarms returns every tracked alarm entry in stable registration order.
func (r *DeviceReport) Alarms() []AlarmEntry {
	return r.entries
}

// Changes returns entries whose Changed flag is set, in stable order.
func (r *DeviceReport) Changes() []AlarmEntry {
	return filterEntries(r.entries, func(e AlarmEntry) bool { return e.Track.Changed })
}

// Failures returns entries whose Active flag is set, in stable order.
func (r *DeviceReport) Failures() []AlarmEntry {
	return filterEntries(r.entries, func(e AlarmEntry) bool { return e.Track.Active })
}

// Updates returns entries whose Updated flag is set, in stable order.
func (r *DeviceReport) Updates() []AlarmEntry {
	return filterEntries(r.entries, func(e AlarmEntry) bool { return e.Track.Updated })
}

func filterEntries(entries []AlarmEntry, keep func(AlarmEntry) bool) []AlarmEntry {
	out := make([]AlarmEntry, 0, len(entries))
	for _, e := range entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
