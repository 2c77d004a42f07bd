package streaming

import (
	"mqguard/internal/ident"
	"mqguard/internal/registry"
)

// GuardRef names the data identifier a Reason is about.
type GuardRef struct {
	Broker string `json:"broker"`
	Topic  string `json:"topic"`
}

// Reason is one entry in a device's reasons list: an alarm (or the
// distinguished presence alarm) and its current status.
type Reason struct {
	Guard   GuardRef `json:"guard"`
	Alarm   string   `json:"alarm"`
	Status  string   `json:"status"`
	Message *string  `json:"message,omitempty"`
}

// Reasons groups a device's presence reason (if any) with its guard reasons.
type Reasons struct {
	Presence *Reason  `json:"presence,omitempty"`
	Guards   []Reason `json:"guards"`
}

// DeviceState is one device's entry in an init or update frame.
type DeviceState struct {
	Name    string  `json:"name"`
	Status  string  `json:"status"`
	Reasons Reasons `json:"reasons"`
}

// BrokerInfo names a subscribed broker in an init frame.
type BrokerInfo struct {
	Name string `json:"name"`
	Host string `json:"host"`
	Port int    `json:"port"`
}

// InitFrame is the first frame sent to every session: enough for a client
// to render the complete current state on its own.
type InitFrame struct {
	Feed    string       `json:"feed"`
	Devices []DeviceState `json:"devices"`
	Brokers []BrokerInfo `json:"brokers"`
}

// UpdateFrame carries one device's change. The registry emits one report
// per device per event, so an update frame always names exactly one
// device.
type UpdateFrame struct {
	Feed    string        `json:"feed"`
	Devices []DeviceState `json:"devices"`
}

func alarmStatus(active bool) string {
	if active {
		return "error"
	}
	return "ok"
}

func reasonFor(id ident.DataIdentifier, alarmName string, active bool, message *string) Reason {
	return Reason{
		Guard:   GuardRef{Broker: id.Broker, Topic: id.Topic},
		Alarm:   alarmName,
		Status:  alarmStatus(active),
		Message: message,
	}
}

func buildInitFrame(snapshot []*registry.DeviceReport, brokers []BrokerInfo) InitFrame {
	devices := make([]DeviceState, len(snapshot))
	for i, report := range snapshot {
		devices[i] = buildDeviceState(report, report.Alarms())
	}
	return InitFrame{Feed: "init", Devices: devices, Brokers: brokers}
}

func buildUpdateFrame(report *registry.DeviceReport) UpdateFrame {
	return UpdateFrame{Feed: "update", Devices: []DeviceState{buildDeviceState(report, report.Changes())}}
}

// buildDeviceState renders a device's overall status from its full current
// state, but lists only the given subset of alarm entries as reasons — the
// snapshot path passes every tracked alarm, the update path passes only
// those that changed this event.
func buildDeviceState(report *registry.DeviceReport, entries []registry.AlarmEntry) DeviceState {
	status := "ok"
	if report.HasAlarmFailures() || report.HasPresenceFailure() {
		status = "error"
	}

	reasons := Reasons{Guards: make([]Reason, 0, len(entries))}
	if report.Presence.HasPresence() && (report.HasPresenceFailure() || report.HasPresenceChange() || report.HasPresenceUpdate()) {
		pt := report.PresenceTrack()
		r := reasonFor(report.Presence.Identifier(), "Presence", pt.Active, pt.Message)
		reasons.Presence = &r
	}
	for _, e := range entries {
		reasons.Guards = append(reasons.Guards, reasonFor(e.Identifier, e.Alarm.Name(), e.Track.Active, e.Track.Message))
	}

	return DeviceState{Name: report.Device, Status: status, Reasons: reasons}
}
