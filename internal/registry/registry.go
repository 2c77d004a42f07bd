package registry

import (
	"fmt"
	"sync"

	"mqguard/internal/alarm"
	"mqguard/internal/guard"
	"mqguard/internal/ident"
)

// Sink receives every DeviceReport the registry emits. ReportingManager
// implements this.
type Sink interface {
	Report(report *DeviceReport)
}

// Metrics receives throughput observations from the registry. Optional —
// a registry with no metrics attached simply skips these calls.
// *metrics.Registry implements this.
type Metrics interface {
	ObserveMessage(broker, topic string)
	ObserveReport(device string, activeDelta int)
}

// trackedAlarm is the registry's own mutable record for one (identifier,
// alarm) pair within a device. It is addressed two ways: by position, to
// preserve the device's registration order for report enumeration, and by
// (identifier, alarm) key, for O(1) update when a bundle result arrives.
type trackedAlarm struct {
	id    ident.DataIdentifier
	alarm alarm.Alarm
	track AlarmTrack
}

type deviceState struct {
	guard    *guard.DeviceGuard
	presence PresenceTrack
	entries  []*trackedAlarm
	lookup   map[ident.DataIdentifier]map[alarm.Alarm]*trackedAlarm
}

// eventKind distinguishes the two sources feeding the registry's mailbox.
type eventKind int

const (
	messageEventKind eventKind = iota
	periodicEventKind
)

type event struct {
	kind    eventKind
	broker  string
	topic   string
	payload []byte
}

// DeviceRegistry is the central state store. It owns every AlarmTrack and
// PresenceTrack, routes ingress to the right device guards, maintains the
// per-alarm tracking tuple, and emits a DeviceReport through its Sink
// whenever an event touches a device's state.
//
// All state mutation happens inside Run's goroutine: broker subscribers and
// the PeriodicChecker only ever deposit events onto the mailbox channel, so
// onMessage and onPeriodic can never interleave for the same device.
type DeviceRegistry struct {
	sink    Sink
	metrics Metrics

	deviceOrder []string
	devices     map[string]*deviceState

	events   chan event
	done     chan struct{}
	stopOnce sync.Once
}

// NewDeviceRegistry creates an empty registry reporting to sink.
func NewDeviceRegistry(sink Sink) *DeviceRegistry {
	return &DeviceRegistry{
		sink:    sink,
		devices: make(map[string]*deviceState),
		events:  make(chan event, 256),
		done:    make(chan struct{}),
	}
}

// SetMetrics attaches a metrics sink. Must be called before Run starts;
// nil is valid and disables metrics observation.
func (r *DeviceRegistry) SetMetrics(m Metrics) {
	r.metrics = m
}

// AddGuardedDevice registers a device's guard and seeds its tracking
// tables. Must be called during configuration load, before Run starts.
func (r *DeviceRegistry) AddGuardedDevice(device string, g *guard.DeviceGuard) {
	ds := &deviceState{
		guard:    g,
		presence: initialPresenceTrack(g.Presence().HasPresence()),
		lookup:   make(map[ident.DataIdentifier]map[alarm.Alarm]*trackedAlarm),
	}
	for _, guarded := range g.GuardedAlarms() {
		if _, ok := ds.lookup[guarded.ID]; !ok {
			ds.lookup[guarded.ID] = make(map[alarm.Alarm]*trackedAlarm)
		}
		for _, a := range guarded.Alarms {
			ta := &trackedAlarm{id: guarded.ID, alarm: a, track: initialAlarmTrack()}
			ds.entries = append(ds.entries, ta)
			ds.lookup[guarded.ID][a] = ta
		}
	}
	r.deviceOrder = append(r.deviceOrder, device)
	r.devices[device] = ds
}

// Run processes the event mailbox until Stop is called. It is intended to
// run in its own goroutine for the registry's lifetime.
func (r *DeviceRegistry) Run() {
	for {
		select {
		case ev := <-r.events:
			switch ev.kind {
			case messageEventKind:
				r.handleMessage(ev.broker, ev.topic, ev.payload)
			case periodicEventKind:
				r.handlePeriodic()
			}
		case <-r.done:
			return
		}
	}
}

// Stop terminates Run. Safe to call more than once; calls after the first
// do nothing.
func (r *DeviceRegistry) Stop() {
	r.stopOnce.Do(func() { close(r.done) })
}

// OnMessage enqueues an ingress (broker, topic, payload) triple. Safe to
// call from any broker subscriber's own goroutine.
func (r *DeviceRegistry) OnMessage(broker, topic string, payload []byte) {
	r.events <- event{kind: messageEventKind, broker: broker, topic: topic, payload: payload}
}

// OnPeriodic enqueues a periodic tick. Called by the PeriodicChecker.
func (r *DeviceRegistry) OnPeriodic() {
	r.events <- event{kind: periodicEventKind}
}

func (r *DeviceRegistry) handleMessage(broker, topic string, payload []byte) {
	if r.metrics != nil {
		r.metrics.ObserveMessage(broker, topic)
	}
	id := ident.DataIdentifier{Broker: broker, Topic: topic}
	for _, name := range r.deviceOrder {
		ds := r.devices[name]
		bundle := ds.guard.MessageReceived(id, payload)
		if bundle.Presence == nil && len(bundle.Updates) == 0 {
			continue
		}

		if bundle.Presence != nil {
			ds.presence.apply(bundle.Presence.Active, bundle.Presence.Message)
		}
		r.applyUpdates(name, ds, bundle.Updates)

		report := r.buildReport(name, ds)
		r.sink.Report(report)
		r.observeReport(name, report)
		r.clearDevice(ds)
	}
}

func (r *DeviceRegistry) handlePeriodic() {
	for _, name := range r.deviceOrder {
		ds := r.devices[name]
		bundle := ds.guard.OnPeriodic()
		if len(bundle.Updates) == 0 {
			continue
		}

		r.applyUpdates(name, ds, bundle.Updates)

		report := r.buildReport(name, ds)
		r.sink.Report(report)
		r.observeReport(name, report)
		r.clearDevice(ds)
	}
}

// observeReport reports one emitted DeviceReport to the attached metrics
// sink along with the net change in active-alarm count it represents.
func (r *DeviceRegistry) observeReport(device string, report *DeviceReport) {
	if r.metrics == nil {
		return
	}
	delta := 0
	for _, e := range report.Changes() {
		if e.Track.Active {
			delta++
		} else {
			delta--
		}
	}
	r.metrics.ObserveReport(device, delta)
}

func (r *DeviceRegistry) applyUpdates(device string, ds *deviceState, updates map[ident.DataIdentifier][]guard.Result) {
	for id, results := range updates {
		byAlarm, ok := ds.lookup[id]
		if !ok {
			panic(fmt.Sprintf("mqguard: device %q has no tracking table for identifier %s — misconfigured guard", device, id))
		}
		for _, res := range results {
			ta, ok := byAlarm[res.Alarm]
			if !ok {
				panic(fmt.Sprintf("mqguard: device %q identifier %s has no track for alarm %q — misconfigured guard", device, id, res.Alarm.Name()))
			}
			ta.track.apply(res.Active, res.Message)
		}
	}
}

func (r *DeviceRegistry) buildReport(device string, ds *deviceState) *DeviceReport {
	entries := make([]AlarmEntry, len(ds.entries))
	for i, ta := range ds.entries {
		entries[i] = AlarmEntry{Identifier: ta.id, Alarm: ta.alarm, Track: ta.track}
	}
	return newDeviceReport(device, ds.guard.Presence(), ds.presence, entries)
}

func (r *DeviceRegistry) clearDevice(ds *deviceState) {
	ds.presence.clear()
	for _, ta := range ds.entries {
		ta.track.clear()
	}
}

// Snapshot builds a DeviceReport for every registered device reflecting
// current state, without clearing changed/updated flags or going through
// the event mailbox. Used by streaming sessions to render their initial
// frame.
func (r *DeviceRegistry) Snapshot() []*DeviceReport {
	reports := make([]*DeviceReport, 0, len(r.deviceOrder))
	for _, name := range r.deviceOrder {
		reports = append(reports, r.buildReport(name, r.devices[name]))
	}
	return reports
}

// Devices returns the names of every registered device, in registration order.
func (r *DeviceRegistry) Devices() []string {
	out := make([]string, len(r.deviceOrder))
	copy(out, r.deviceOrder)
	return out
}
