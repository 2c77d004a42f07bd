// Package guard bundles alarms for a single data identifier (UpdateGuard)
// and groups update guards plus an optional presence check for a single
// device (DeviceGuard). Both are built once at configuration load and are
// immutable afterwards; the mutable per-alarm state lives in the registry.
package guard

import (
	"mqguard/internal/alarm"
	"mqguard/internal/ident"
)

// Result pairs one alarm with its evaluation outcome.
type Result struct {
	Alarm   alarm.Alarm
	Active  bool
	Message *string
}

// UpdateGuard evaluates every alarm declared against a single data
// identifier. Message-driven and periodic alarms are tracked in separate
// ordered lists so report order is deterministic.
type UpdateGuard struct {
	Name           string
	DataIdentifier ident.DataIdentifier

	messageAlarms  []alarm.Alarm
	periodicAlarms []alarm.Alarm
}

// NewUpdateGuard creates an empty update guard for the given identifier.
func NewUpdateGuard(name string, id ident.DataIdentifier) *UpdateGuard {
	return &UpdateGuard{Name: name, DataIdentifier: id}
}

// AddAlarm files the alarm into the message-driven or periodic list
// according to its declared Kind.
func (g *UpdateGuard) AddAlarm(a alarm.Alarm) {
	if a.Kind() == alarm.MessageDriven {
		g.messageAlarms = append(g.messageAlarms, a)
	} else {
		g.periodicAlarms = append(g.periodicAlarms, a)
	}
}

// IsRelevant reports whether a message on id concerns this update guard.
func (g *UpdateGuard) IsRelevant(id ident.DataIdentifier) bool {
	return id == g.DataIdentifier
}

// GetUpdateCheck evaluates a message against every alarm this guard owns.
// Periodic alarms are notified first — a TimeoutAlarm notified of a message
// observes it before any message-driven alarm runs, so a timeout and its
// guarded value never disagree about whether data arrived. A periodic alarm
// only contributes a result when the notification deactivates it.
func (g *UpdateGuard) GetUpdateCheck(id ident.DataIdentifier, payload []byte) []Result {
	results := make([]Result, 0, len(g.messageAlarms)+len(g.periodicAlarms))
	for _, a := range g.periodicAlarms {
		if a.NotifyMessage(id, payload) {
			results = append(results, Result{Alarm: a, Active: false, Message: nil})
		}
	}
	for _, a := range g.messageAlarms {
		active, message := a.CheckMessage(id, payload)
		results = append(results, Result{Alarm: a, Active: active, Message: message})
	}
	return results
}

// GetPeriodicCheck evaluates every periodic alarm against a wall-clock tick.
func (g *UpdateGuard) GetPeriodicCheck() []Result {
	results := make([]Result, 0, len(g.periodicAlarms))
	for _, a := range g.periodicAlarms {
		active, message := a.CheckPeriodic()
		results = append(results, Result{Alarm: a, Active: active, Message: message})
	}
	return results
}

// GetAlarms returns every alarm this guard owns, message-driven first then
// periodic, in a stable order used to seed the registry's tracking tables.
func (g *UpdateGuard) GetAlarms() []alarm.Alarm {
	all := make([]alarm.Alarm, 0, len(g.messageAlarms)+len(g.periodicAlarms))
	all = append(all, g.messageAlarms...)
	all = append(all, g.periodicAlarms...)
	return all
}
