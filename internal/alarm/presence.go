package alarm

import (
	"fmt"

	"mqguard/internal/ident"
)

// PresenceAlarm evaluates a device's online/offline signalling message. It
// is not configured standalone; the guard package wraps one inside the
// synthetic presence update-guard for any device that declares presence.
type PresenceAlarm struct {
	base
	Online, Offline string
}

// NewPresenceAlarm builds a PresenceAlarm for the given online/offline tokens.
func NewPresenceAlarm(online, offline string) *PresenceAlarm {
	return &PresenceAlarm{
		base:    base{name: "Presence", kind: MessageDriven, priority: PriorityValue},
		Online:  online,
		Offline: offline,
	}
}

func (a *PresenceAlarm) Criteria() *string {
	c := fmt.Sprintf("online=%q offline=%q", a.Online, a.Offline)
	return &c
}

func (a *PresenceAlarm) CheckMessage(id ident.DataIdentifier, payload []byte) (bool, *string) {
	text, ok := decodeUTF8(payload)
	if !ok {
		return true, msg(decodeErrorMessage)
	}
	switch text {
	case a.Online:
		return false, nil
	case a.Offline:
		return true, msg("device offline")
	default:
		return true, msg(fmt.Sprintf("unexpected presence value: %q", text))
	}
}
