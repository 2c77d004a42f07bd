package guard

import "mqguard/internal/ident"

// DevicePresence describes a device's online/offline signalling: the
// identifier carrying the presence message and the expected online/offline
// token pair. A device with no presence tracking uses NoPresence.
type DevicePresence struct {
	id      ident.DataIdentifier
	online  string
	offline string
	present bool
}

// NewDevicePresence declares presence tracking on the given identifier.
func NewDevicePresence(id ident.DataIdentifier, online, offline string) DevicePresence {
	return DevicePresence{id: id, online: online, offline: offline, present: true}
}

// NoPresence declares a device with no presence tracking.
func NoPresence() DevicePresence {
	return DevicePresence{}
}

// HasPresence reports whether this device declares presence tracking.
func (p DevicePresence) HasPresence() bool {
	return p.present
}

// Identifier returns the presence data identifier. Only meaningful when
// HasPresence is true.
func (p DevicePresence) Identifier() ident.DataIdentifier {
	return p.id
}

// Tokens returns the (online, offline) token pair.
func (p DevicePresence) Tokens() (online, offline string) {
	return p.online, p.offline
}
