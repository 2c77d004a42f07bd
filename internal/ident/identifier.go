// Package ident holds the value types that name a telemetry stream: the
// broker descriptor and the (broker, topic) data identifier used as a map
// key throughout the registry.
package ident

import "fmt"

// Broker describes a subscribed message-queue endpoint. Equality for
// routing purposes is by Name alone (the name is the configuration key and
// must be unique across [Brokers]).
type Broker struct {
	Name      string
	Host      string
	Port      int
	Transport string // "mqtt" (default) or "nats"
	User      string
	Password  string
	Topics    []string
}

// HasCredentials reports whether a username/password pair was configured.
func (b Broker) HasCredentials() bool {
	return b.User != ""
}

func (b Broker) String() string {
	return fmt.Sprintf("%s (%s://%s:%d)", b.Name, b.Transport, b.Host, b.Port)
}

// DataIdentifier names a telemetry stream: a broker plus a topic string.
// It is a plain comparable value type so it can be used directly as a map
// key; two identifiers are equal iff both the broker name and the topic
// string match.
type DataIdentifier struct {
	Broker string
	Topic  string
}

// NewDataIdentifier builds an identifier from a broker descriptor and topic.
func NewDataIdentifier(broker Broker, topic string) DataIdentifier {
	return DataIdentifier{Broker: broker.Name, Topic: topic}
}

func (d DataIdentifier) String() string {
	return fmt.Sprintf("%s/%s", d.Broker, d.Topic)
}
