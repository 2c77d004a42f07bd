// Package broker ships the two concrete subscriber transports the core
// pipeline treats as an external collaborator: MQTT (the default) and NATS.
// Both terminate in the same Handler call, so the registry never needs to
// know which transport delivered a message.
package broker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mqguard/internal/ident"
	"mqguard/internal/resilience"
)

// Handler receives every message a subscribed broker delivers. The registry
// wires registry.DeviceRegistry.OnMessage directly as a Handler.
type Handler func(brokerName, topic string, payload []byte)

// Client is the capability set every transport implements: connect (the
// initial connect runs through a circuit breaker; reconnection after a lost
// connection is left to the transport library) and run until ctx is
// cancelled.
type Client interface {
	// Name is the broker's configured name, used to tag ingress events.
	Name() string
	// Run connects, subscribes to every configured topic pattern, and
	// delivers messages to handler until ctx is cancelled or a
	// non-recoverable error occurs.
	Run(ctx context.Context, handler Handler) error
}

// New builds the Client for desc, selecting the transport from
// desc.Transport ("mqtt", the default, or "nats").
func New(desc ident.Broker, logger *zap.Logger) (Client, error) {
	breaker := resilience.New(desc.Name, 5, 30*time.Second, logger)
	switch desc.Transport {
	case "", "mqtt":
		return newMQTTClient(desc, breaker, logger), nil
	case "nats":
		return newNATSClient(desc, breaker, logger), nil
	default:
		return nil, fmt.Errorf("broker %q: unknown transport %q", desc.Name, desc.Transport)
	}
}
