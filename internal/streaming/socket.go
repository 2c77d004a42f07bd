package streaming

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"

	"mqguard/internal/ident"
	"mqguard/internal/metrics"
	"mqguard/internal/registry"
)

// lineTransport writes newline-delimited JSON frames to a raw TCP
// connection. json.Encoder.Encode appends the trailing newline itself.
type lineTransport struct {
	conn net.Conn
	enc  *json.Encoder
}

func newLineTransport(conn net.Conn) *lineTransport {
	return &lineTransport{conn: conn, enc: json.NewEncoder(conn)}
}

func (t *lineTransport) WriteFrame(v any) error { return t.enc.Encode(v) }
func (t *lineTransport) Close() error           { return t.conn.Close() }

// SocketReporter is a streaming reporter over raw TCP: one accepted
// connection becomes one Session receiving newline-delimited JSON frames.
type SocketReporter struct {
	addr    string
	brokers []BrokerInfo
	logger  *zap.Logger
	metrics *metrics.Registry

	registry *registry.DeviceRegistry

	mu       sync.Mutex
	sessions map[string]*Session
	nextID   int

	listener net.Listener
	stopCh   chan struct{}
}

// NewSocketReporter builds a reporter that will listen on addr once Start
// is called. m may be nil, disabling session-count observation.
func NewSocketReporter(addr string, brokers []BrokerInfo, logger *zap.Logger, m *metrics.Registry) *SocketReporter {
	return &SocketReporter{
		addr:     addr,
		brokers:  brokers,
		logger:   logger,
		metrics:  m,
		sessions: make(map[string]*Session),
		stopCh:   make(chan struct{}),
	}
}

func (r *SocketReporter) InjectDeviceRegistry(reg *registry.DeviceRegistry) {
	r.registry = reg
}

// Start runs the accept loop. Intended to be launched in its own goroutine
// by ReportingManager.
func (r *SocketReporter) Start() {
	ln, err := net.Listen("tcp", r.addr)
	if err != nil {
		r.logger.Error("socket reporter failed to listen", zap.String("addr", r.addr), zap.Error(err))
		return
	}
	r.listener = ln

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-r.stopCh:
				return
			default:
			}
			r.logger.Warn("socket reporter accept failed", zap.Error(err))
			continue
		}
		r.accept(newLineTransport(conn))
	}
}

func (r *SocketReporter) accept(t transport) {
	r.mu.Lock()
	r.nextID++
	id := fmt.Sprintf("socket-%d", r.nextID)
	sess := newSession(id, t, r.logger)
	r.sessions[id] = sess
	snapshot := buildInitFrame(r.registry.Snapshot(), r.brokers)
	r.metrics.SetStreamingSessions(len(r.sessions))
	r.mu.Unlock()

	go func() {
		sess.run(snapshot)
		r.mu.Lock()
		delete(r.sessions, id)
		r.metrics.SetStreamingSessions(len(r.sessions))
		r.mu.Unlock()
	}()
}

// Report enqueues to every live session, but only when the event carries
// an actual alarm change or presence update — unchanged periodic ticks
// never reach the wire.
func (r *SocketReporter) Report(report *registry.DeviceReport) {
	if !report.HasAlarmChanges() && !report.HasPresenceUpdate() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		s.enqueue(report)
	}
}

// Stop closes the acceptor and signals every live session to drain.
func (r *SocketReporter) Stop() {
	close(r.stopCh)
	if r.listener != nil {
		r.listener.Close()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		s.stop()
	}
}

// brokerInfoFrom projects a configured broker into the wire shape an init
// frame advertises.
func brokerInfoFrom(b ident.Broker) BrokerInfo {
	return BrokerInfo{Name: b.Name, Host: b.Host, Port: b.Port}
}
