package streaming

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"mqguard/internal/metrics"
	"mqguard/internal/registry"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// wsTransport frames over a gorilla/websocket connection: one JSON value
// per text message.
type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) WriteFrame(v any) error { return t.conn.WriteJSON(v) }
func (t *wsTransport) Close() error           { return t.conn.Close() }

// WebSocketReporter is a streaming reporter over WebSocket: one upgraded
// connection becomes one Session receiving message-framed JSON.
type WebSocketReporter struct {
	addr    string
	brokers []BrokerInfo
	logger  *zap.Logger
	metrics *metrics.Registry

	registry *registry.DeviceRegistry

	mu       sync.Mutex
	sessions map[string]*Session
	nextID   int

	server *http.Server
	stopCh chan struct{}
}

// NewWebSocketReporter builds a reporter that will listen on addr once
// Start is called, upgrading every request on "/" to a WebSocket. m may be
// nil, disabling session-count observation.
func NewWebSocketReporter(addr string, brokers []BrokerInfo, logger *zap.Logger, m *metrics.Registry) *WebSocketReporter {
	return &WebSocketReporter{
		addr:     addr,
		brokers:  brokers,
		logger:   logger,
		metrics:  m,
		sessions: make(map[string]*Session),
		stopCh:   make(chan struct{}),
	}
}

func (r *WebSocketReporter) InjectDeviceRegistry(reg *registry.DeviceRegistry) {
	r.registry = reg
}

// Start runs the HTTP server hosting the WebSocket upgrade endpoint.
// Intended to be launched in its own goroutine by ReportingManager.
func (r *WebSocketReporter) Start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/", r.handleUpgrade)
	r.server = &http.Server{Addr: r.addr, Handler: mux}

	if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		r.logger.Error("websocket reporter failed to listen", zap.String("addr", r.addr), zap.Error(err))
	}
}

func (r *WebSocketReporter) handleUpgrade(w http.ResponseWriter, req *http.Request) {
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	r.accept(&wsTransport{conn: conn})
}

func (r *WebSocketReporter) accept(t transport) {
	r.mu.Lock()
	r.nextID++
	id := fmt.Sprintf("ws-%d", r.nextID)
	sess := newSession(id, t, r.logger)
	r.sessions[id] = sess
	snapshot := buildInitFrame(r.registry.Snapshot(), r.brokers)
	r.metrics.SetStreamingSessions(len(r.sessions))
	r.mu.Unlock()

	// A failed read is how a peer close surfaces; it ends the session.
	if ws, ok := t.(*wsTransport); ok {
		go func() {
			for {
				if _, _, err := ws.conn.ReadMessage(); err != nil {
					sess.stop()
					return
				}
			}
		}()
	}

	go func() {
		sess.run(snapshot)
		r.mu.Lock()
		delete(r.sessions, id)
		r.metrics.SetStreamingSessions(len(r.sessions))
		r.mu.Unlock()
	}()
}

// Report enqueues to every live session, but only when the event carries
// an actual alarm change or presence update.
func (r *WebSocketReporter) Report(report *registry.DeviceReport) {
	if !report.HasAlarmChanges() && !report.HasPresenceUpdate() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		s.enqueue(report)
	}
}

// Stop closes the HTTP server and signals every live session to drain.
func (r *WebSocketReporter) Stop() {
	close(r.stopCh)
	if r.server != nil {
		r.server.Close()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		s.stop()
	}
}
