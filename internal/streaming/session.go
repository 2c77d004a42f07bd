package streaming

import (
	"go.uber.org/zap"

	"mqguard/internal/registry"
)

// sessionQueueCapacity bounds how many pending DeviceReports a session will
// buffer before the reporter starts dropping the oldest one to make room
// for the newest — sessions never block the registry's event loop.
const sessionQueueCapacity = 64

type sessionState int

const (
	stateConnected sessionState = iota
	stateSnapshotSent
	stateStreaming
	stateClosing
	stateClosed
)

// transport is the narrow interface a session needs from its underlying
// connection: write one JSON-serialisable frame, or close.
type transport interface {
	WriteFrame(v any) error
	Close() error
}

// Session drives one client connection through CONNECTED → SNAPSHOT_SENT →
// STREAMING → CLOSING → CLOSED. It owns a bounded queue of pending
// DeviceReports so a slow client can never block the reporter that feeds
// it.
type Session struct {
	id        string
	transport transport
	logger    *zap.Logger

	queue chan *registry.DeviceReport
	state sessionState
}

func newSession(id string, t transport, logger *zap.Logger) *Session {
	return &Session{
		id:        id,
		transport: t,
		logger:    logger,
		queue:     make(chan *registry.DeviceReport, sessionQueueCapacity),
		state:     stateConnected,
	}
}

// run sends the initial snapshot and then streams DeviceReports from the
// queue until a nil sentinel (graceful stop) or a write error (peer close)
// ends the session.
func (s *Session) run(snapshot InitFrame) {
	if err := s.transport.WriteFrame(snapshot); err != nil {
		s.logger.Warn("session snapshot write failed", zap.String("session", s.id), zap.Error(err))
		s.state = stateClosing
		s.close()
		return
	}
	s.state = stateSnapshotSent
	s.state = stateStreaming

	for report := range s.queue {
		if report == nil {
			break
		}
		if err := s.transport.WriteFrame(buildUpdateFrame(report)); err != nil {
			s.logger.Warn("session update write failed", zap.String("session", s.id), zap.Error(err))
			break
		}
	}

	s.state = stateClosing
	s.close()
}

func (s *Session) close() {
	s.transport.Close()
	s.state = stateClosed
}

// enqueue deposits a report without ever blocking. If the queue is full it
// drops the oldest pending report, logs once, and enqueues the new one —
// the policy choice the concurrency model requires every implementation to
// document.
func (s *Session) enqueue(report *registry.DeviceReport) {
	select {
	case s.queue <- report:
		return
	default:
	}

	select {
	case <-s.queue:
	default:
	}
	select {
	case s.queue <- report:
	default:
	}
	s.logger.Warn("session queue full, dropped oldest pending report", zap.String("session", s.id))
}

// stop requests a graceful shutdown: the sentinel drains after whatever is
// already queued. Forces room in a full queue rather than blocking.
func (s *Session) stop() {
	select {
	case s.queue <- nil:
		return
	default:
	}
	select {
	case <-s.queue:
	default:
	}
	select {
	case s.queue <- nil:
	default:
	}
}
