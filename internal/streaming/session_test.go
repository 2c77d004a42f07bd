package streaming

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mqguard/internal/alarm"
	"mqguard/internal/guard"
	"mqguard/internal/ident"
	"mqguard/internal/registry"
)

// fakeTransport records every frame written and lets a test force a write
// error to simulate a peer dropping the connection.
type fakeTransport struct {
	mu     sync.Mutex
	frames []any
	failAt int // -1 disables
	closed bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{failAt: -1}
}

func (t *fakeTransport) WriteFrame(v any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failAt == len(t.frames) {
		return errors.New("write failed")
	}
	t.frames = append(t.frames, v)
	return nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

func (t *fakeTransport) frameCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.frames)
}

func (t *fakeTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

type discardSink struct {
	reports chan *registry.DeviceReport
}

func (s *discardSink) Report(r *registry.DeviceReport) {
	if s.reports == nil {
		return
	}
	s.reports <- r
}

func newDiscardSink() *discardSink {
	return &discardSink{reports: make(chan *registry.DeviceReport, 4)}
}

func TestSessionSendsSnapshotThenStreams(t *testing.T) {
	tr := newFakeTransport()
	sess := newSession("s1", tr, zap.NewNop())

	done := make(chan struct{})
	go func() {
		sess.run(InitFrame{Feed: "init"})
		close(done)
	}()

	report := sampleReportWithSink(t)
	sess.enqueue(report)
	sess.stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("session did not exit")
	}

	assert.GreaterOrEqual(t, tr.frameCount(), 1)
	assert.True(t, tr.isClosed())
}

func sampleReportWithSink(t *testing.T) *registry.DeviceReport {
	t.Helper()
	sink := newDiscardSink()
	reg := registry.NewDeviceRegistry(sink)
	id := ident.DataIdentifier{Broker: "brokerA", Topic: "room/temp"}
	u := guard.NewUpdateGuard("temp", id)
	u.AddAlarm(alarm.NewRangeAlarm("range", -10, 10))
	dg := guard.NewDeviceGuard("device1", guard.NoPresence())
	dg.AddUpdateGuard(u)
	reg.AddGuardedDevice("device1", dg)

	go reg.Run()
	defer reg.Stop()
	reg.OnMessage("brokerA", "room/temp", []byte("25"))

	select {
	case r := <-sink.reports:
		return r
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for report")
		return nil
	}
}

func TestSessionClosesOnWriteError(t *testing.T) {
	tr := newFakeTransport()
	tr.failAt = 0
	sess := newSession("s2", tr, zap.NewNop())

	sess.run(InitFrame{Feed: "init"})

	assert.True(t, tr.isClosed())
	assert.Equal(t, 0, tr.frameCount())
}

func TestEnqueueDropsOldestWhenFull(t *testing.T) {
	tr := newFakeTransport()
	sess := newSession("s3", tr, zap.NewNop())

	for i := 0; i < sessionQueueCapacity+5; i++ {
		sess.enqueue(&registry.DeviceReport{})
	}

	require.Len(t, sess.queue, sessionQueueCapacity)
}
