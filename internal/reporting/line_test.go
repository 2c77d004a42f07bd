package reporting

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mqguard/internal/alarm"
	"mqguard/internal/guard"
	"mqguard/internal/ident"
	"mqguard/internal/registry"
)

// chanSink adapts a channel to registry.Sink so tests can synchronously
// wait for the report an event produced.
type chanSink struct {
	reports chan *registry.DeviceReport
}

func newChanSink() *chanSink {
	return &chanSink{reports: make(chan *registry.DeviceReport, 16)}
}

func (s *chanSink) Report(r *registry.DeviceReport) {
	s.reports <- r
}

func (s *chanSink) next(t *testing.T) *registry.DeviceReport {
	t.Helper()
	select {
	case r := <-s.reports:
		return r
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for report")
		return nil
	}
}

func rangeReportFixture(t *testing.T) (*registry.DeviceRegistry, *chanSink, ident.DataIdentifier) {
	t.Helper()
	sink := newChanSink()
	reg := registry.NewDeviceRegistry(sink)

	id := ident.DataIdentifier{Broker: "brokerA", Topic: "room/temp"}
	u := guard.NewUpdateGuard("temp", id)
	u.AddAlarm(alarm.NewRangeAlarm("range", -10, 10))
	dg := guard.NewDeviceGuard("device1", guard.NoPresence())
	dg.AddUpdateGuard(u)
	reg.AddGuardedDevice("device1", dg)

	go reg.Run()
	t.Cleanup(reg.Stop)

	return reg, sink, id
}

func TestLineReporterWritesChangedAlarmLine(t *testing.T) {
	var buf bytes.Buffer
	r := NewLineReporter(&buf)

	reg, sink, id := rangeReportFixture(t)
	reg.OnMessage(id.Broker, id.Topic, []byte("25"))
	dr := sink.next(t)

	r.Report(dr)
	assert.Equal(t, "brokerA room/temp range \"value 25 above maximum allowed range (10)\"\n", buf.String())
}

func TestLineReporterWritesClearedAlarmAsOKNow(t *testing.T) {
	var buf bytes.Buffer
	r := NewLineReporter(&buf)

	reg, sink, id := rangeReportFixture(t)
	reg.OnMessage(id.Broker, id.Topic, []byte("25"))
	require.NotNil(t, sink.next(t))
	buf.Reset()

	reg.OnMessage(id.Broker, id.Topic, []byte("0"))
	dr := sink.next(t)

	r.Report(dr)
	assert.Equal(t, "brokerA room/temp range \"Is OK now\"\n", buf.String())
}

func TestLineReporterSkipsUnchangedRepeatedFailure(t *testing.T) {
	var buf bytes.Buffer
	r := NewLineReporter(&buf)

	reg, sink, id := rangeReportFixture(t)
	reg.OnMessage(id.Broker, id.Topic, []byte("25"))
	require.NotNil(t, sink.next(t))

	reg.OnMessage(id.Broker, id.Topic, []byte("30"))
	dr := sink.next(t)
	buf.Reset()

	r.Report(dr)
	assert.Empty(t, buf.String())
}

func TestLineReporterWritesPresenceLineFirst(t *testing.T) {
	var buf bytes.Buffer
	r := NewLineReporter(&buf)

	sink := newChanSink()
	reg := registry.NewDeviceRegistry(sink)
	presenceID := ident.DataIdentifier{Broker: "brokerA", Topic: "room/presence"}
	dg := guard.NewDeviceGuard("device1", guard.NewDevicePresence(presenceID, "online", "offline"))
	reg.AddGuardedDevice("device1", dg)

	go reg.Run()
	t.Cleanup(reg.Stop)

	reg.OnMessage(presenceID.Broker, presenceID.Topic, []byte("offline"))
	dr := sink.next(t)

	r.Report(dr)
	assert.Equal(t, "brokerA room/presence Presence \"device offline\"\n", buf.String())
}

func TestNewPrintReporterBuildsReporter(t *testing.T) {
	r := NewPrintReporter()
	assert.NotNil(t, r)
}

func TestNewLogReporterBuildsAndStops(t *testing.T) {
	r := NewLogReporter(t.TempDir() + "/mqguard.log")
	assert.NotNil(t, r)
	r.Stop()
}
