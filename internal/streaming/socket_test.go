package streaming

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mqguard/internal/alarm"
	"mqguard/internal/guard"
	"mqguard/internal/ident"
	"mqguard/internal/metrics"
	"mqguard/internal/registry"
)

func TestSocketReporterSendsInitFrameOnAccept(t *testing.T) {
	sink := newDiscardSink()
	reg := registry.NewDeviceRegistry(sink)
	id := ident.DataIdentifier{Broker: "brokerA", Topic: "room/temp"}
	u := guard.NewUpdateGuard("temp", id)
	u.AddAlarm(alarm.NewRangeAlarm("range", -10, 10))
	dg := guard.NewDeviceGuard("device1", guard.NoPresence())
	dg.AddUpdateGuard(u)
	reg.AddGuardedDevice("device1", dg)

	r := NewSocketReporter("127.0.0.1:0", []BrokerInfo{{Name: "brokerA"}}, zap.NewNop(), nil)
	r.InjectDeviceRegistry(reg)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	r.listener = ln
	r.addr = ln.Addr().String()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		r.accept(newLineTransport(conn))
	}()
	t.Cleanup(r.Stop)

	conn, err := net.Dial("tcp", r.addr)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)

	var frame InitFrame
	require.NoError(t, json.Unmarshal([]byte(line), &frame))
	require.Equal(t, "init", frame.Feed)
	require.Len(t, frame.Devices, 1)
	require.Equal(t, "device1", frame.Devices[0].Name)
}

func TestSocketReporterUpdatesStreamingSessionsGauge(t *testing.T) {
	sink := newDiscardSink()
	reg := registry.NewDeviceRegistry(sink)
	reg.AddGuardedDevice("device1", guard.NewDeviceGuard("device1", guard.NoPresence()))

	promReg := prometheus.NewRegistry()
	m := metrics.New(promReg)

	r := NewSocketReporter("", []BrokerInfo{{Name: "brokerA"}}, zap.NewNop(), m)
	r.InjectDeviceRegistry(reg)

	tr := newFakeTransport()
	r.accept(tr)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.StreamingSessions))

	r.mu.Lock()
	sess := r.sessions["socket-1"]
	r.mu.Unlock()
	require.NotNil(t, sess)
	sess.stop()

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.StreamingSessions) == 0
	}, time.Second, 10*time.Millisecond)
}
