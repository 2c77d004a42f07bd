package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodicCheckerTicksAtInterval(t *testing.T) {
	sink := &fakeSink{}
	r := NewDeviceRegistry(sink)
	p := NewPeriodicChecker(r, 10*time.Millisecond)

	p.Start()
	defer p.Stop()

	for i := 0; i < 3; i++ {
		select {
		case ev := <-r.events:
			assert.Equal(t, periodicEventKind, ev.kind)
		case <-time.After(200 * time.Millisecond):
			t.Fatal("timed out waiting for periodic tick")
		}
	}
}

func TestPeriodicCheckerStopIsIdempotent(t *testing.T) {
	sink := &fakeSink{}
	r := NewDeviceRegistry(sink)
	p := NewPeriodicChecker(r, 10*time.Millisecond)

	p.Start()
	require.NotPanics(t, func() {
		p.Stop()
		p.Stop()
	})
}

func TestNewPeriodicCheckerDefaultsNonPositiveInterval(t *testing.T) {
	sink := &fakeSink{}
	r := NewDeviceRegistry(sink)
	p := NewPeriodicChecker(r, 0)
	assert.Equal(t, time.Second, p.interval)
}
