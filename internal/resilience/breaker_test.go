package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerPassesThroughOnSuccess(t *testing.T) {
	b := New("testbroker", 3, 50*time.Millisecond, nil)
	err := b.Guard(func() error { return nil })
	require.NoError(t, err)
	assert.Equal(t, "closed", b.State())
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b := New("testbroker", 2, 50*time.Millisecond, nil)
	boom := errors.New("connect refused")

	require.Error(t, b.Guard(func() error { return boom }))
	require.Error(t, b.Guard(func() error { return boom }))

	assert.Equal(t, "open", b.State())

	err := b.Guard(func() error {
		t.Fatal("fn must not run while breaker is open")
		return nil
	})
	require.Error(t, err)
}

func TestBreakerHalfOpensAfterTimeout(t *testing.T) {
	b := New("testbroker", 1, 10*time.Millisecond, nil)
	require.Error(t, b.Guard(func() error { return errors.New("fail") }))
	assert.Equal(t, "open", b.State())

	time.Sleep(20 * time.Millisecond)

	require.NoError(t, b.Guard(func() error { return nil }))
	assert.Equal(t, "closed", b.State())
}
