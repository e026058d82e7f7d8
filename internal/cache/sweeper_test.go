package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/teemow/inboxassist/internal/logging"
)

func TestSweeperPurgesExpired(t *testing.T) {
	c := New(WithLogger(logging.Discard()))
	c.Set("gone", 1, time.Millisecond)
	c.Set("kept", 2, time.Hour)

	s := NewSweeper(c, 5*time.Millisecond)
	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool {
		_, _, ok := c.GetStale("gone")
		return !ok
	}, time.Second, 5*time.Millisecond)

	_, ok := c.Get("kept")
	assert.True(t, ok)
}

func TestSweeperDisabled(t *testing.T) {
	c := New(WithLogger(logging.Discard()))
	c.Set("stale", 1, time.Millisecond)

	s := NewSweeper(c, 0)
	s.Start()
	time.Sleep(10 * time.Millisecond)
	s.Stop()

	_, _, ok := c.GetStale("stale")
	assert.True(t, ok, "disabled sweeper must not evict")
}

func TestSweeperStopIsIdempotent(t *testing.T) {
	s := NewSweeper(New(WithLogger(logging.Discard())), time.Millisecond)
	s.Start()
	s.Stop()
	s.Stop()
}
