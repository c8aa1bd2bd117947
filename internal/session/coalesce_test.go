package session

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCoalescerRunsLatestOnly(t *testing.T) {
	c := NewCoalescer(30 * time.Millisecond)
	defer c.Stop()

	var ran int32
	var last int32
	for i := 1; i <= 5; i++ {
		i := i
		c.Do(func() {
			atomic.AddInt32(&ran, 1)
			atomic.StoreInt32(&last, int32(i))
		})
	}

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&ran) == 1 && atomic.LoadInt32(&last) == 5
	}, time.Second, 5*time.Millisecond)

	// No second firing after the window.
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&ran))
}

func TestCoalescerFlushRunsImmediately(t *testing.T) {
	c := NewCoalescer(time.Hour)
	defer c.Stop()

	var ran int32
	c.Do(func() { atomic.AddInt32(&ran, 1) })
	assert.Equal(t, int32(0), atomic.LoadInt32(&ran))

	c.Flush()
	assert.Equal(t, int32(1), atomic.LoadInt32(&ran))

	// Flush with nothing pending is a no-op.
	c.Flush()
	assert.Equal(t, int32(1), atomic.LoadInt32(&ran))
}

func TestCoalescerStopDropsPending(t *testing.T) {
	c := NewCoalescer(20 * time.Millisecond)

	var ran int32
	c.Do(func() { atomic.AddInt32(&ran, 1) })
	c.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&ran))
}

func TestCoalescerReusableAcrossWindows(t *testing.T) {
	c := NewCoalescer(10 * time.Millisecond)
	defer c.Stop()

	var ran int32
	c.Do(func() { atomic.AddInt32(&ran, 1) })
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&ran) == 1
	}, time.Second, 2*time.Millisecond)

	c.Do(func() { atomic.AddInt32(&ran, 1) })
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&ran) == 2
	}, time.Second, 2*time.Millisecond)
}
