package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeClock_AfterFunc(t *testing.T) {
	t.Run("fires once deadline is reached", func(t *testing.T) {
		c := Fake(epoch)
		calls := 0
		c.AfterFunc(time.Second, func() { calls++ })

		c.Advance(999 * time.Millisecond)
		assert.Equal(t, 0, calls)

		c.Advance(time.Millisecond)
		assert.Equal(t, 1, calls)

		c.Advance(time.Hour)
		assert.Equal(t, 1, calls)
	})

	t.Run("stop prevents firing", func(t *testing.T) {
		c := Fake(epoch)
		calls := 0
		timer := c.AfterFunc(time.Second, func() { calls++ })

		assert.True(t, timer.Stop())
		assert.False(t, timer.Stop())

		c.Advance(2 * time.Second)
		assert.Equal(t, 0, calls)
		assert.Equal(t, 0, c.PendingTimers())
	})

	t.Run("stop after firing returns false", func(t *testing.T) {
		c := Fake(epoch)
		timer := c.AfterFunc(time.Second, func() {})
		c.Advance(time.Second)
		assert.False(t, timer.Stop())
	})

	t.Run("fires in deadline order and sees deadline time", func(t *testing.T) {
		c := Fake(epoch)
		var order []string
		var seen []time.Time
		c.AfterFunc(3*time.Second, func() { order = append(order, "c"); seen = append(seen, c.Now()) })
		c.AfterFunc(1*time.Second, func() { order = append(order, "a"); seen = append(seen, c.Now()) })
		c.AfterFunc(2*time.Second, func() { order = append(order, "b"); seen = append(seen, c.Now()) })

		c.Advance(5 * time.Second)

		assert.Equal(t, []string{"a", "b", "c"}, order)
		assert.Equal(t, epoch.Add(time.Second), seen[0])
		assert.Equal(t, epoch.Add(5*time.Second), c.Now())
	})

	t.Run("callbacks may schedule timers that fire in the same advance", func(t *testing.T) {
		c := Fake(epoch)
		fired := false
		c.AfterFunc(time.Second, func() {
			c.AfterFunc(time.Second, func() { fired = true })
		})

		c.Advance(3 * time.Second)
		assert.True(t, fired)
	})
}

func TestFakeClock_Ticker(t *testing.T) {
	c := Fake(epoch)
	ticker := c.NewTicker(time.Minute)
	defer ticker.Stop()

	c.Advance(time.Minute)

	select {
	case tick := <-ticker.C:
		assert.Equal(t, epoch.Add(time.Minute), tick)
	default:
		t.Fatal("expected a tick")
	}

	ticker.Stop()
	c.Advance(time.Hour)

	select {
	case <-ticker.C:
		t.Fatal("stopped ticker delivered a tick")
	default:
	}
}
