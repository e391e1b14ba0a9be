package store

import (
	"fmt"
	"sync"
	"time"
)

// paymentWindowSeconds is the fixed payment window: 15 minutes.
const paymentWindowSeconds = 15 * 60

// Countdown is the payment-window timer. It ticks once per second, formats
// the remaining time as MM:SS, and invokes its timeout callback exactly once
// when the window closes. The owner must call Stop when the paying view is
// torn down; the tick goroutine does not outlive a stopped countdown.
type Countdown struct {
	mu        sync.Mutex
	remaining int
	fired     bool
	onTimeout func()

	stopOnce sync.Once
	done     chan struct{}
}

// StartCountdown starts a 15-minute countdown. onTimeout may be nil.
func StartCountdown(onTimeout func()) *Countdown {
	c := newCountdown(onTimeout)
	go c.run()
	return c
}

func newCountdown(onTimeout func()) *Countdown {
	return &Countdown{
		remaining: paymentWindowSeconds,
		onTimeout: onTimeout,
		done:      make(chan struct{}),
	}
}

func (c *Countdown) run() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if c.tick() {
				return
			}
		case <-c.done:
			return
		}
	}
}

// tick advances the countdown by one second. Returns true once the window has
// closed and the timer is finished.
func (c *Countdown) tick() bool {
	c.mu.Lock()
	if c.remaining > 0 {
		c.remaining--
	}
	expired := c.remaining == 0
	fire := expired && !c.fired
	if fire {
		c.fired = true
	}
	cb := c.onTimeout
	c.mu.Unlock()

	if fire && cb != nil {
		cb()
	}
	return expired
}

// Display renders the remaining window as MM:SS.
func (c *Countdown) Display() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("%02d:%02d", c.remaining/60, c.remaining%60)
}

// Remaining returns the remaining window in seconds.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Expired reports whether the window has closed.
func (c *Countdown) Expired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining == 0
}

// Stop cancels the countdown. Safe to call more than once; a stopped
// countdown never fires its timeout.
func (c *Countdown) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
}
