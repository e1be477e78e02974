package loop

import (
	"sync"
)

/*
 * Scheduler runs a callback once, on the host's next frame. The returned
 * function cancels the callback if it has not run yet; calling it more than
 * once is harmless.
 */
type Scheduler interface {
	Schedule(fn func()) (cancel func())
}

/*
 * FrameClock is a Scheduler driven by the host: the renderer calls Tick once
 * per display refresh and every callback scheduled before that call runs.
 * Callbacks scheduled while a tick is running wait for the next tick, so a
 * callback that re-arms itself runs exactly once per frame.
 */
type FrameClock struct {
	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]func()
	order   []uint64
	frames  uint64
}

/*
 * NewFrameClock creates a clock with nothing scheduled.
 */
func NewFrameClock() *FrameClock {
	return &FrameClock{pending: make(map[uint64]func())}
}

/*
 * Schedule implements Scheduler.
 */
func (c *FrameClock) Schedule(fn func()) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.pending[id] = fn
	c.order = append(c.order, id)
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}
}

/*
 * Tick runs the callbacks that were pending when it was called and returns
 * how many ran. A callback cancelled by an earlier one in the same tick does
 * not run.
 */
func (c *FrameClock) Tick() int {
	c.mu.Lock()
	c.frames++
	order := c.order
	c.order = nil
	c.mu.Unlock()
	ran := 0

	for _, id := range order {
		c.mu.Lock()
		fn, ok := c.pending[id]
		delete(c.pending, id)
		c.mu.Unlock()

		if ok {
			fn()
			ran++
		}
	}

	return ran
}

/*
 * Pending returns the number of callbacks waiting for the next tick.
 */
func (c *FrameClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

/*
 * Frames returns how many ticks have happened.
 */
func (c *FrameClock) Frames() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}
