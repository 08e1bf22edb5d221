package navprogress

import (
	"sync"
	"time"
)

// WallClock schedules on real time.
type WallClock struct{}

// Every runs fn on a ticker goroutine until stop is called. Stop is safe to
// call more than once.
func (WallClock) Every(interval time.Duration, fn func()) (stop func()) {
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
		})
	}
}

// After runs fn once after delay unless stop is called first.
func (WallClock) After(delay time.Duration, fn func()) (stop func()) {
	if delay < 0 {
		delay = 0
	}
	t := time.AfterFunc(delay, fn)
	return func() { t.Stop() }
}

// ManualClock is a deterministic Scheduler driven by Advance. Engine cycles
// run on virtual time in tests, and headless hosts can step the animation
// themselves.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Duration
	nextID int
	tasks  map[int]*manualTask
}

type manualTask struct {
	due      time.Duration
	interval time.Duration // 0 for one-shot
	fn       func()
}

// NewManualClock returns a clock at virtual time zero with no tasks.
func NewManualClock() *ManualClock {
	return &ManualClock{tasks: make(map[int]*manualTask)}
}

// Every schedules fn at interval boundaries of virtual time.
func (c *ManualClock) Every(interval time.Duration, fn func()) (stop func()) {
	if interval <= 0 {
		interval = time.Millisecond
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addLocked(&manualTask{due: c.now + interval, interval: interval, fn: fn})
}

// After schedules fn once at now+delay of virtual time.
func (c *ManualClock) After(delay time.Duration, fn func()) (stop func()) {
	if delay < 0 {
		delay = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addLocked(&manualTask{due: c.now + delay, fn: fn})
}

func (c *ManualClock) addLocked(t *manualTask) func() {
	id := c.nextID
	c.nextID++
	c.tasks[id] = t
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.tasks, id)
	}
}

// Advance moves virtual time forward by d, firing due tasks in deadline
// order. Callbacks run without the clock lock held, so they may freely
// schedule or stop tasks; tasks they schedule fire within the same Advance
// when their deadline falls inside the window.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	for {
		var (
			bestID int
			best   *manualTask
		)
		for id, t := range c.tasks {
			if t.due > target {
				continue
			}
			if best == nil || t.due < best.due || (t.due == best.due && id < bestID) {
				bestID, best = id, t
			}
		}
		if best == nil {
			break
		}
		c.now = best.due
		fn := best.fn
		if best.interval > 0 {
			best.due += best.interval
		} else {
			delete(c.tasks, bestID)
		}
		c.mu.Unlock()
		fn()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

// Pending returns the number of scheduled tasks.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tasks)
}

// Now returns the current virtual time.
func (c *ManualClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}
