package navprogress

import (
	"math/rand/v2"
	"sync"
)

// Status is the lifecycle phase of the current indicator cycle.
type Status int

const (
	// StatusIdle means no cycle is in flight and no bar element exists.
	StatusIdle Status = iota
	// StatusActive means a cycle is running and trickle may be advancing.
	StatusActive
	// StatusFinishing means the bar is animating to 100% before removal.
	StatusFinishing
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusActive:
		return "active"
	case StatusFinishing:
		return "finishing"
	default:
		return "unknown"
	}
}

// Engine owns the progress value of a single indicator instance and renders
// it into a bar element on the document. A cycle runs Idle → Active →
// Finishing → Idle; cycles never overlap and at most one trickle timer is
// live. Methods are safe to call from timer callbacks and event handlers.
type Engine struct {
	cfg   Config
	doc   Document
	sched Scheduler

	mu          sync.Mutex
	status      Status
	value       float64
	bar         Bar
	stopTrickle func()
	stopFinish  func()
	jitter      func() float64 // in [0,1)
}

// NewEngine returns an idle engine bound to doc and sched. Out-of-range
// configuration values are clamped, never rejected.
func NewEngine(cfg Config, doc Document, sched Scheduler) *Engine {
	return &Engine{
		cfg:    cfg.normalized(),
		doc:    doc,
		sched:  sched,
		jitter: rand.Float64,
	}
}

// Status returns the current lifecycle phase.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Value returns the current completion fraction.
func (e *Engine) Value() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value
}

// Start opens a new cycle: the bar element is created at InitialPosition,
// the busy marker is set, and trickle begins. A Start while already active
// is a no-op, so re-entrant starts never duplicate timers or elements.
// A Start while the previous cycle is still animating out reuses its
// element and begins the next cycle immediately.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.status {
	case StatusActive:
		return
	case StatusFinishing:
		if e.stopFinish != nil {
			e.stopFinish()
			e.stopFinish = nil
		}
	case StatusIdle:
		e.bar = e.doc.CreateBar(e.cfg.style())
	}

	e.doc.SetBusy(true)
	e.status = StatusActive
	e.setLocked(e.cfg.InitialPosition)
	if e.cfg.Trickle && e.stopTrickle == nil {
		e.stopTrickle = e.sched.Every(e.cfg.TrickleSpeed, e.Increment)
	}
}

// Increment advances the bar by an automatic amount: large steps while the
// value is low, shrinking as it approaches the right edge, never reaching
// 1.0 on its own. No-op unless a cycle is active.
func (e *Engine) Increment() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != StatusActive {
		return
	}
	e.advanceLocked(e.trickleAmountLocked())
}

// IncrementBy advances the bar by an explicit positive amount, clamped so
// only Done can complete the bar. No-op unless a cycle is active.
func (e *Engine) IncrementBy(amount float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != StatusActive || amount <= 0 {
		return
	}
	e.advanceLocked(amount)
}

// Set forces the value to the given fraction, clamped to [0,1], and renders
// immediately. No-op while idle (there is no element to render into).
func (e *Engine) Set(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status == StatusIdle {
		return
	}
	e.setLocked(v)
}

// Done closes the cycle. While active it cancels trickle, animates the bar
// to 100% and removes the element once the transition duration elapses.
// While idle it is a no-op unless force is set. With force the element is
// removed immediately without waiting for the animation, which is what the
// interceptor's error-recovery flash relies on.
func (e *Engine) Done(force bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.status {
	case StatusIdle:
		if !force {
			return
		}
		e.teardownLocked()
	case StatusActive:
		e.cancelTrickleLocked()
		e.setLocked(1)
		if force {
			e.teardownLocked()
			return
		}
		e.status = StatusFinishing
		e.stopFinish = e.sched.After(e.cfg.Speed, e.finishRemoval)
	case StatusFinishing:
		if !force {
			return
		}
		e.teardownLocked()
	}
}

// Close tears the engine down synchronously: timers cancelled, element
// removed, busy marker cleared. Part of the host unmount contract.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.teardownLocked()
}

// finishRemoval runs when the closing transition has had time to play out.
func (e *Engine) finishRemoval() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != StatusFinishing {
		return
	}
	e.teardownLocked()
}

// teardownLocked returns to idle from any state.
func (e *Engine) teardownLocked() {
	e.cancelTrickleLocked()
	if e.stopFinish != nil {
		e.stopFinish()
		e.stopFinish = nil
	}
	if e.bar != nil {
		e.bar.Remove()
		e.bar = nil
	}
	e.doc.SetBusy(false)
	e.status = StatusIdle
}

func (e *Engine) cancelTrickleLocked() {
	if e.stopTrickle != nil {
		e.stopTrickle()
		e.stopTrickle = nil
	}
}

// setLocked clamps v to [0,1] and renders it with the configured transition.
func (e *Engine) setLocked(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	e.value = v
	if e.bar != nil {
		e.bar.SetValue(v, Transition{Duration: e.cfg.Speed, Easing: e.cfg.Easing})
	}
}

// advanceLocked grows the value by amount, capped below 1.0 so trickle
// alone never completes the bar. The value only ever moves forward here.
func (e *Engine) advanceLocked(amount float64) {
	v := e.value + amount
	if v > maxTrickleValue {
		v = maxTrickleValue
	}
	if v > e.value {
		e.setLocked(v)
	}
}

// trickleAmountLocked picks the next automatic step. The schedule is
// fast-then-slow: the jitter keeps repeated loads from looking identical
// while staying within the band for the current value.
func (e *Engine) trickleAmountLocked() float64 {
	var base float64
	switch v := e.value; {
	case v < 0.2:
		base = 0.10
	case v < 0.5:
		base = 0.04
	case v < 0.8:
		base = 0.02
	default:
		base = 0.005
	}
	return base/2 + e.jitter()*base/2
}
