package navprogress

import (
	"time"

	"golang.org/x/net/html"
)

// BarStyle is the static visual description of the indicator element.
// The engine hands it to Document.CreateBar once per cycle; per-update
// animation parameters travel in Transition instead.
type BarStyle struct {
	Color  string
	Height int
	ZIndex int
}

// Transition describes how a width change should be animated.
// A zero Duration means the change is applied instantly.
type Transition struct {
	Duration time.Duration
	Easing   string
}

// Bar is the visual element owned by the engine for the life of one cycle.
type Bar interface {
	// SetValue renders the bar at frac (0..1) of full width.
	SetValue(frac float64, t Transition)
	// Remove detaches the element. SetValue after Remove is a no-op.
	Remove()
}

// Activation is a click-like event delivered to document listeners.
// Target is the node the event originated on; the interceptor walks its
// ancestors to find the controlling anchor, so a click on a <span> nested
// inside a link behaves like a click on the link itself.
type Activation struct {
	Target  *html.Node
	CtrlKey bool
	MetaKey bool
}

// Document abstracts the pieces of a browser document the indicator touches:
// the current address, click dispatch, the root busy marker, and a mount
// point for the bar element. Implementations map these onto a parse tree,
// a terminal, or a TUI program.
type Document interface {
	// Location returns the absolute URL the document currently shows.
	Location() string
	// AddClickListener registers fn for click activations and returns a
	// function that unregisters it.
	AddClickListener(fn func(Activation)) (remove func())
	// CreateBar mounts a new indicator element. At most one bar exists at
	// a time; the engine removes the previous one before creating another.
	CreateBar(style BarStyle) Bar
	// SetBusy toggles the document-root busy marker.
	SetBusy(busy bool)
}

// PushFunc is the history-push primitive: commit a navigation entry for url.
type PushFunc func(state any, title, url string)

// History exposes a swappable push primitive so the interceptor can wrap it
// with a completion hook and later restore the original exactly.
type History interface {
	// Push invokes the currently installed primitive.
	Push(state any, title, url string)
	// PushFunc returns the currently installed primitive.
	PushFunc() PushFunc
	// SetPushFunc replaces the primitive.
	SetPushFunc(fn PushFunc)
}

// Scheduler abstracts timers so indicator cycles can run on virtual time.
type Scheduler interface {
	// Every runs fn repeatedly at the given interval until stop is called.
	Every(interval time.Duration, fn func()) (stop func())
	// After runs fn once after delay unless stop is called first.
	After(delay time.Duration, fn func()) (stop func())
}
