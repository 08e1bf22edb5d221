package navprogress

import "time"

// Config carries the fully-resolved indicator settings. Defaulting belongs
// to the host (the demo CLI resolves its flags before constructing the
// engine); the engine only clamps values into a usable range.
type Config struct {
	Color           string        // bar color (CSS color string)
	InitialPosition float64       // starting fraction for a new cycle, [0,1)
	TrickleSpeed    time.Duration // interval between automatic increments
	Height          int           // bar height in pixels
	Trickle         bool          // enable automatic increments
	Easing          string        // timing function for width transitions
	Speed           time.Duration // width transition duration
	ZIndex          int           // stacking order of the bar element
}

// maxTrickleValue is the ceiling trickle can reach on its own; only an
// explicit Done drives the bar to 1.0.
const maxTrickleValue = 0.994

// normalized returns a copy with out-of-range values clamped. A purely
// cosmetic component degrades instead of rejecting configuration.
func (c Config) normalized() Config {
	if c.InitialPosition < 0 {
		c.InitialPosition = 0
	}
	if c.InitialPosition > maxTrickleValue {
		c.InitialPosition = maxTrickleValue
	}
	if c.TrickleSpeed <= 0 {
		c.TrickleSpeed = time.Millisecond
	}
	if c.Speed < 0 {
		c.Speed = 0
	}
	if c.Height <= 0 {
		c.Height = 1
	}
	return c
}

// style returns the visual parameters handed to Document.CreateBar.
func (c Config) style() BarStyle {
	return BarStyle{Color: c.Color, Height: c.Height, ZIndex: c.ZIndex}
}
