// Package termdoc renders the navigation progress indicator on a terminal
// while delegating document semantics (location, clicks, busy marker) to a
// wrapped in-memory page.
package termdoc

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/sigman78/navprogress/internal/navprogress"
)

// barScale is the progressbar step resolution; fractions map onto it.
const barScale = 1000

// Options configures terminal output.
type Options struct {
	// Out is where the bar is drawn. Default: os.Stderr.
	Out io.Writer
	// Width is the bar width in cells. 0 derives it from the terminal.
	Width int
	// FrameRate is the tween step for animated transitions. Default: 30ms.
	FrameRate time.Duration
	// ForceTTY draws even when Out is not a terminal.
	ForceTTY bool
}

// Doc is a navprogress.Document decorator: location, clicks and the busy
// marker come from the wrapped HTMLDocument, the bar is drawn on the
// terminal. When the output is not a TTY the bar falls back to the inner
// document's in-tree element so nothing garbles piped output.
type Doc struct {
	inner *navprogress.HTMLDocument
	opts  Options
}

// New wraps inner for terminal rendering.
func New(inner *navprogress.HTMLDocument, opts Options) *Doc {
	if opts.Out == nil {
		opts.Out = os.Stderr
	}
	if opts.FrameRate <= 0 {
		opts.FrameRate = 30 * time.Millisecond
	}
	return &Doc{inner: inner, opts: opts}
}

// ShouldRender reports whether the terminal bar will actually draw.
func (d *Doc) ShouldRender() bool {
	if d.opts.ForceTTY {
		return true
	}
	f, ok := d.opts.Out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Location returns the wrapped document's current URL.
func (d *Doc) Location() string { return d.inner.Location() }

// AddClickListener registers fn on the wrapped document.
func (d *Doc) AddClickListener(fn func(navprogress.Activation)) (remove func()) {
	return d.inner.AddClickListener(fn)
}

// SetBusy toggles the wrapped document's busy marker.
func (d *Doc) SetBusy(busy bool) { d.inner.SetBusy(busy) }

// CreateBar draws a terminal bar, or mounts the in-tree element when the
// output is not a terminal.
func (d *Doc) CreateBar(style navprogress.BarStyle) navprogress.Bar {
	if !d.ShouldRender() {
		return d.inner.CreateBar(style)
	}
	pb := progressbar.NewOptions(barScale,
		progressbar.OptionSetWriter(d.opts.Out),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetDescription(describe(style)),
		progressbar.OptionSetWidth(d.width()),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionClearOnFinish(),
	)
	return &termBar{pb: pb, frame: d.opts.FrameRate}
}

// width picks the drawn bar width: explicit option, else a third of the
// terminal bounded to [20,60], else 40.
func (d *Doc) width() int {
	if d.opts.Width > 0 {
		return d.opts.Width
	}
	if f, ok := d.opts.Out.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			w /= 3
			if w < 20 {
				w = 20
			}
			if w > 60 {
				w = 60
			}
			return w
		}
	}
	return 40
}

// describe renders the bar label in the configured indicator color.
func describe(style navprogress.BarStyle) string {
	s := lipgloss.NewStyle()
	if style.Color != "" {
		s = s.Foreground(lipgloss.Color(style.Color))
	}
	return s.Render("navigating")
}

// termBar draws one indicator cycle. SetValue with a non-zero transition
// tweens the displayed value over the duration on a ticker goroutine;
// a newer SetValue or Remove cancels the tween in flight.
type termBar struct {
	pb    *progressbar.ProgressBar
	frame time.Duration

	mu      sync.Mutex
	value   float64
	cancel  chan struct{}
	removed bool
}

func (b *termBar) SetValue(frac float64, t navprogress.Transition) {
	b.mu.Lock()
	if b.removed {
		b.mu.Unlock()
		return
	}
	if b.cancel != nil {
		close(b.cancel)
		b.cancel = nil
	}
	from := b.value
	b.value = frac
	if t.Duration <= 0 || frac <= from {
		b.mu.Unlock()
		b.draw(frac)
		return
	}
	cancel := make(chan struct{})
	b.cancel = cancel
	b.mu.Unlock()
	go b.tween(from, frac, t, cancel)
}

func (b *termBar) Remove() {
	b.mu.Lock()
	if b.removed {
		b.mu.Unlock()
		return
	}
	b.removed = true
	if b.cancel != nil {
		close(b.cancel)
		b.cancel = nil
	}
	b.mu.Unlock()
	_ = b.pb.Finish()
}

func (b *termBar) tween(from, to float64, t navprogress.Transition, cancel chan struct{}) {
	ease := easingFunc(t.Easing)
	steps := int(t.Duration / b.frame)
	if steps < 1 {
		steps = 1
	}
	ticker := time.NewTicker(b.frame)
	defer ticker.Stop()
	for i := 1; i <= steps; i++ {
		select {
		case <-cancel:
			return
		case <-ticker.C:
			p := ease(float64(i) / float64(steps))
			b.draw(from + (to-from)*p)
		}
	}
}

func (b *termBar) draw(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	_ = b.pb.Set(int(v * barScale))
}

// easingFunc maps a CSS timing-function keyword onto a unit curve. Unknown
// keywords fall back to "ease".
func easingFunc(name string) func(float64) float64 {
	switch name {
	case "linear":
		return func(p float64) float64 { return p }
	case "ease-in":
		return func(p float64) float64 { return p * p }
	case "ease-out":
		return func(p float64) float64 { return 1 - (1-p)*(1-p) }
	case "ease-in-out":
		return func(p float64) float64 {
			if p < 0.5 {
				return 2 * p * p
			}
			return 1 - 2*(1-p)*(1-p)
		}
	default:
		return func(p float64) float64 { return p * p * (3 - 2*p) }
	}
}
