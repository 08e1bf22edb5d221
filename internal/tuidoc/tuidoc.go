// Package tuidoc renders the navigation progress indicator as a BubbleTea
// program fed by bar events, with document semantics delegated to a wrapped
// in-memory page.
package tuidoc

import (
	"os"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sigman78/navprogress/internal/navprogress"
)

// Doc is a navprogress.Document decorator that draws the bar in a TUI.
type Doc struct {
	inner *navprogress.HTMLDocument
}

// New wraps inner for TUI rendering.
func New(inner *navprogress.HTMLDocument) *Doc {
	return &Doc{inner: inner}
}

// Location returns the wrapped document's current URL.
func (d *Doc) Location() string { return d.inner.Location() }

// AddClickListener registers fn on the wrapped document.
func (d *Doc) AddClickListener(fn func(navprogress.Activation)) (remove func()) {
	return d.inner.AddClickListener(fn)
}

// SetBusy toggles the wrapped document's busy marker.
func (d *Doc) SetBusy(busy bool) { d.inner.SetBusy(busy) }

// CreateBar starts a BubbleTea program showing the indicator and returns a
// handle that feeds it value updates.
func (d *Doc) CreateBar(style navprogress.BarStyle) navprogress.Bar {
	events := make(chan barEvent, 64)
	m := newModel(style, d.inner.Location(), events)
	p := tea.NewProgram(m, tea.WithOutput(os.Stderr))
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = p.Run()
	}()
	return &tuiBar{events: events, done: done}
}

// tuiBar feeds the running program. Value updates coalesce when the program
// lags; Remove blocks until the program has restored the terminal.
type tuiBar struct {
	events  chan barEvent
	done    chan struct{}
	removed bool
}

func (b *tuiBar) SetValue(frac float64, _ navprogress.Transition) {
	if b.removed {
		return
	}
	select {
	case b.events <- barEvent{value: frac}:
	default:
	}
}

func (b *tuiBar) Remove() {
	if b.removed {
		return
	}
	b.removed = true
	b.events <- barEvent{remove: true}
	<-b.done
}

type barEvent struct {
	value  float64
	remove bool
}

type eventMsg barEvent

// waitForEvent relays the next bar event into the program.
func waitForEvent(ch <-chan barEvent) tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-ch)
	}
}

type model struct {
	bar    progress.Model
	label  string
	value  float64
	events <-chan barEvent
}

func newModel(style navprogress.BarStyle, location string, events <-chan barEvent) model {
	var bar progress.Model
	if style.Color != "" {
		bar = progress.New(progress.WithSolidFill(style.Color))
	} else {
		bar = progress.New(progress.WithDefaultGradient())
	}
	bar.Width = 40
	label := lipgloss.NewStyle().Bold(true).Render("navigating ") +
		lipgloss.NewStyle().Faint(true).Render(location)
	return model{bar: bar, label: label, events: events}
}

func (m model) Init() tea.Cmd {
	return waitForEvent(m.events)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		return m, nil
	case tea.WindowSizeMsg:
		w := msg.Width - 4
		if w > 10 {
			m.bar.Width = w
		}
		return m, nil
	case eventMsg:
		if msg.remove {
			return m, tea.Quit
		}
		m.value = msg.value
		return m, waitForEvent(m.events)
	}
	return m, nil
}

func (m model) View() string {
	return m.label + "\n" + m.bar.ViewAs(m.value) + "\n"
}
