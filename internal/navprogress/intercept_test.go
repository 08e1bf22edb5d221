package navprogress

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/html"
)

const interceptPage = `<!DOCTYPE html>
<html><head><title>t</title></head><body>
<nav>
  <a id="home" href="/page1">Home</a>
  <a id="other" href="/page2">Other</a>
  <a id="frag" href="#section">Section</a>
  <a id="ext" href="https://b.test/x">External</a>
  <a id="blank" href="/page3" target="_blank">New window</a>
  <a id="mail" href="mailto:x@a.test">Mail</a>
  <a id="bad" href="https://a.test/%zz">Bad</a>
  <a id="nohref">No href</a>
  <a id="wrap" href="/page4"><span id="inner">wrapped</span></a>
</nav>
<p id="plain">no link here</p>
</body></html>`

type interceptFixture struct {
	doc         *HTMLDocument
	hist        *MemHistory
	clock       *ManualClock
	engine      *Engine
	interceptor *Interceptor
}

func newInterceptFixture(t *testing.T) *interceptFixture {
	t.Helper()
	doc, err := ParseDocument(strings.NewReader(interceptPage), "https://a.test/page1")
	if err != nil {
		t.Fatalf("parse page: %v", err)
	}
	clock := NewManualClock()
	engine := NewEngine(testConfig(), doc, clock)
	engine.jitter = func() float64 { return 0.5 }
	hist := NewMemHistory(doc)
	ic := NewInterceptor(engine, doc, hist)
	ic.Attach()
	return &interceptFixture{doc: doc, hist: hist, clock: clock, engine: engine, interceptor: ic}
}

// nodeByID finds any element by its id attribute.
func nodeByID(t *testing.T, d *HTMLDocument, id string) *html.Node {
	t.Helper()
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && attrVal(n, "id") == id {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
	if found == nil {
		t.Fatalf("no element with id %q", id)
	}
	return found
}

func pushPtr(h History) uintptr {
	return reflect.ValueOf(h.PushFunc()).Pointer()
}

func TestSkippedActivations(t *testing.T) {
	cases := []struct {
		name string
		id   string
		ev   Activation
	}{
		{"no anchor ancestor", "plain", Activation{}},
		{"new browsing context", "blank", Activation{}},
		{"ctrl modifier", "other", Activation{CtrlKey: true}},
		{"meta modifier", "other", Activation{MetaKey: true}},
		{"cross origin", "ext", Activation{}},
		{"fragment only", "frag", Activation{}},
		{"non-web scheme", "mail", Activation{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newInterceptFixture(t)
			orig := pushPtr(fx.hist)

			ev := tc.ev
			ev.Target = nodeByID(t, fx.doc, tc.id)
			fx.doc.Click(ev)

			if got := fx.engine.Status(); got != StatusIdle {
				t.Errorf("status = %v, want idle", got)
			}
			if pushPtr(fx.hist) != orig {
				t.Error("push override installed for a skipped activation")
			}
			if fx.doc.Busy() {
				t.Error("busy marker set for a skipped activation")
			}
		})
	}
}

func TestQualifyingClickStartsAndCompletesOnPush(t *testing.T) {
	fx := newInterceptFixture(t)
	orig := pushPtr(fx.hist)

	fx.doc.Click(Activation{Target: nodeByID(t, fx.doc, "other")})

	if got := fx.engine.Status(); got != StatusActive {
		t.Fatalf("status = %v, want active", got)
	}
	if got := fx.engine.Value(); got != 0.08 {
		t.Errorf("value = %v, want initial 0.08", got)
	}
	if !fx.doc.Busy() {
		t.Error("busy marker not set")
	}
	if pushPtr(fx.hist) == orig {
		t.Fatal("push override not installed")
	}

	// The router commits the navigation; the override completes the cycle
	// and forwards to the original primitive.
	fx.hist.Push(nil, "", "https://a.test/page2")

	if got := fx.engine.Status(); got != StatusFinishing {
		t.Fatalf("status after push = %v, want finishing", got)
	}
	if got := fx.engine.Value(); got != 1.0 {
		t.Errorf("value after push = %v, want 1.0", got)
	}
	entries := fx.hist.Entries()
	if len(entries) != 1 || entries[0].URL != "https://a.test/page2" {
		t.Fatalf("entries = %+v, want one entry for page2", entries)
	}
	if got := fx.doc.Location(); got != "https://a.test/page2" {
		t.Errorf("location = %q, want committed URL", got)
	}
	if fx.doc.Busy() {
		t.Error("busy marker still set after push")
	}

	fx.clock.Advance(300 * time.Millisecond)
	if got := fx.engine.Status(); got != StatusIdle {
		t.Errorf("status = %v, want idle after transition", got)
	}
	if fx.doc.BarNode() != nil {
		t.Error("bar element still mounted")
	}
}

func TestClickInsideAnchorQualifies(t *testing.T) {
	fx := newInterceptFixture(t)
	fx.doc.Click(Activation{Target: nodeByID(t, fx.doc, "inner")})
	if got := fx.engine.Status(); got != StatusActive {
		t.Errorf("status = %v, want active (span resolves to enclosing anchor)", got)
	}
}

func TestRepeatedClicksComposeOverride(t *testing.T) {
	fx := newInterceptFixture(t)

	fx.doc.Click(Activation{Target: nodeByID(t, fx.doc, "other")})
	afterFirst := pushPtr(fx.hist)
	fx.doc.Click(Activation{Target: nodeByID(t, fx.doc, "wrap")})

	if pushPtr(fx.hist) != afterFirst {
		t.Fatal("second click replaced the override (original primitive lost)")
	}

	// A single push still reaches the original primitive exactly once.
	fx.hist.Push(nil, "", "https://a.test/page2")
	if got := len(fx.hist.Entries()); got != 1 {
		t.Fatalf("entries = %d, want 1", got)
	}
	if got := fx.engine.Status(); got != StatusFinishing {
		t.Errorf("status = %v, want finishing", got)
	}
}

func TestMalformedHrefFlashes(t *testing.T) {
	for _, id := range []string{"bad", "nohref"} {
		fx := newInterceptFixture(t)
		fx.doc.Click(Activation{Target: nodeByID(t, fx.doc, id)})

		if got := fx.engine.Status(); got != StatusIdle {
			t.Errorf("%s: status = %v, want idle after flash", id, got)
		}
		if got := fx.engine.Value(); got != 1.0 {
			t.Errorf("%s: value = %v, want 1.0 (flash completed)", id, got)
		}
		if fx.doc.BarNode() != nil {
			t.Errorf("%s: bar element leaked", id)
		}
		if fx.doc.Busy() {
			t.Errorf("%s: busy marker leaked", id)
		}
		if got := fx.clock.Pending(); got != 0 {
			t.Errorf("%s: pending timers = %d, want 0", id, got)
		}
	}
}

func TestDetachRestoresOriginalPush(t *testing.T) {
	fx := newInterceptFixture(t)
	orig := pushPtr(fx.hist)

	fx.doc.Click(Activation{Target: nodeByID(t, fx.doc, "other")})
	if pushPtr(fx.hist) == orig {
		t.Fatal("override not installed")
	}

	fx.interceptor.Detach()
	if pushPtr(fx.hist) != orig {
		t.Fatal("detach did not restore the original push primitive")
	}

	// Listener is gone: further clicks do nothing.
	fx.engine.Close()
	fx.doc.Click(Activation{Target: nodeByID(t, fx.doc, "wrap")})
	if got := fx.engine.Status(); got != StatusIdle {
		t.Errorf("status = %v, want idle after detach", got)
	}
}

func TestAttachIsIdempotent(t *testing.T) {
	fx := newInterceptFixture(t)
	fx.interceptor.Attach()

	fx.doc.Click(Activation{Target: nodeByID(t, fx.doc, "other")})
	fx.hist.Push(nil, "", "https://a.test/page2")
	if got := len(fx.hist.Entries()); got != 1 {
		t.Errorf("entries = %d, want 1 (single listener)", got)
	}
}
