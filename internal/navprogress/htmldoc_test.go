package navprogress

import (
	"strings"
	"testing"
	"time"
)

const docPage = `<!DOCTYPE html>
<html class="theme-dark"><head><title>t</title></head><body>
<a href="/one">One</a>
<a href="/two" target="_blank">Two</a>
<p>text</p>
</body></html>`

func parseTestDoc(t *testing.T) *HTMLDocument {
	t.Helper()
	d, err := ParseDocument(strings.NewReader(docPage), "https://a.test/home")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return d
}

func TestLinksAndFindAnchor(t *testing.T) {
	d := parseTestDoc(t)

	links := d.Links()
	if len(links) != 2 {
		t.Fatalf("links = %d, want 2", len(links))
	}
	if links[0].Href != "/one" || links[0].Target != "" {
		t.Errorf("first link = %+v, want href /one without target", links[0])
	}
	if links[1].Href != "/two" || links[1].Target != "_blank" {
		t.Errorf("second link = %+v, want href /two target _blank", links[1])
	}

	if a := d.FindAnchor("/two"); a == nil {
		t.Error("FindAnchor(/two) = nil")
	}
	if a := d.FindAnchor("/missing"); a != nil {
		t.Error("FindAnchor(/missing) found something")
	}
}

func TestBusyMarkerPreservesOtherClasses(t *testing.T) {
	d := parseTestDoc(t)

	d.SetBusy(true)
	if !d.Busy() {
		t.Fatal("busy marker not set")
	}
	root := d.elementLocked("html")
	classes := strings.Fields(attrVal(root, "class"))
	if len(classes) != 2 || classes[0] != "theme-dark" {
		t.Errorf("classes = %v, want [theme-dark %s]", classes, busyClass)
	}

	d.SetBusy(false)
	if d.Busy() {
		t.Fatal("busy marker not cleared")
	}
	if got := attrVal(root, "class"); got != "theme-dark" {
		t.Errorf("class = %q, want theme-dark preserved", got)
	}
}

func TestCreateBarMountsAndRenders(t *testing.T) {
	d := parseTestDoc(t)
	style := BarStyle{Color: "#29d", Height: 3, ZIndex: 1600}

	bar := d.CreateBar(style)
	node := d.BarNode()
	if node == nil {
		t.Fatal("bar node not mounted")
	}
	body := d.elementLocked("body")
	if node.Parent != body || body.FirstChild != node {
		t.Error("bar is not the first child of body")
	}

	css := attrVal(node, "style")
	for _, want := range []string{"width: 0.0%", "height: 3px", "background: #29d", "z-index: 1600"} {
		if !strings.Contains(css, want) {
			t.Errorf("style %q missing %q", css, want)
		}
	}

	bar.SetValue(0.5, Transition{Duration: 300 * time.Millisecond, Easing: "ease"})
	css = attrVal(node, "style")
	if !strings.Contains(css, "width: 50.0%") {
		t.Errorf("style %q missing updated width", css)
	}
	if !strings.Contains(css, "transition: width 300ms ease") {
		t.Errorf("style %q missing transition", css)
	}

	bar.Remove()
	if d.BarNode() != nil {
		t.Error("bar node still registered after remove")
	}
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if c == node {
			t.Error("bar node still in tree after remove")
		}
	}

	// SetValue after Remove is a no-op, not a panic.
	bar.SetValue(0.9, Transition{})
}

func TestCreateBarReplacesExisting(t *testing.T) {
	d := parseTestDoc(t)
	first := d.CreateBar(BarStyle{Height: 1})
	_ = d.CreateBar(BarStyle{Height: 2})

	body := d.elementLocked("body")
	count := 0
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if attrVal(c, "id") == barElementID {
			count++
		}
	}
	if count != 1 {
		t.Errorf("bar elements in tree = %d, want 1", count)
	}
	// The stale handle is inert.
	first.SetValue(0.3, Transition{})
}

func TestClickListenerRemove(t *testing.T) {
	d := parseTestDoc(t)
	var calls int
	remove := d.AddClickListener(func(Activation) { calls++ })

	target := d.FindAnchor("/one")
	d.Click(Activation{Target: target})
	remove()
	d.Click(Activation{Target: target})

	if calls != 1 {
		t.Errorf("listener calls = %d, want 1", calls)
	}
}

func TestLocationRoundTrip(t *testing.T) {
	d := parseTestDoc(t)
	if got := d.Location(); got != "https://a.test/home" {
		t.Errorf("location = %q", got)
	}
	d.SetLocation("https://a.test/next")
	if got := d.Location(); got != "https://a.test/next" {
		t.Errorf("location = %q, want updated", got)
	}
}
