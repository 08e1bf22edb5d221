package navprogress

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// busyClass marks the root element while a navigation is in flight.
const busyClass = "navprogress-busy"

// barElementID identifies the indicator element in the tree.
const barElementID = "navprogress-bar"

// HTMLDocument implements Document over a parsed HTML tree. It stands in
// for the real browser document: clicks dispatch synchronously to
// registered listeners, the busy marker is a class on the root element,
// and the bar mounts as a styled div at the top of <body>. It doubles as
// the deterministic test environment and the headless host.
type HTMLDocument struct {
	mu        sync.Mutex
	root      *html.Node
	location  string
	listeners map[int]func(Activation)
	nextID    int
	bar       *htmlBar
}

// ParseDocument reads an HTML page from r and returns a document whose
// current address is loc.
func ParseDocument(r io.Reader, loc string) (*HTMLDocument, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &HTMLDocument{
		root:      root,
		location:  loc,
		listeners: make(map[int]func(Activation)),
	}, nil
}

// Location returns the document's current absolute URL.
func (d *HTMLDocument) Location() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.location
}

// SetLocation moves the document to u. The history primitive calls this
// when a navigation commits.
func (d *HTMLDocument) SetLocation(u string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.location = u
}

// AddClickListener registers fn for click activations.
func (d *HTMLDocument) AddClickListener(fn func(Activation)) (remove func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextID
	d.nextID++
	d.listeners[id] = fn
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.listeners, id)
	}
}

// Click dispatches an activation to every registered listener. Listeners
// run synchronously on the caller's goroutine, like DOM event handlers on
// the UI loop.
func (d *HTMLDocument) Click(ev Activation) {
	d.mu.Lock()
	fns := make([]func(Activation), 0, len(d.listeners))
	for _, fn := range d.listeners {
		fns = append(fns, fn)
	}
	d.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Anchors returns the document's <a> elements in document order.
func (d *HTMLDocument) Anchors() []*html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
	return out
}

// Link describes an anchor for hosts that drive navigation themselves.
type Link struct {
	Node   *html.Node
	Href   string
	Target string
}

// Links returns the document's anchors with their href and target
// attributes resolved, in document order.
func (d *HTMLDocument) Links() []Link {
	anchors := d.Anchors()
	out := make([]Link, 0, len(anchors))
	for _, a := range anchors {
		out = append(out, Link{Node: a, Href: attrVal(a, "href"), Target: attrVal(a, "target")})
	}
	return out
}

// FindAnchor returns the first anchor whose href attribute equals href,
// or nil.
func (d *HTMLDocument) FindAnchor(href string) *html.Node {
	for _, a := range d.Anchors() {
		if attrVal(a, "href") == href {
			return a
		}
	}
	return nil
}

// SetBusy toggles the busy marker class on the root element, preserving any
// other classes the page already carries.
func (d *HTMLDocument) SetBusy(busy bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	root := d.elementLocked("html")
	if root == nil {
		return
	}
	classes := strings.Fields(attrVal(root, "class"))
	kept := classes[:0]
	for _, c := range classes {
		if c != busyClass {
			kept = append(kept, c)
		}
	}
	if busy {
		kept = append(kept, busyClass)
	}
	setAttr(root, "class", strings.Join(kept, " "))
}

// Busy reports whether the busy marker class is present.
func (d *HTMLDocument) Busy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	root := d.elementLocked("html")
	if root == nil {
		return false
	}
	for _, c := range strings.Fields(attrVal(root, "class")) {
		if c == busyClass {
			return true
		}
	}
	return false
}

// CreateBar inserts the indicator div as the first child of <body> and
// returns a handle that renders progress into its style attribute.
func (d *HTMLDocument) CreateBar(style BarStyle) Bar {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.bar != nil {
		d.bar.detachLocked()
	}
	node := &html.Node{
		Type: html.ElementNode,
		Data: "div",
		Attr: []html.Attribute{{Key: "id", Val: barElementID}},
	}
	if body := d.elementLocked("body"); body != nil {
		body.InsertBefore(node, body.FirstChild)
	}
	b := &htmlBar{doc: d, node: node, style: style}
	b.renderLocked(0, Transition{})
	d.bar = b
	return b
}

// BarNode returns the mounted indicator element, or nil when no cycle is
// showing one.
func (d *HTMLDocument) BarNode() *html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.bar == nil {
		return nil
	}
	return d.bar.node
}

// elementLocked returns the first element with the given tag name.
func (d *HTMLDocument) elementLocked(tag string) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == tag {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
	return found
}

// htmlBar renders its state into the div's style attribute, mirroring what
// the browser implementation writes into the real element.
type htmlBar struct {
	doc     *HTMLDocument
	node    *html.Node
	style   BarStyle
	value   float64
	removed bool
}

// SetValue renders the bar at frac of full width.
func (b *htmlBar) SetValue(frac float64, t Transition) {
	b.doc.mu.Lock()
	defer b.doc.mu.Unlock()
	if b.removed {
		return
	}
	b.renderLocked(frac, t)
}

// Remove detaches the element from the tree.
func (b *htmlBar) Remove() {
	b.doc.mu.Lock()
	defer b.doc.mu.Unlock()
	b.detachLocked()
}

// Value reports the last rendered fraction.
func (b *htmlBar) Value() float64 {
	b.doc.mu.Lock()
	defer b.doc.mu.Unlock()
	return b.value
}

func (b *htmlBar) renderLocked(frac float64, t Transition) {
	b.value = frac
	css := fmt.Sprintf(
		"position: fixed; top: 0; left: 0; width: %.1f%%; height: %dpx; background: %s; z-index: %d",
		frac*100, b.style.Height, b.style.Color, b.style.ZIndex,
	)
	if t.Duration > 0 {
		css += fmt.Sprintf("; transition: width %dms %s", t.Duration.Milliseconds(), t.Easing)
	}
	setAttr(b.node, "style", css)
}

func (b *htmlBar) detachLocked() {
	if b.removed {
		return
	}
	b.removed = true
	if b.node.Parent != nil {
		b.node.Parent.RemoveChild(b.node)
	}
	if b.doc.bar == b {
		b.doc.bar = nil
	}
}

// setAttr sets or replaces the named attribute on n.
func setAttr(n *html.Node, name, val string) {
	for i, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: val})
}
