package navprogress

import (
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// Interceptor classifies click activations on the document and drives the
// engine: a qualifying in-app navigation starts the indicator, and the next
// history push completes it. It owns the currently installed push override
// and guarantees the original primitive is restored on Detach.
type Interceptor struct {
	engine *Engine
	doc    Document
	hist   History

	mu             sync.Mutex
	removeListener func()
	origPush       PushFunc
	installed      bool
}

// NewInterceptor binds an interceptor to its collaborators. Call Attach to
// begin listening and Detach on unmount.
func NewInterceptor(engine *Engine, doc Document, hist History) *Interceptor {
	return &Interceptor{engine: engine, doc: doc, hist: hist}
}

// Attach registers the click listener on the document. Attaching twice
// keeps the single existing registration.
func (i *Interceptor) Attach() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.removeListener != nil {
		return
	}
	i.removeListener = i.doc.AddClickListener(i.HandleActivation)
}

// Detach unregisters the listener and restores the original push primitive
// exactly as it was before the first override install.
func (i *Interceptor) Detach() {
	i.mu.Lock()
	if i.removeListener != nil {
		i.removeListener()
		i.removeListener = nil
	}
	i.mu.Unlock()
	i.restorePush()
}

// HandleActivation classifies one click activation. Activations that do not
// resolve to an in-app, same-origin, non-fragment http(s) navigation are
// silently skipped. Classification failures never propagate: the indicator
// flashes and returns to idle instead of leaving a stuck bar.
func (i *Interceptor) HandleActivation(ev Activation) {
	defer func() {
		if recover() != nil {
			i.flash()
		}
	}()

	a := closestAnchor(ev.Target)
	if a == nil {
		return
	}
	if opensNewContext(a) || ev.CtrlKey || ev.MetaKey {
		return
	}

	loc := i.doc.Location()
	abs, err := AbsoluteURL(attrVal(a, "href"), loc)
	if err != nil {
		i.flash()
		return
	}
	if !IsWebScheme(abs) {
		return
	}
	same, err := SameOrigin(abs, loc)
	if err != nil {
		i.flash()
		return
	}
	if !same {
		return
	}
	fragmentOnly, err := SamePageAnchor(abs, loc)
	if err != nil {
		i.flash()
		return
	}
	if fragmentOnly {
		return
	}

	i.engine.Start()
	i.installOverride()
}

// flash is the fail-safe path: show the indicator and immediately force it
// out. The brief flash is deliberate; errors are made visible rather than
// swallowed without a trace.
func (i *Interceptor) flash() {
	i.engine.Start()
	i.engine.Done(true)
}

// installOverride wraps the current push primitive so the next committed
// navigation completes the indicator and clears the busy marker before
// forwarding to the original with its arguments intact. A second qualifying
// click while the wrapper is live is a no-op: the saved original is never
// wrapped again or lost.
func (i *Interceptor) installOverride() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.installed {
		return
	}
	orig := i.hist.PushFunc()
	i.origPush = orig
	i.hist.SetPushFunc(func(state any, title, url string) {
		i.engine.Done(false)
		i.doc.SetBusy(false)
		orig(state, title, url)
	})
	i.installed = true
}

// restorePush reinstates the primitive saved by installOverride.
func (i *Interceptor) restorePush() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.installed {
		return
	}
	i.hist.SetPushFunc(i.origPush)
	i.origPush = nil
	i.installed = false
}

// closestAnchor walks n and its ancestors to the nearest <a> element.
func closestAnchor(n *html.Node) *html.Node {
	for ; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && n.Data == "a" {
			return n
		}
	}
	return nil
}

// opensNewContext reports whether the anchor targets another browsing
// context, e.g. target="_blank".
func opensNewContext(a *html.Node) bool {
	t := attrVal(a, "target")
	return t != "" && !strings.EqualFold(t, "_self")
}

// attrVal returns the value of the named attribute of n, or "".
func attrVal(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, name) {
			return a.Val
		}
	}
	return ""
}
