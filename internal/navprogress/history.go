package navprogress

import "sync"

// HistoryEntry is one committed navigation.
type HistoryEntry struct {
	State any
	Title string
	URL   string
}

// MemHistory is an in-memory History. Its base primitive records the entry
// and moves the document location, matching browser push-state semantics.
// The primitive is swappable so the interceptor's override contract can be
// exercised without touching any global.
type MemHistory struct {
	mu      sync.Mutex
	push    PushFunc
	entries []HistoryEntry
}

// NewMemHistory returns a history whose committed navigations update doc's
// location. A nil doc records entries without moving any document.
func NewMemHistory(doc *HTMLDocument) *MemHistory {
	h := &MemHistory{}
	h.push = func(state any, title, url string) {
		h.mu.Lock()
		h.entries = append(h.entries, HistoryEntry{State: state, Title: title, URL: url})
		h.mu.Unlock()
		if doc != nil {
			doc.SetLocation(url)
		}
	}
	return h
}

// Push invokes the currently installed primitive.
func (h *MemHistory) Push(state any, title, url string) {
	h.mu.Lock()
	fn := h.push
	h.mu.Unlock()
	fn(state, title, url)
}

// PushFunc returns the currently installed primitive.
func (h *MemHistory) PushFunc() PushFunc {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.push
}

// SetPushFunc replaces the primitive.
func (h *MemHistory) SetPushFunc(fn PushFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.push = fn
}

// Entries returns a copy of the committed navigations.
func (h *MemHistory) Entries() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}
