package graph

// DefaultHistoryDepth is the number of snapshots a History keeps.
const DefaultHistoryDepth = 50

// History is a bounded ring buffer of graph snapshots with an undo cursor.
//
// Snapshots are deep-copied on the way in and on the way out, so nothing a
// caller does to a live graph can alter a recorded state. Pushing after an
// undo discards the redo tail; pushing at capacity evicts the oldest entry.
//
// History is not safe for concurrent use; Workflow guards it.
type History struct {
	buf    []Snapshot
	head   int // physical index of the oldest entry
	size   int
	cursor int // logical index of the current entry
}

// NewHistory creates a History of the given depth (DefaultHistoryDepth when
// depth < 1) holding initial as its only entry.
func NewHistory(depth int, initial Snapshot) *History {
	if depth < 1 {
		depth = DefaultHistoryDepth
	}
	h := &History{buf: make([]Snapshot, depth)}
	h.Reset(initial)
	return h
}

// Reset discards every entry and records initial as the only one.
func (h *History) Reset(initial Snapshot) {
	for i := range h.buf {
		h.buf[i] = Snapshot{}
	}
	h.head = 0
	h.buf[0] = initial.Clone()
	h.size = 1
	h.cursor = 0
}

// Push records s as the new current entry.
func (h *History) Push(s Snapshot) {
	// Drop the redo tail.
	for i := h.cursor + 1; i < h.size; i++ {
		h.buf[h.index(i)] = Snapshot{}
	}
	h.size = h.cursor + 1

	if h.size == len(h.buf) {
		h.buf[h.head] = Snapshot{}
		h.head = (h.head + 1) % len(h.buf)
		h.size--
	}

	h.buf[h.index(h.size)] = s.Clone()
	h.size++
	h.cursor = h.size - 1
}

// Undo moves the cursor back one entry and returns it.
func (h *History) Undo() (Snapshot, bool) {
	if !h.CanUndo() {
		return Snapshot{}, false
	}
	h.cursor--
	return h.buf[h.index(h.cursor)].Clone(), true
}

// Redo moves the cursor forward one entry and returns it.
func (h *History) Redo() (Snapshot, bool) {
	if !h.CanRedo() {
		return Snapshot{}, false
	}
	h.cursor++
	return h.buf[h.index(h.cursor)].Clone(), true
}

// CanUndo reports whether there is an entry before the cursor.
func (h *History) CanUndo() bool { return h.cursor > 0 }

// CanRedo reports whether there is an entry after the cursor.
func (h *History) CanRedo() bool { return h.cursor < h.size-1 }

// Len returns the number of recorded entries.
func (h *History) Len() int { return h.size }

// Cap returns the maximum number of entries.
func (h *History) Cap() int { return len(h.buf) }

func (h *History) index(logical int) int {
	return (h.head + logical) % len(h.buf)
}
