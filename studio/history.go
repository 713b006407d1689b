package studio

// DefaultHistoryLimit is the number of snapshots a session keeps for undo.
const DefaultHistoryLimit = 20

// History is a bounded undo/redo stack of scene snapshots.
// The cursor points at the snapshot the surface currently shows, or is -1 when empty.
type History struct {
	entries [][]byte
	cursor  int
	limit   int
}

// NewHistory creates an empty history keeping at most limit snapshots.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{cursor: -1, limit: limit}
}

// Record appends a snapshot after the cursor, dropping any redo branch and
// evicting the oldest entry once the limit is exceeded.
func (h *History) Record(snapshot []byte) {
	if h.cursor < len(h.entries)-1 {
		h.entries = h.entries[:h.cursor+1]
	}
	h.entries = append(h.entries, snapshot)
	h.cursor++
	if len(h.entries) > h.limit {
		h.entries = h.entries[1:]
		h.cursor--
	}
}

// Undo moves the cursor back and returns the snapshot there.
func (h *History) Undo() ([]byte, bool) {
	if h.cursor <= 0 {
		return nil, false
	}
	h.cursor--
	return h.entries[h.cursor], true
}

// Redo moves the cursor forward and returns the snapshot there.
func (h *History) Redo() ([]byte, bool) {
	if h.cursor >= len(h.entries)-1 {
		return nil, false
	}
	h.cursor++
	return h.entries[h.cursor], true
}

// Current returns the snapshot at the cursor.
func (h *History) Current() ([]byte, bool) {
	if h.cursor < 0 {
		return nil, false
	}
	return h.entries[h.cursor], true
}

func (h *History) Len() int    { return len(h.entries) }
func (h *History) Cursor() int { return h.cursor }
func (h *History) CanUndo() bool {
	return h.cursor > 0
}
func (h *History) CanRedo() bool {
	return h.cursor < len(h.entries)-1
}
