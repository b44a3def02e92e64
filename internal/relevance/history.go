package relevance

// History is a bounded window of parsed messages, oldest first.
type History struct {
	size    int
	entries []*Message
}

// NewHistory creates a history holding at most size messages.
func NewHistory(size int) *History {
	if size <= 0 {
		size = 10
	}
	return &History{size: size, entries: make([]*Message, 0, size)}
}

// Append adds m, evicting the oldest entry past capacity.
func (h *History) Append(m *Message) {
	if len(h.entries) == h.size {
		copy(h.entries, h.entries[1:])
		h.entries = h.entries[:h.size-1]
	}
	h.entries = append(h.entries, m)
}

// Len returns the number of entries.
func (h *History) Len() int { return len(h.entries) }

// Last returns the newest entry.
func (h *History) Last() (*Message, bool) {
	if len(h.entries) == 0 {
		return nil, false
	}
	return h.entries[len(h.entries)-1], true
}

// Recent returns up to n newest entries, oldest first.
func (h *History) Recent(n int) []*Message {
	if n <= 0 || n > len(h.entries) {
		n = len(h.entries)
	}
	return h.entries[len(h.entries)-n:]
}

// Entries returns all entries, oldest first.
func (h *History) Entries() []*Message { return h.entries }
