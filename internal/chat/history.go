package chat

import "sync"

// History keeps the display sequence in memory. If limit is greater than
// zero, the oldest events are dropped once the limit is exceeded.
type History struct {
	mu     sync.RWMutex
	events []DisplayEvent
	limit  int
}

func NewHistory(limit int) *History {
	return &History{limit: limit}
}

func (h *History) Append(ev DisplayEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.events = append(h.events, ev)
	if h.limit > 0 && len(h.events) > h.limit {
		h.events = h.events[len(h.events)-h.limit:]
	}
}

func (h *History) Clear() {
	h.mu.Lock()
	h.events = nil
	h.mu.Unlock()
}

// Events returns a copy of the current display sequence.
func (h *History) Events() []DisplayEvent {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]DisplayEvent, len(h.events))
	copy(out, h.events)
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.events)
}
