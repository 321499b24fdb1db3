package chat

import "sync"

// Update is one entry of a Queue. Either Event is set or Cleared is true.
type Update struct {
	Event   DisplayEvent
	Cleared bool
}

// Queue hands display updates from any goroutine over to the UI loop.
// Producers never block; the consumer waits on Ready and then calls Drain.
type Queue struct {
	mu      sync.Mutex
	pending []Update
	ready   chan struct{}
}

func NewQueue() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

func (q *Queue) Append(ev DisplayEvent) {
	q.push(Update{Event: ev})
}

func (q *Queue) Clear() {
	q.push(Update{Cleared: true})
}

func (q *Queue) push(u Update) {
	q.mu.Lock()
	q.pending = append(q.pending, u)
	q.mu.Unlock()

	q.Notify()
}

// Ready receives a value whenever updates were pushed since the last Drain.
func (q *Queue) Ready() <-chan struct{} {
	return q.ready
}

// Drain returns all pending updates in the order they were pushed.
func (q *Queue) Drain() []Update {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.pending
	q.pending = nil
	return out
}

// Notify raises the ready signal without pushing an update.
func (q *Queue) Notify() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
