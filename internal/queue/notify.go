package queue

import "sync"

// Notifier fans out "new job available" signals to subscribed workers.
// Notify never blocks: each subscriber channel has capacity one, so repeated
// signals coalesce while a worker is busy.
type Notifier struct {
	mu   sync.Mutex
	subs map[int]chan struct{}
	next int
}

// NewNotifier returns an empty hub.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]chan struct{})}
}

// Subscribe registers a wake-up channel. The returned cancel func must be
// called when the subscriber stops listening.
func (n *Notifier) Subscribe() (<-chan struct{}, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.next
	n.next++
	ch := make(chan struct{}, 1)
	n.subs[id] = ch
	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
	return ch, cancel
}

// Notify signals every subscriber that new work may be available.
func (n *Notifier) Notify() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
