package selection

import (
	"sync"
)

// Property names carried by change notifications.
const (
	PropertyState     = "state"
	PropertySelection = "selection"
	PropertyImage     = "image"
)

// Event describes one observed change. Old may be nil when a prior value
// is not meaningful.
type Event struct {
	Property string
	Old      interface{}
	New      interface{}
}

// Listener is called with each event for a property it subscribed to.
type Listener func(Event)

const eventQueueSize = 64

type listenerEntry struct {
	id int
	fn Listener
}

// notifier delivers property-change events either synchronously on the
// mutating goroutine or, in async mode, in order on one dedicated consumer
// goroutine.
type notifier struct {
	mu        sync.Mutex
	listeners map[string][]listenerEntry
	nextID    int

	async  bool
	events chan Event
	done   chan struct{}
}

func newNotifier() *notifier {
	return &notifier{
		listeners: make(map[string][]listenerEntry),
	}
}

// start launches the consumer goroutine in async mode. Must be called once
// before the first emit.
func (n *notifier) start() {
	if !n.async {
		return
	}
	n.events = make(chan Event, eventQueueSize)
	n.done = make(chan struct{})
	go func() {
		defer close(n.done)
		for e := range n.events {
			n.dispatch(e)
		}
	}()
}

// close stops the consumer after the queued events drain. The caller must
// not emit after close.
func (n *notifier) close() {
	if !n.async {
		return
	}
	close(n.events)
	<-n.done
}

// on registers fn for the named property and returns its unsubscribe
// function.
func (n *notifier) on(property string, fn Listener) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	id := n.nextID
	n.listeners[property] = append(n.listeners[property], listenerEntry{id: id, fn: fn})

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		entries := n.listeners[property]
		for i, entry := range entries {
			if entry.id == id {
				n.listeners[property] = append(entries[:i:i], entries[i+1:]...)
				return
			}
		}
	}
}

// emit delivers the event. In async mode the event is enqueued before emit
// returns, preserving mutation order.
func (n *notifier) emit(e Event) {
	if n.async {
		n.events <- e
		return
	}
	n.dispatch(e)
}

func (n *notifier) dispatch(e Event) {
	n.mu.Lock()
	entries := n.listeners[e.Property]
	fns := make([]Listener, len(entries))
	for i, entry := range entries {
		fns[i] = entry.fn
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}
