package socket

import "sync"

// Table is the socket registry: it owns every Record, assigns handles
// and publishes lifecycle events to observers.
//
// Handles are strictly increasing and never reused within a Table's
// lifetime, so a stale handle can never resolve to a newer socket.
//
// Structural operations (Add, Get, Remove, Scan, Clear) are not
// goroutine-safe on their own; the owning stack serializes them.
// Subscribe and Unsubscribe carry their own lock and may be called from
// any goroutine.
type Table struct {
	records   map[Handle]*Record
	order     []Handle
	next      Handle
	observers []Observer
	obsMu     sync.RWMutex
}

// NewTable creates an empty registry.
func NewTable() *Table {
	return &Table{
		records: make(map[Handle]*Record),
		next:    FirstHandle,
	}
}

// Add registers a record, assigns it the next handle and notifies
// observers.
func (t *Table) Add(r *Record) Handle {
	h := t.next
	t.next++
	r.Handle = h
	t.records[h] = r
	t.order = append(t.order, h)

	t.notify(Event{Type: EventCreated, Handle: h, Info: r.Info()})
	return h
}

// Get resolves a handle to its record.
func (t *Table) Get(h Handle) (*Record, bool) {
	r, ok := t.records[h]
	return r, ok
}

// Remove deletes a record and notifies observers. It returns the removed
// record so the caller can finish tearing it down.
func (t *Table) Remove(h Handle) (*Record, bool) {
	r, ok := t.records[h]
	if !ok {
		return nil, false
	}
	delete(t.records, h)
	for i, other := range t.order {
		if other == h {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}

	t.notify(Event{Type: EventRemoved, Handle: h, Info: r.Info()})
	return r, true
}

// Len returns the number of live records.
func (t *Table) Len() int { return len(t.records) }

// Handles returns the live handles in creation order.
func (t *Table) Handles() []Handle {
	out := make([]Handle, len(t.order))
	copy(out, t.order)
	return out
}

// Scan visits records newest-first until fn returns false. Newer sockets
// shadow older ones when both match the same address, which keeps
// dispatch deterministic.
func (t *Table) Scan(fn func(*Record) bool) {
	for i := len(t.order) - 1; i >= 0; i-- {
		r, ok := t.records[t.order[i]]
		if !ok {
			continue
		}
		if !fn(r) {
			return
		}
	}
}

// Clear removes every record, notifying observers for each.
func (t *Table) Clear() {
	handles := t.Handles()
	for _, h := range handles {
		t.Remove(h)
	}
}

// Subscribe adds an observer for record lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes a previously subscribed observer.
func (t *Table) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnSocketEvent(e)
	}
}
