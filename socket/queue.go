package socket

// PendingQueue is the bounded FIFO of connections awaiting accept on a
// listening socket. Push rejects once the configured backlog is reached;
// it never grows or blocks.
type PendingQueue struct {
	items []Handle
	limit int
}

// NewPendingQueue builds an empty queue holding at most limit handles.
// Limits below one are raised to one.
func NewPendingQueue(limit int) *PendingQueue {
	if limit < 1 {
		limit = 1
	}
	return &PendingQueue{
		items: make([]Handle, 0, limit),
		limit: limit,
	}
}

// Push appends a handle, reporting false when the queue is full.
func (q *PendingQueue) Push(h Handle) bool {
	if len(q.items) >= q.limit {
		return false
	}
	q.items = append(q.items, h)
	return true
}

// Pop removes and returns the oldest handle, reporting false when empty.
func (q *PendingQueue) Pop() (Handle, bool) {
	if len(q.items) == 0 {
		return 0, false
	}
	h := q.items[0]
	copy(q.items, q.items[1:])
	q.items = q.items[:len(q.items)-1]
	return h, true
}

// Len returns the number of queued handles.
func (q *PendingQueue) Len() int { return len(q.items) }

// Cap returns the configured backlog limit.
func (q *PendingQueue) Cap() int { return q.limit }
