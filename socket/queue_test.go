package socket

import "testing"

func TestPendingQueueFIFO(t *testing.T) {
	q := NewPendingQueue(4)
	for _, h := range []Handle{10, 11, 12} {
		if !q.Push(h) {
			t.Fatalf("Push(%d) rejected below capacity", h)
		}
	}
	if q.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", q.Len())
	}
	for _, want := range []Handle{10, 11, 12} {
		h, ok := q.Pop()
		if !ok {
			t.Fatal("Pop() reported empty while handles remain")
		}
		if h != want {
			t.Errorf("Pop() = %d, want %d", h, want)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Error("Pop() on empty queue reported a handle")
	}
}

func TestPendingQueueRejectsWhenFull(t *testing.T) {
	const k = 3
	q := NewPendingQueue(k)
	for i := 0; i < k; i++ {
		if !q.Push(Handle(100 + i)) {
			t.Fatalf("push %d rejected below backlog", i)
		}
	}
	if q.Len() != k {
		t.Fatalf("Len() = %d, want %d", q.Len(), k)
	}
	// The (k+1)-th push must fail and leave the count untouched.
	if q.Push(999) {
		t.Error("push beyond backlog accepted")
	}
	if q.Len() != k {
		t.Errorf("Len() after rejected push = %d, want %d", q.Len(), k)
	}

	// Draining one slot makes room for exactly one more.
	if _, ok := q.Pop(); !ok {
		t.Fatal("Pop() failed on full queue")
	}
	if !q.Push(999) {
		t.Error("push rejected after drain")
	}
}

func TestPendingQueueMinimumLimit(t *testing.T) {
	for _, limit := range []int{0, -5} {
		q := NewPendingQueue(limit)
		if q.Cap() != 1 {
			t.Errorf("NewPendingQueue(%d).Cap() = %d, want 1", limit, q.Cap())
		}
		if !q.Push(1) {
			t.Errorf("NewPendingQueue(%d) rejected the first push", limit)
		}
		if q.Push(2) {
			t.Errorf("NewPendingQueue(%d) accepted a second push", limit)
		}
	}
}
