package buffer

// Buffer is a fixed-capacity byte queue with truncating writes and
// shifting reads. Writing more than the free space silently truncates;
// reading from an empty buffer returns 0. Neither is an error.
//
// Buffer is not safe for concurrent use; the owning stack serializes
// all access.
type Buffer struct {
	data []byte
	used int
}

// New creates a buffer with the given capacity. Non-positive capacities
// yield a zero-capacity buffer that accepts no bytes.
func New(capacity int) *Buffer {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer{data: make([]byte, capacity)}
}

// Write copies min(len(p), Available()) bytes to the tail and returns
// the count actually stored. A full buffer returns 0.
func (b *Buffer) Write(p []byte) int {
	n := len(p)
	if free := len(b.data) - b.used; n > free {
		n = free
	}
	if n <= 0 {
		return 0
	}
	copy(b.data[b.used:], p[:n])
	b.used += n
	return n
}

// Read copies min(len(p), Len()) bytes from the head into p, shifts the
// remaining bytes to the front, and returns the count. An empty buffer
// returns 0.
func (b *Buffer) Read(p []byte) int {
	n := len(p)
	if n > b.used {
		n = b.used
	}
	if n <= 0 {
		return 0
	}
	copy(p, b.data[:n])
	copy(b.data, b.data[n:b.used])
	b.used -= n
	return n
}

// Resize reallocates the buffer to the given capacity. A shrink clamps
// used down, discarding bytes beyond the new boundary. Non-positive or
// unchanged capacities leave the buffer as is.
func (b *Buffer) Resize(capacity int) {
	if capacity <= 0 || capacity == len(b.data) {
		return
	}
	data := make([]byte, capacity)
	n := b.used
	if n > capacity {
		n = capacity
	}
	copy(data, b.data[:n])
	b.data = data
	b.used = n
}

// Clear resets used to 0 without reallocating.
func (b *Buffer) Clear() {
	b.used = 0
}

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int {
	return b.used
}

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int {
	return len(b.data)
}

// Available returns the free space.
func (b *Buffer) Available() int {
	return len(b.data) - b.used
}

// HasSpace reports whether at least one byte can be written.
func (b *Buffer) HasSpace() bool {
	return b.used < len(b.data)
}

// Status returns the used and capacity counters in one call.
func (b *Buffer) Status() (used, capacity int) {
	return b.used, len(b.data)
}
