package kernel

import "sync"

const outputSlots = 64

// OutputRing is the kernel's output sink: a bounded ring of byte chunks
// written by the print trap and drained by the console service. When the
// ring is full the oldest chunk is dropped, like the boot log queue.
type OutputRing struct {
	mu    sync.Mutex
	head  uint64
	tail  uint64
	slots [outputSlots][]byte
}

// Write copies b into the ring, evicting the oldest chunk on overflow.
func (r *OutputRing) Write(b []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.head-r.tail >= outputSlots {
		r.tail++
	}
	buf := make([]byte, len(b))
	copy(buf, b)
	r.slots[r.head%outputSlots] = buf
	r.head++
}

// WriteString copies s into the ring.
func (r *OutputRing) WriteString(s string) {
	r.Write([]byte(s))
}

// Drain removes and returns every buffered chunk, oldest first.
func (r *OutputRing) Drain() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.head == r.tail {
		return nil
	}
	out := make([][]byte, 0, r.head-r.tail)
	for r.tail != r.head {
		out = append(out, r.slots[r.tail%outputSlots])
		r.slots[r.tail%outputSlots] = nil
		r.tail++
	}
	return out
}

// Len reports how many chunks are buffered.
func (r *OutputRing) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int(r.head - r.tail)
}
